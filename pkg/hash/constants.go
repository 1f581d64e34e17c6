package hash

/////////////////////////////////////////////////////////////////////////////
////////////////////////// Low-level Constants //////////////////////////////
/////////////////////////////////////////////////////////////////////////////

const DEPTH_SIZE int64 = 1                                // u8 depth byte heading the directory and every bucket
const POINTER_SIZE int64 = 8                              // big-endian int64 bucket offset
const DIRECTORY_HEADER_SIZE int64 = DEPTH_SIZE            // global depth
const BUCKET_FILE_HEADER_SIZE int64 = 4                   // big-endian int32 records per bucket
const FIRST_BUCKET_OFFSET int64 = BUCKET_FILE_HEADER_SIZE // offset of the bucket created with the index
const INITIAL_GLOBAL_DEPTH = 1                            // global depth of a new directory
const INITIAL_LOCAL_DEPTH = 1                             // local depth of the first bucket
const SLOTS_OFFSET int64 = DEPTH_SIZE                     // first slot within a bucket block
