// Global index config.
package config

// Name of the index.
const DBName = "dinohash"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// The maximum number of pages that can be in the pager's buffer at once.
const MaxPagesInBuffer = 32

// Suffixes appended to an index name to form its two backing files.
const (
	DirectorySuffix = ".dir"
	BucketSuffix    = ".bkt"
)

// DefaultRecordsPerBucket is the bucket capacity used when a caller has no preference.
const DefaultRecordsPerBucket = 21

// DefaultStringMaxBytes bounds the encoded text of builtin string codecs.
const DefaultStringMaxBytes = 300

// DefaultSplitLimit is the number of nested splits a single insert may trigger
// before it is abandoned with a duplication limit error.
const DefaultSplitLimit = 2

// MaxGlobalDepth caps directory growth (2^MaxGlobalDepth pointers of 8 bytes each).
const MaxGlobalDepth = 30

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
