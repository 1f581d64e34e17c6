package cursor

// Interface for a cursor that traverses an index.
type Cursor[K, V any] interface {
	Next() bool              // Moves the cursor to the next entry; reports true once past the end
	GetEntry() (K, V, error) // Returns the entry at the position of the cursor
	Close()                  // Called to indicate that the cursor is done being used
}
