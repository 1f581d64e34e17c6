package concurrency

import "fmt"

// Indicates whether a lock is a reader or a writer lock.
type LockType int

const (
	R_LOCK LockType = 0
	W_LOCK LockType = 1
)

func (t LockType) String() string {
	switch t {
	case R_LOCK:
		return "read"
	case W_LOCK:
		return "write"
	default:
		return fmt.Sprintf("LockType(%d)", int(t))
	}
}

// A Resource refers to a table in our database, uniquely identified by its
// name.
type Resource struct {
	tableName string
}

func NewResource(tableName string) Resource {
	return Resource{tableName: tableName}
}

func (r Resource) GetTableName() string {
	return r.tableName
}
