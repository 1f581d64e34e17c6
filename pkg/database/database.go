package database

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"dinohash/pkg/concurrency"
	"dinohash/pkg/config"
	"dinohash/pkg/hash"
	"dinohash/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTableExists is returned when creating a table whose files already exist.
	ErrTableExists = errors.New("table already exists")

	// ErrTableNotFound is returned when a table has no files in the database folder.
	ErrTableNotFound = errors.New("table not found")

	// ErrBadTableName is returned for table names that are not alphanumeric.
	ErrBadTableName = errors.New("table name must be alphanumeric")
)

var nonWord = regexp.MustCompile(`\W`)

// Database is a folder of hash tables, each stored as a directory file and
// a bucket file named after the table.
type Database struct {
	basepath string
	tables   map[string]Index
	log      *logger.Logger
	locks    *concurrency.ResourceLockManager
	mtx      sync.Mutex // Guards tables
}

// Opens a database given a data folder. A nil logger discards all events.
func Open(folder string, log *logger.Logger) (*Database, error) {
	// Ensure folder is of the form */
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	if err := os.MkdirAll(folder, 0775); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Database{
		basepath: folder,
		tables:   make(map[string]Index),
		log:      log,
		locks:    concurrency.NewResourceLockManager(),
	}, nil
}

// Close each table in the database, then close the database. Each table is
// closed once no command is using it.
func (db *Database) Close() error {
	db.mtx.Lock()
	tables := db.tables
	db.tables = make(map[string]Index)
	db.mtx.Unlock()

	var errs []error
	for name, table := range tables {
		err := db.locks.WithLock(concurrency.NewResource(name), concurrency.W_LOCK, table.Close)
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// CreateTable creates a table with the given number of records per bucket.
// A non-positive recordsPerBucket selects config.DefaultRecordsPerBucket.
func (db *Database) CreateTable(name string, recordsPerBucket int) (Index, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	db.mtx.Lock()
	defer db.mtx.Unlock()
	path := db.tablePath(name)
	if _, open := db.tables[name]; open || tableExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	if recordsPerBucket <= 0 {
		recordsPerBucket = config.DefaultRecordsPerBucket
	}
	index, err := openIndex(path, recordsPerBucket, db.options(name)...)
	if err != nil {
		return nil, err
	}
	db.tables[name] = index
	return index, nil
}

// GetTable returns a table by its name, opening it from disk if needed.
func (db *Database) GetTable(name string) (Index, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if idx, ok := db.tables[name]; ok {
		return idx, nil
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	path := db.tablePath(name)
	if !tableExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	index, err := openIndex(path, 0, db.options(name)...)
	if err != nil {
		return nil, err
	}
	db.tables[name] = index
	return index, nil
}

// WithTable runs f on the named table while holding its lock. Readers of
// the same table run concurrently; a writer runs alone.
func (db *Database) WithTable(name string, lType concurrency.LockType, f func(Index) error) error {
	table, err := db.GetTable(name)
	if err != nil {
		return err
	}
	return db.locks.WithLock(concurrency.NewResource(name), lType, func() error {
		return f(table)
	})
}

// Get a snapshot of the database's open tables.
func (db *Database) GetTables() map[string]Index {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return maps.Clone(db.tables)
}

// ListTables returns the names of every table stored in the folder, sorted.
func (db *Database) ListTables() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(db.basepath, "*"+config.DirectorySuffix))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), config.DirectorySuffix))
	}
	slices.Sort(names)
	return names, nil
}

// Returns the basepath of the database.
func (db *Database) GetBasePath() string {
	return db.basepath
}

// Backup copies the files of every open table into dir. Tables are backed
// up concurrently; the first failure is returned.
func (db *Database) Backup(dir string) error {
	var g errgroup.Group
	for name, table := range db.GetTables() {
		g.Go(func() error {
			err := db.locks.WithLock(concurrency.NewResource(name), concurrency.W_LOCK, func() error {
				return table.Backup(dir)
			})
			if err != nil {
				return fmt.Errorf("backup %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// options returns the hash options every table of this database is opened with.
func (db *Database) options(name string) []hash.Option {
	return []hash.Option{hash.WithLogger(db.log.WithIndex(name))}
}
