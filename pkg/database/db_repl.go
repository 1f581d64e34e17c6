package database

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dinohash/pkg/concurrency"
	"dinohash/pkg/hash"
	"dinohash/pkg/repl"
)

// DatabaseRepl creates a REPL over the tables of db. Sessions may run
// concurrently: commands that read a table share it, commands that modify
// it hold it alone.
func DatabaseRepl(db *Database) *repl.REPL {
	r := repl.NewRepl()
	add := func(trigger string, handler func(*Database, string) (string, error), help string) {
		r.MustAddCommand(trigger, func(payload string, replConfig *repl.REPLConfig) (string, error) {
			return handler(db, payload)
		}, help)
	}

	add("create", HandleCreateTable, "Create a table. usage: create table <table> [records_per_bucket]")
	add("tables", HandleTables, "List the tables in the database. usage: tables")
	add("insert", HandleInsert, "Insert an element. usage: insert <key> <value> into <table>")
	add("find", HandleFind, "Find every value of a key. usage: find <key> from <table>")
	add("delete", HandleDelete, "Delete the first value of a key, or one exact pair. usage: delete <key> [value] from <table>")
	add("deleteall", HandleDeleteAll, "Delete every value of a key. usage: deleteall <key> from <table>")
	add("select", HandleSelect, "Select elements from a table. usage: select from <table>")
	add("pretty", HandlePretty, "Print out the internal data representation. usage: pretty [bucket] from <table>")
	add("stats", HandleStats, "Print the shape of a table. usage: stats <table>")
	add("verify", HandleVerify, "Check the structure of a table. usage: verify <table>")
	add("backup", HandleBackup, "Copy the files of every open table into a folder. usage: backup <folder>")
	return r
}

// Handle create table.
func HandleCreateTable(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: create table <table> [records_per_bucket]
	if (len(fields) != 3 && len(fields) != 4) || fields[1] != "table" {
		return "", errors.New("usage: create table <table> [records_per_bucket]")
	}
	recordsPerBucket := 0
	if len(fields) == 4 {
		if recordsPerBucket, err = strconv.Atoi(fields[3]); err != nil || recordsPerBucket <= 0 {
			return "", fmt.Errorf("create error: invalid records per bucket %q", fields[3])
		}
	}
	tableName := fields[2]
	if _, err = d.CreateTable(tableName, recordsPerBucket); err != nil {
		return "", fmt.Errorf("create error: %w", err)
	}
	var stats hash.Stats
	err = d.WithTable(tableName, concurrency.R_LOCK, func(table Index) (err error) {
		stats, err = table.Stats()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create error: %w", err)
	}
	return fmt.Sprintf("table %s created with %d records per bucket.", tableName, stats.RecordsPerBucket), nil
}

// Handle listing tables.
func HandleTables(d *Database, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", errors.New("usage: tables")
	}
	names, err := d.ListTables()
	if err != nil {
		return "", err
	}
	return strings.Join(names, "\n"), nil
}

// Handle insert.
func HandleInsert(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: insert <key> <value> into <table>
	if len(fields) != 5 || fields[3] != "into" {
		return "", errors.New("usage: insert <key> <value> into <table>")
	}
	value, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", fmt.Errorf("insert error: %w", err)
	}
	var result hash.InsertResult
	err = d.WithTable(fields[4], concurrency.W_LOCK, func(table Index) (err error) {
		result, err = table.Insert(fields[1], value)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert error: %w", err)
	}
	if result == hash.Duplicate {
		return fmt.Sprintf("(%s, %d) already present.", fields[1], value), nil
	}
	return "", nil
}

// Handle find.
func HandleFind(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: find <key> from <table>
	if len(fields) != 4 || fields[2] != "from" {
		return "", errors.New("usage: find <key> from <table>")
	}
	var values []int64
	err = d.WithTable(fields[3], concurrency.R_LOCK, func(table Index) (err error) {
		values, err = table.LookupAll(fields[1])
		return err
	})
	if err != nil {
		return "", fmt.Errorf("find error: %w", err)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("find error: key %s not found", fields[1])
	}
	return fmt.Sprintf("found values: %v", values), nil
}

// Handle delete.
func HandleDelete(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: delete <key> [value] from <table>
	n := len(fields)
	if (n != 4 && n != 5) || fields[n-2] != "from" {
		return "", errors.New("usage: delete <key> [value] from <table>")
	}
	var value int64
	if n == 5 {
		if value, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
			return "", fmt.Errorf("delete error: %w", err)
		}
	}
	var deleted bool
	err = d.WithTable(fields[n-1], concurrency.W_LOCK, func(table Index) (err error) {
		if n == 5 {
			deleted, err = table.Delete(fields[1], value)
		} else {
			deleted, err = table.DeleteFirst(fields[1])
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("delete error: %w", err)
	}
	if !deleted {
		return "", errors.New("delete error: no matching entry")
	}
	return "", nil
}

// Handle delete all.
func HandleDeleteAll(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: deleteall <key> from <table>
	if len(fields) != 4 || fields[2] != "from" {
		return "", errors.New("usage: deleteall <key> from <table>")
	}
	var deleted bool
	err = d.WithTable(fields[3], concurrency.W_LOCK, func(table Index) (err error) {
		deleted, err = table.DeleteAll(fields[1])
		return err
	})
	if err != nil {
		return "", fmt.Errorf("deleteall error: %w", err)
	}
	if !deleted {
		return "", fmt.Errorf("deleteall error: key %s not found", fields[1])
	}
	return "", nil
}

// Handle select.
func HandleSelect(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: select from <table>
	if len(fields) != 3 || fields[1] != "from" {
		return "", errors.New("usage: select from <table>")
	}
	var results []hash.Entry[string, int64]
	err = d.WithTable(fields[2], concurrency.R_LOCK, func(table Index) (err error) {
		results, err = table.Select()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("select error: %w", err)
	}
	w := new(strings.Builder)
	printResults(results, w)
	return w.String(), nil
}

// Handle pretty printing.
func HandlePretty(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	w := new(strings.Builder)
	// Usage: pretty [bucket] from <table>
	switch {
	case len(fields) == 3 && fields[1] == "from":
		err = d.WithTable(fields[2], concurrency.R_LOCK, func(table Index) error {
			table.Print(w)
			return nil
		})
	case len(fields) == 4 && fields[2] == "from":
		n, perr := strconv.ParseInt(fields[1], 10, 64)
		if perr != nil {
			return "", fmt.Errorf("pretty error: %w", perr)
		}
		err = d.WithTable(fields[3], concurrency.R_LOCK, func(table Index) error {
			return table.PrintBucket(n, w)
		})
	default:
		return "", errors.New("usage: pretty [bucket] from <table>")
	}
	if err != nil {
		return "", fmt.Errorf("pretty error: %w", err)
	}
	return w.String(), nil
}

// Handle stats.
func HandleStats(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: stats <table>")
	}
	var s hash.Stats
	err = d.WithTable(fields[1], concurrency.R_LOCK, func(table Index) (err error) {
		s, err = table.Stats()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("stats error: %w", err)
	}
	return fmt.Sprintf("global depth: %d\ndirectory size: %d\nbuckets: %d\nrecords per bucket: %d\nactive records: %d",
		s.GlobalDepth, s.DirectorySize, s.Buckets, s.RecordsPerBucket, s.ActiveRecords), nil
}

// Handle verify.
func HandleVerify(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: verify <table>")
	}
	err = d.WithTable(fields[1], concurrency.R_LOCK, func(table Index) error {
		return table.Verify()
	})
	if err != nil {
		return "", fmt.Errorf("verify error: %w", err)
	}
	return fmt.Sprintf("table %s ok.", fields[1]), nil
}

// Handle backup.
func HandleBackup(d *Database, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: backup <folder>")
	}
	if err = d.Backup(fields[1]); err != nil {
		return "", fmt.Errorf("backup error: %w", err)
	}
	return fmt.Sprintf("backed up %d tables to %s.", len(d.GetTables()), fields[1]), nil
}

// printResults prints all given entries in a standard format.
func printResults(entries []hash.Entry[string, int64], w io.Writer) {
	for _, entry := range entries {
		fmt.Fprintf(w, "(%v, %v)\n", entry.Key, entry.Value)
	}
}
