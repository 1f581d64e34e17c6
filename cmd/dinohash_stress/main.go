package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"dinohash/pkg/database"
	"dinohash/pkg/hash"
	"dinohash/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var MAX_DELAY int64 = 10

// Listens for SIGINT or SIGTERM and closes the database.
func setupCloseHandler(db *database.Database) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		db.Close()
		os.Exit(0)
	}()
}

// Get delay jitter.
func jitter() time.Duration {
	return time.Duration(rand.Int63n(MAX_DELAY)+1) * time.Millisecond
}

// Parse workload
func parseWorkload(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var workload []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		workload = append(workload, scanner.Text())
	}
	return workload, scanner.Err()
}

// Feed every n-th line of the workload, starting at idx, to its own REPL
// session.
func handleWorkload(ctx context.Context, db *database.Database, workload []string, idx int, n int) error {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		for i := idx; i < len(workload); i += n {
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter()):
			}
			if _, err := io.WriteString(pw, workload[i]+"\n"); err != nil {
				return
			}
		}
	}()
	database.DatabaseRepl(db).Run(uuid.New(), "", pr, os.Stdout)
	return ctx.Err()
}

// model is the expected content of one table.
type model map[string][]int64

// Run ops random operations against table and check every lookup against
// an in-memory model of its content.
func handleRandom(ctx context.Context, table database.Index, ops int, keys int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	want := make(model)
	skipped := 0
	for i := 0; i < ops; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := fmt.Sprintf("k%d", rng.Intn(keys))
		value := rng.Int63n(8)
		switch op := rng.Intn(10); {
		case op < 6:
			result, err := table.Insert(key, value)
			var dle *hash.DuplicationLimitError
			switch {
			case errors.As(err, &dle):
				skipped++
				continue
			case err != nil:
				return fmt.Errorf("%s: insert (%s, %d): %w", table.GetName(), key, value, err)
			}
			if present := slices.Contains(want[key], value); present != (result == hash.Duplicate) {
				return fmt.Errorf("%s: insert (%s, %d) returned %v", table.GetName(), key, value, result)
			}
			if result == hash.Inserted {
				want[key] = append(want[key], value)
			}
		case op < 8:
			deleted, err := table.Delete(key, value)
			if err != nil {
				return fmt.Errorf("%s: delete (%s, %d): %w", table.GetName(), key, value, err)
			}
			idx := slices.Index(want[key], value)
			if deleted != (idx >= 0) {
				return fmt.Errorf("%s: delete (%s, %d) returned %v", table.GetName(), key, value, deleted)
			}
			if deleted {
				want[key] = slices.Delete(want[key], idx, idx+1)
			}
		default:
			got, err := table.LookupAll(key)
			if err != nil {
				return fmt.Errorf("%s: find %s: %w", table.GetName(), key, err)
			}
			if !sameValues(got, want[key]) {
				return fmt.Errorf("%s: find %s = %v, want %v", table.GetName(), key, got, want[key])
			}
		}
	}
	if err := table.Verify(); err != nil {
		return err
	}
	fmt.Printf("%s: %d ops, %d keys, %d inserts skipped\n", table.GetName(), ops, len(want), skipped)
	return nil
}

// sameValues compares two value lists ignoring order.
func sameValues(a, b []int64) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Start the database.
func main() {
	var dbFlag = flag.String("db", "data/", "DB folder")
	var workloadFlag = flag.String("workload", "", "workload file; random operations are run when empty")
	var nFlag = flag.Int("n", 1, "number of threads to run (default: 1)")
	var opsFlag = flag.Int("ops", 10000, "random operations per thread")
	var keysFlag = flag.Int("keys", 500, "distinct keys per thread")
	var rpbFlag = flag.Int("rpb", 0, "records per bucket of new tables (0: default)")
	var verifyFlag = flag.Bool("verify", false, "enable to verify database state at the end of the workload")
	var verboseFlag = flag.Bool("v", false, "log splits and directory doubling")
	flag.Parse()

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	db, err := database.Open(*dbFlag, logger.NewTextLogger(level))
	if err != nil {
		panic(err)
	}
	defer db.Close()
	setupCloseHandler(db)

	g, ctx := errgroup.WithContext(context.Background())
	if *workloadFlag != "" {
		workload, err := parseWorkload(*workloadFlag)
		if err != nil {
			fmt.Println(err)
			return
		}
		for i := 0; i < *nFlag; i++ {
			g.Go(func() error { return handleWorkload(ctx, db, workload, i, *nFlag) })
		}
	} else {
		// Each thread owns one table, so none of them share a HashTable.
		for i := 0; i < *nFlag; i++ {
			name := fmt.Sprintf("stress%d", i)
			os.Remove(filepath.Join(*dbFlag, name+".dir"))
			os.Remove(filepath.Join(*dbFlag, name+".bkt"))
			table, err := db.CreateTable(name, *rpbFlag)
			if err != nil {
				fmt.Println(err)
				return
			}
			seed := time.Now().UnixNano() + int64(i)
			g.Go(func() error { return handleRandom(ctx, table, *opsFlag, *keysFlag, seed) })
		}
	}
	if err := g.Wait(); err != nil {
		fmt.Println(err)
		db.Close()
		os.Exit(1)
	}

	// Verify the structure of every table.
	if *verifyFlag {
		names, err := db.ListTables()
		if err != nil {
			fmt.Println(err)
			return
		}
		for _, name := range names {
			table, err := db.GetTable(name)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := table.Verify(); err != nil {
				fmt.Printf("%s: %v\n", name, err)
				continue
			}
			fmt.Printf("%s ok\n", name)
		}
	}
}
