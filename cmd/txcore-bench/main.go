// Command txcore-bench times representative single- and multi-row
// workloads against the transaction core, one statement or one batch
// per transaction as noted per benchmark.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/coreflux/txcore/pkg/engine"
)

var (
	flagHelp       bool
	flagInMemory   bool
	flagPath       string
	flagRows       int
	flagBenchmarks string
)

func init() {
	flag.BoolVar(&flagHelp, "help", false, "Show help")
	flag.BoolVar(&flagHelp, "h", false, "Show help (short)")
	flag.BoolVar(&flagInMemory, "memory", true, "Use in-memory database")
	flag.StringVar(&flagPath, "path", ":memory:", "Database path")
	flag.IntVar(&flagRows, "rows", 10000, "Number of rows for benchmarks")
	flag.StringVar(&flagBenchmarks, "bench", "all", "Benchmarks to run: all, insert, select, update, delete, transaction")
}

func main() {
	flag.Parse()

	if flagHelp {
		printHelp()
		os.Exit(0)
	}
	runBenchmarks()
}

func printHelp() {
	fmt.Print(`
txcore Benchmark Tool

Usage:
  txcore-bench [options]

Options:
  -h, -help           Show this help message
  -memory             Use in-memory database (default: true)
  -path <path>        Database file path
  -rows <n>           Number of rows (default: 10000)
  -bench <name>       Benchmark to run: all, insert, select, update, delete, transaction

Examples:
  txcore-bench
  txcore-bench -rows 50000
  txcore-bench -bench insert
`)
}

// bench wraps one db.Execute call, begin/commit-ing a new transaction
// around it.
type bench struct {
	db *engine.DB
}

func (b *bench) autoExec(sql string) {
	res, err := b.db.Execute(0, "BEGIN")
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin error: %v\n", err)
		return
	}
	tx := uint64(res.RowsAffected)
	if _, err := b.db.Execute(tx, sql); err != nil {
		fmt.Fprintf(os.Stderr, "exec error (%q): %v\n", sql, err)
		b.db.RollbackTransaction(tx)
		return
	}
	if err := b.db.CommitTransaction(tx); err != nil {
		fmt.Fprintf(os.Stderr, "commit error: %v\n", err)
	}
}

func runBenchmarks() {
	fmt.Printf("txcore Benchmark Tool\n")
	fmt.Printf("======================\n")
	fmt.Printf("Rows: %d\n", flagRows)
	mode := "disk"
	if flagInMemory {
		mode = "in-memory"
	}
	fmt.Printf("Mode: %s\n\n", mode)

	db, err := engine.Open(flagPath, &engine.Options{InMemory: flagInMemory})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	b := &bench{db: db}

	switch flagBenchmarks {
	case "all":
		runInsertBenchmark(b)
		runSelectBenchmark(b)
		runUpdateBenchmark(b)
		runDeleteBenchmark(b)
		runTransactionBenchmark(b)
	case "insert":
		runInsertBenchmark(b)
	case "select":
		runSelectBenchmark(b)
	case "update":
		runUpdateBenchmark(b)
	case "delete":
		runDeleteBenchmark(b)
	case "transaction":
		runTransactionBenchmark(b)
	default:
		fmt.Printf("Unknown benchmark: %s\n", flagBenchmarks)
	}
}

func runInsertBenchmark(b *bench) {
	fmt.Println("=== INSERT Benchmark ===")

	b.autoExec("DROP TABLE IF EXISTS bench_insert")
	b.autoExec("CREATE TABLE bench_insert (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")

	start := time.Now()
	for i := 0; i < flagRows; i++ {
		b.autoExec(fmt.Sprintf("INSERT INTO bench_insert VALUES (%d, 'user-%d', %d)", i, i, i%100))
	}
	elapsed := time.Since(start)

	ops := float64(flagRows) / elapsed.Seconds()
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n", ops)
	fmt.Printf("Avg time/op: %.2f ns\n\n", float64(elapsed.Nanoseconds())/float64(flagRows))
}

func runSelectBenchmark(b *bench) {
	fmt.Println("=== SELECT Benchmark ===")

	b.autoExec("DROP TABLE IF EXISTS bench_select")
	b.autoExec("CREATE TABLE bench_select (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	for i := 0; i < flagRows; i++ {
		b.autoExec(fmt.Sprintf("INSERT INTO bench_select VALUES (%d, 'user-%d', %d)", i, i, i%100))
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if _, err := b.db.Execute(0, "SELECT * FROM bench_select"); err != nil {
			fmt.Fprintf(os.Stderr, "select error: %v\n", err)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(100)/elapsed.Seconds())

	fmt.Println("=== SELECT with WHERE ===")
	start = time.Now()
	for i := 0; i < 100; i++ {
		if _, err := b.db.Execute(0, "SELECT * FROM bench_select WHERE age > 50"); err != nil {
			fmt.Fprintf(os.Stderr, "select error: %v\n", err)
		}
	}
	elapsed = time.Since(start)
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(100)/elapsed.Seconds())
}

func runUpdateBenchmark(b *bench) {
	fmt.Println("=== UPDATE Benchmark ===")

	b.autoExec("DROP TABLE IF EXISTS bench_update")
	b.autoExec("CREATE TABLE bench_update (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	for i := 0; i < flagRows; i++ {
		b.autoExec(fmt.Sprintf("INSERT INTO bench_update VALUES (%d, 'user-%d', %d)", i, i, i%100))
	}

	start := time.Now()
	for i := 0; i < 1000; i++ {
		b.autoExec(fmt.Sprintf("UPDATE bench_update SET age = %d WHERE id = %d", i+1000, i))
	}
	elapsed := time.Since(start)
	fmt.Printf("Single row - Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(1000)/elapsed.Seconds())

	start = time.Now()
	b.autoExec("UPDATE bench_update SET age = 999 WHERE age < 50")
	elapsed = time.Since(start)
	fmt.Printf("Multi row (all age < 50) - Time: %v\n\n", elapsed)
}

func runDeleteBenchmark(b *bench) {
	fmt.Println("=== DELETE Benchmark ===")

	b.autoExec("DROP TABLE IF EXISTS bench_delete")
	b.autoExec("CREATE TABLE bench_delete (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	for i := 0; i < flagRows; i++ {
		b.autoExec(fmt.Sprintf("INSERT INTO bench_delete VALUES (%d, 'user-%d', %d)", i, i, i%100))
	}

	start := time.Now()
	for i := 0; i < 1000; i++ {
		b.autoExec(fmt.Sprintf("DELETE FROM bench_delete WHERE id = %d", i))
		b.autoExec(fmt.Sprintf("INSERT INTO bench_delete VALUES (%d, 'user-%d', %d)", i, i, i%100))
	}
	elapsed := time.Since(start)
	fmt.Printf("Single row - Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(1000)/elapsed.Seconds())

	start = time.Now()
	b.autoExec("DELETE FROM bench_delete WHERE age < 50")
	elapsed = time.Since(start)
	fmt.Printf("Multi row (all age < 50) - Time: %v\n\n", elapsed)
}

func runTransactionBenchmark(b *bench) {
	fmt.Println("=== TRANSACTION Benchmark ===")

	b.autoExec("DROP TABLE IF EXISTS bench_tx")
	b.autoExec("CREATE TABLE bench_tx (id INTEGER PRIMARY KEY, name TEXT)")

	start := time.Now()
	for i := 0; i < 1000; i++ {
		b.autoExec(fmt.Sprintf("INSERT INTO bench_tx VALUES (%d, 'user-%d')", i, i))
	}
	elapsed := time.Since(start)
	fmt.Printf("Auto-commit - Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n\n", float64(1000)/elapsed.Seconds())

	b.autoExec("DELETE FROM bench_tx")
	start = time.Now()
	res, err := b.db.Execute(0, "BEGIN")
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin error: %v\n", err)
		return
	}
	tx := uint64(res.RowsAffected)
	for i := 0; i < 1000; i++ {
		if _, err := b.db.Execute(tx, fmt.Sprintf("INSERT INTO bench_tx VALUES (%d, 'user-%d')", i, i)); err != nil {
			fmt.Fprintf(os.Stderr, "insert error: %v\n", err)
			b.db.RollbackTransaction(tx)
			return
		}
	}
	if err := b.db.CommitTransaction(tx); err != nil {
		fmt.Fprintf(os.Stderr, "commit error: %v\n", err)
	}
	elapsed = time.Since(start)
	fmt.Printf("Batch (1000 rows) - Time: %v\n\n", elapsed)
}
