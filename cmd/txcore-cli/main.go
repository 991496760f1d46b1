// Command txcore-cli is an interactive and single-shot SQL client for
// the transaction core: statements run inside an explicit transaction
// the user manages with BEGIN/COMMIT/ROLLBACK, or are auto-wrapped one
// statement per transaction when none is open.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/coreflux/txcore/pkg/engine"
	"github.com/coreflux/txcore/pkg/txn"
)

var (
	flagHelp     bool
	flagInMemory bool
	flagPath     string
)

func init() {
	flag.BoolVar(&flagHelp, "help", false, "Show help")
	flag.BoolVar(&flagHelp, "h", false, "Show help (short)")
	flag.BoolVar(&flagInMemory, "memory", false, "Use in-memory database")
	flag.StringVar(&flagPath, "path", ":memory:", "Database path (default: :memory:)")
}

func main() {
	flag.Parse()

	if flagHelp {
		printHelp()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		runInteractive(flagPath, flagInMemory)
		return
	}
	runCommand(strings.Join(args, " "), flagPath, flagInMemory)
}

func printHelp() {
	fmt.Print(`
txcore CLI

Usage:
  txcore-cli [options] [sql-command...]
  txcore-cli [options]               # interactive mode

Options:
  -h, -help           Show this help message
  -memory             Use an in-memory database (ephemeral)
  -path <path>        Database file path (default: :memory:)

SQL Commands:
  DDL:
    CREATE TABLE <name> (<columns>)
    CREATE INDEX <name> ON <table>(<column>)
    DROP TABLE <name>

  DML:
    INSERT INTO <table> VALUES (<values>)
    SELECT <cols> FROM <table> [WHERE <cond>]
    UPDATE <table> SET <col>=<val> [WHERE <cond>]
    DELETE FROM <table> [WHERE <cond>]

  Transactions:
    BEGIN [READ COMMITTED | REPEATABLE READ | SERIALIZABLE]
    COMMIT
    ROLLBACK [TO SAVEPOINT <name>]
    SAVEPOINT <name>
    RELEASE SAVEPOINT <name>

A statement issued with no open BEGIN runs in its own single-statement
transaction (SELECT runs directly against committed storage).

Interactive Commands:
  .quit, .exit         Exit CLI
  .help                Show this help
`)
}

func openDB(path string, inMemory bool) *engine.DB {
	db, err := engine.Open(path, &engine.Options{InMemory: inMemory})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func runCommand(sql string, path string, inMemory bool) {
	db := openDB(path, inMemory)
	defer db.Close()

	session := &session{db: db}
	session.run(sql)
}

func runInteractive(path string, inMemory bool) {
	db := openDB(path, inMemory)
	defer db.Close()

	session := &session{db: db}
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("txcore interactive CLI")
	fmt.Println("Type '.help' for commands, '.quit' to exit")
	fmt.Println()

	for {
		if session.txID != 0 {
			fmt.Printf("txcore(tx=%d)> ", session.txID)
		} else {
			fmt.Print("txcore> ")
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if handleMetaCommand(line) {
				continue
			}
			continue
		}
		session.run(line)
	}
}

func handleMetaCommand(line string) bool {
	switch strings.ToLower(line) {
	case ".quit", ".exit":
		fmt.Println("Goodbye!")
		os.Exit(0)
	case ".help":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", line)
	}
	return true
}

// session tracks the CLI's current open transaction, if any.
type session struct {
	db   *engine.DB
	txID uint64
}

func (s *session) run(sql string) {
	sql = strings.TrimSpace(sql)
	upper := strings.ToUpper(sql)

	targetTx := s.txID
	autoCommit := false
	isTxControl := strings.HasPrefix(upper, "BEGIN") || strings.HasPrefix(upper, "COMMIT") || strings.HasPrefix(upper, "ROLLBACK")
	if targetTx == 0 && !strings.HasPrefix(upper, "SELECT") && !isTxControl {
		res, err := s.db.Execute(0, "BEGIN")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		targetTx = uint64(res.RowsAffected)
		autoCommit = true
	}

	result, err := s.db.Execute(targetTx, sql)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if autoCommit {
			s.db.RollbackTransaction(targetTx)
		}
		return
	}

	switch {
	case strings.HasPrefix(upper, "BEGIN"):
		s.txID = uint64(result.RowsAffected)
		fmt.Printf("Transaction %d started\n", s.txID)
		return
	case strings.HasPrefix(upper, "COMMIT"):
		s.txID = 0
		fmt.Println("OK")
		return
	case strings.HasPrefix(upper, "ROLLBACK"):
		if !strings.Contains(upper, "SAVEPOINT") {
			s.txID = 0
		}
		fmt.Println("OK")
		return
	}

	if autoCommit {
		if err := s.db.CommitTransaction(targetTx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
	}

	printResult(result)
}

func printResult(result *txn.Result) {
	if result.Columns != nil {
		for i, col := range result.Columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(col)
		}
		fmt.Println()
		for _, row := range result.Rows {
			for i, v := range row {
				if i > 0 {
					fmt.Print("\t")
				}
				fmt.Print(v.String())
			}
			fmt.Println()
		}
		return
	}
	if result.RowsAffected > 0 {
		fmt.Printf("Rows affected: %d\n", result.RowsAffected)
		return
	}
	fmt.Println("OK")
}
