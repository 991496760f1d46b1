// Command txcore-server runs the transaction core behind a TCP listener
// speaking the wire protocol.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreflux/txcore/pkg/engine"
	"github.com/coreflux/txcore/pkg/server"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "data directory")
		address    = flag.String("addr", ":4200", "server address")
		inMemory   = flag.Bool("memory", false, "use in-memory storage")
		maxRetries = flag.Int("max-retries", 0, "deadlock-victim retry cap (0 = default)")
	)
	flag.Parse()

	opts := &engine.Options{
		InMemory:   *inMemory,
		MaxRetries: *maxRetries,
	}

	var dbPath string
	if *inMemory {
		dbPath = ":memory:"
	} else {
		dbPath = fmt.Sprintf("%s/txcore", *dataDir)
	}

	db, err := engine.Open(dbPath, opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("txcore server starting...")
	log.Printf("Data directory: %s", *dataDir)
	log.Printf("Listening on: %s", *address)

	srv, err := server.New(db, &server.Config{Address: *address})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		srv.Close()
	}()

	if err := srv.Listen(*address); err != nil {
		log.Printf("Server error: %v", err)
	}
}
