package server

import (
	"testing"

	"github.com/coreflux/txcore/pkg/engine"
	"github.com/coreflux/txcore/pkg/wire"
)

func newTestDB(t *testing.T) *engine.DB {
	t.Helper()
	db, err := engine.Open(":memory:", &engine.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}

// exec runs sql to completion inside its own transaction: BEGIN, the
// statement, COMMIT. Tests use this for every non-SELECT statement, since
// this core requires an explicit transaction for writes.
func exec(t *testing.T, db *engine.DB, sql string) {
	t.Helper()
	res, err := db.Execute(0, "BEGIN")
	if err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	txID := uint64(res.RowsAffected)
	if _, err := db.Execute(txID, sql); err != nil {
		t.Fatalf("Failed to execute %q: %v", sql, err)
	}
	if _, err := db.Execute(txID, "COMMIT"); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func TestNewServer(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	server, err := New(db, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if server == nil {
		t.Fatal("Server is nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Address != ":4200" {
		t.Errorf("Expected address ':4200', got %q", config.Address)
	}
}

func TestServerClose(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	server, err := New(db, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("Failed to close server: %v", err)
	}
	// Close again should not error.
	if err := server.Close(); err != nil {
		t.Fatalf("Failed to close server twice: %v", err)
	}
}

func TestServerWithNilConfig(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, err := New(db, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if srv == nil {
		t.Fatal("Server is nil")
	}
}

func TestHandlePing(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	response := client.handleMessage(wire.MsgPing, nil)
	if response != wire.MsgPong {
		t.Errorf("Expected Pong, got %v", response)
	}
}

func TestHandleUnknownMessage(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	response := client.handleMessage(wire.MsgType(99), nil)
	errMsg, ok := response.(*wire.ErrorMessage)
	if !ok {
		t.Fatal("Expected error message")
	}
	if errMsg.Code != 3 {
		t.Errorf("Expected error code 3, got %d", errMsg.Code)
	}
}

func TestHandleInvalidQueryMessage(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	response := client.handleMessage(wire.MsgQuery, []byte{0xFF, 0xFE})
	errMsg, ok := response.(*wire.ErrorMessage)
	if !ok {
		t.Fatal("Expected error message")
	}
	if errMsg.Code != 2 {
		t.Errorf("Expected error code 2, got %d", errMsg.Code)
	}
}

func TestHandleQueryBeginAndCreate(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	beginPayload, _ := wire.Encode(wire.NewQueryMessage(0, "BEGIN"))
	beginResp := client.handleMessage(wire.MsgQuery, beginPayload)
	okMsg, ok := beginResp.(*wire.OKMessage)
	if !ok {
		t.Fatalf("Expected OK message for BEGIN, got %T", beginResp)
	}
	txID := okMsg.TxID

	createPayload, _ := wire.Encode(wire.NewQueryMessage(txID, "CREATE TABLE t (id INTEGER PRIMARY KEY)"))
	createResp := client.handleMessage(wire.MsgQuery, createPayload)
	if _, ok := createResp.(*wire.OKMessage); !ok {
		t.Fatalf("Expected OK message for CREATE, got %T", createResp)
	}

	commitPayload, _ := wire.Encode(wire.NewQueryMessage(txID, "COMMIT"))
	commitResp := client.handleMessage(wire.MsgQuery, commitPayload)
	if _, ok := commitResp.(*wire.OKMessage); !ok {
		t.Fatalf("Expected OK message for COMMIT, got %T", commitResp)
	}
}

func TestHandleQueryInsertAndSelect(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	exec(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	exec(t, db, "INSERT INTO test VALUES (1, 'Alice')")

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	payload, _ := wire.Encode(wire.NewQueryMessage(0, "SELECT id, name FROM test"))
	response := client.handleMessage(wire.MsgQuery, payload)
	resultMsg, ok := response.(*wire.ResultMessage)
	if !ok {
		t.Fatalf("Expected Result message, got %T", response)
	}
	if len(resultMsg.Columns) != 2 {
		t.Errorf("Expected 2 columns, got %d", len(resultMsg.Columns))
	}
	if len(resultMsg.Rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(resultMsg.Rows))
	}
}

func TestHandleQueryError(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	payload, _ := wire.Encode(wire.NewQueryMessage(0, "SELECT * FROM nonexistent"))
	response := client.handleMessage(wire.MsgQuery, payload)
	errMsg, ok := response.(*wire.ErrorMessage)
	if !ok {
		t.Fatal("Expected error message")
	}
	if errMsg.Code == 0 {
		t.Error("Expected non-zero error code")
	}
}

func TestRemoveClient(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	srv, _ := New(db, nil)
	srv.mu.Lock()
	srv.clients[1] = &ClientConn{ID: 1}
	srv.mu.Unlock()

	srv.removeClient(1)

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	if _, exists := srv.clients[1]; exists {
		t.Error("Client should have been removed")
	}
}

func TestHandleQueryUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	exec(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	exec(t, db, "INSERT INTO test VALUES (1, 'Alice', 25)")
	exec(t, db, "INSERT INTO test VALUES (2, 'Bob', 30)")

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	beginPayload, _ := wire.Encode(wire.NewQueryMessage(0, "BEGIN"))
	beginResp := client.handleMessage(wire.MsgQuery, beginPayload)
	txID := beginResp.(*wire.OKMessage).TxID

	updatePayload, _ := wire.Encode(wire.NewQueryMessage(txID, "UPDATE test SET age = 26 WHERE name = 'Alice'"))
	updateResp := client.handleMessage(wire.MsgQuery, updatePayload)
	okMsg, ok := updateResp.(*wire.OKMessage)
	if !ok {
		t.Fatalf("Expected OK message, got %T", updateResp)
	}
	if okMsg.RowsAffected != 1 {
		t.Errorf("Expected 1 row affected, got %d", okMsg.RowsAffected)
	}

	deletePayload, _ := wire.Encode(wire.NewQueryMessage(txID, "DELETE FROM test WHERE age > 28"))
	deleteResp := client.handleMessage(wire.MsgQuery, deletePayload)
	okMsg, ok = deleteResp.(*wire.OKMessage)
	if !ok {
		t.Fatalf("Expected OK message, got %T", deleteResp)
	}
	if okMsg.RowsAffected != 1 {
		t.Errorf("Expected 1 row deleted, got %d", okMsg.RowsAffected)
	}

	commitPayload, _ := wire.Encode(wire.NewQueryMessage(txID, "COMMIT"))
	client.handleMessage(wire.MsgQuery, commitPayload)
}

func TestHandleQueryEmptyResult(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	exec(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	exec(t, db, "INSERT INTO test VALUES (1, 'Alice')")

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	payload, _ := wire.Encode(wire.NewQueryMessage(0, "SELECT * FROM test WHERE name = 'Nobody'"))
	response := client.handleMessage(wire.MsgQuery, payload)
	resultMsg, ok := response.(*wire.ResultMessage)
	if !ok {
		t.Fatalf("Expected Result message, got %T", response)
	}
	if len(resultMsg.Rows) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(resultMsg.Rows))
	}
}

func TestHandleDropTable(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	exec(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY)")
	exec(t, db, "DROP TABLE test")

	srv, _ := New(db, nil)
	client := &ClientConn{ID: 1, Server: srv}

	payload, _ := wire.Encode(wire.NewQueryMessage(0, "SELECT * FROM test"))
	response := client.handleMessage(wire.MsgQuery, payload)
	if _, ok := response.(*wire.ErrorMessage); !ok {
		t.Fatalf("Expected error message after dropping table, got %T", response)
	}
}

func TestHandleCreateIndex(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	exec(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	exec(t, db, "CREATE INDEX idx_name ON test(name)")

	srv, _ := New(db, nil)
	if srv == nil {
		t.Fatal("Server is nil")
	}
}
