// Package wire defines the length-prefixed MessagePack protocol spoken
// between a txcore client and pkg/server: one SQL statement per request,
// tagged with the transaction ID it runs against.
package wire

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgType identifies the kind of payload that follows a message's header.
type MsgType uint8

const (
	MsgQuery  MsgType = 0x01 // SQL statement, run against TxID (0 = committed read)
	MsgResult MsgType = 0x10 // rows from a SELECT
	MsgOK     MsgType = 0x11 // statement succeeded, no rows
	MsgError  MsgType = 0x12 // statement failed
	MsgPing   MsgType = 0x20
	MsgPong   MsgType = 0x21
)

// Message is the outer envelope: Type selects how Payload decodes.
type Message struct {
	Type    MsgType
	Payload []byte
}

// QueryMessage carries one SQL statement to execute. TxID is 0 for a
// statement that should run against committed storage directly (only
// valid for SELECT) or the ID returned by a prior BEGIN for anything
// that must run inside a transaction.
type QueryMessage struct {
	SQL  string `msgpack:"sql"`
	TxID uint64 `msgpack:"tx_id"`
}

// ResultMessage carries the rows produced by a SELECT.
type ResultMessage struct {
	Columns []string        `msgpack:"cols"`
	Rows    [][]interface{} `msgpack:"rows"`
	Count   int64           `msgpack:"count"`
}

// OKMessage carries the outcome of a non-SELECT statement. TxID is set
// when the statement was a BEGIN, so the client learns the new
// transaction's ID; otherwise it echoes the TxID the statement ran
// against (0 for committed-read statements).
type OKMessage struct {
	TxID         uint64 `msgpack:"tx_id"`
	RowsAffected int64  `msgpack:"rows_affected"`
}

// ErrorMessage carries a failed statement's error text.
type ErrorMessage struct {
	Code    int    `msgpack:"code"`
	Message string `msgpack:"message"`
}

// Encode MessagePack-encodes v.
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode MessagePack-decodes data into v.
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// EncodeMessage wraps payload in a Message of the given type and encodes it.
func EncodeMessage(msgType MsgType, payload interface{}) ([]byte, error) {
	pay, err := Encode(payload)
	if err != nil {
		return nil, err
	}
	return Encode(Message{Type: msgType, Payload: pay})
}

// DecodeMessage decodes a complete Message envelope.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := Decode(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewQueryMessage builds a query request.
func NewQueryMessage(txID uint64, sql string) *QueryMessage {
	return &QueryMessage{SQL: sql, TxID: txID}
}

// NewResultMessage builds a result response from column names and rows.
func NewResultMessage(columns []string, rows [][]interface{}) *ResultMessage {
	return &ResultMessage{Columns: columns, Rows: rows, Count: int64(len(rows))}
}

// NewOKMessage builds a success response.
func NewOKMessage(txID uint64, rowsAffected int64) *OKMessage {
	return &OKMessage{TxID: txID, RowsAffected: rowsAffected}
}

// NewErrorMessage builds an error response.
func NewErrorMessage(code int, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}
