// Package server drives the wire protocol over a txcore engine.DB: one
// TCP listener, one goroutine per client connection, each client issuing
// SQL statements tagged with the transaction ID they run against.
package server

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/coreflux/txcore/pkg/engine"
	"github.com/coreflux/txcore/pkg/wire"
)

var ErrServerClosed = errors.New("server is closed")

// Server accepts client connections and dispatches their queries against db.
type Server struct {
	listener net.Listener
	db       *engine.DB
	clients  map[uint64]*ClientConn
	nextID   uint64
	mu       sync.RWMutex
	closed   bool
}

// Config configures a Server.
type Config struct {
	Address string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{Address: ":4200"}
}

// New creates a Server bound to db. Listen must be called to start serving.
func New(db *engine.DB, config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		db:      db,
		clients: make(map[uint64]*ClientConn),
	}, nil
}

// Listen opens address and serves connections until Close is called.
func (s *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	return s.acceptLoop()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			return err
		}

		s.mu.Lock()
		s.nextID++
		clientID := s.nextID
		client := &ClientConn{
			ID:     clientID,
			Conn:   conn,
			Server: s,
			reader: bufio.NewReader(conn),
		}
		s.clients[clientID] = client
		s.mu.Unlock()

		go client.Handle()
	}
}

// Close closes every client connection and the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, client := range s.clients {
		client.Conn.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	return nil
}

func (s *Server) removeClient(id uint64) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

// ClientConn is one accepted connection and its framing state.
type ClientConn struct {
	ID     uint64
	Conn   net.Conn
	Server *Server
	reader *bufio.Reader
}

// Handle reads length-prefixed requests off the connection until EOF or
// a framing error, dispatching each to handleMessage.
func (c *ClientConn) Handle() {
	defer func() {
		c.Conn.Close()
		c.Server.removeClient(c.ID)
	}()

	for {
		var length uint32
		if err := binary.Read(c.reader, binary.LittleEndian, &length); err != nil {
			if err == io.EOF {
				return
			}
			return
		}

		msgType, err := c.reader.ReadByte()
		if err != nil {
			return
		}

		payload := make([]byte, length-1)
		if _, err := io.ReadFull(c.reader, payload); err != nil {
			return
		}

		response := c.handleMessage(wire.MsgType(msgType), payload)
		if err := c.sendMessage(response); err != nil {
			return
		}
	}
}

func (c *ClientConn) handleMessage(msgType wire.MsgType, payload []byte) interface{} {
	switch msgType {
	case wire.MsgPing:
		return wire.MsgPong

	case wire.MsgQuery:
		var q wire.QueryMessage
		if err := wire.Decode(payload, &q); err != nil {
			return wire.NewErrorMessage(2, err.Error())
		}
		return c.handleQuery(&q)

	default:
		return wire.NewErrorMessage(3, fmt.Sprintf("unknown message type: %d", msgType))
	}
}

func (c *ClientConn) handleQuery(q *wire.QueryMessage) interface{} {
	res, err := c.Server.db.Execute(q.TxID, q.SQL)
	if err != nil {
		return wire.NewErrorMessage(4, err.Error())
	}
	if res == nil {
		return wire.NewOKMessage(q.TxID, 0)
	}
	if res.Columns != nil {
		rows := make([][]interface{}, len(res.Rows))
		for i, row := range res.Rows {
			out := make([]interface{}, len(row))
			for j, v := range row {
				out[j] = v.Interface()
			}
			rows[i] = out
		}
		return wire.NewResultMessage(res.Columns, rows)
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(q.SQL)), "BEGIN") {
		// BEGIN reports the new transaction's ID in RowsAffected.
		return wire.NewOKMessage(uint64(res.RowsAffected), int64(res.RowsAffected))
	}
	return wire.NewOKMessage(q.TxID, int64(res.RowsAffected))
}

func (c *ClientConn) sendMessage(msg interface{}) error {
	var msgType wire.MsgType
	var payload interface{}

	switch m := msg.(type) {
	case wire.MsgType:
		msgType = m
		payload = nil
	case *wire.ResultMessage:
		msgType = wire.MsgResult
		payload = m
	case *wire.OKMessage:
		msgType = wire.MsgOK
		payload = m
	case *wire.ErrorMessage:
		msgType = wire.MsgError
		payload = m
	default:
		return fmt.Errorf("unknown message type: %T", msg)
	}

	var payData []byte
	var err error
	if payload != nil {
		payData, err = wire.Encode(payload)
		if err != nil {
			return err
		}
	}

	length := uint32(1 + len(payData))
	if err := binary.Write(c.Conn, binary.LittleEndian, length); err != nil {
		return err
	}
	if err := binary.Write(c.Conn, binary.LittleEndian, msgType); err != nil {
		return err
	}
	if len(payData) > 0 {
		if _, err := c.Conn.Write(payData); err != nil {
			return err
		}
	}
	return nil
}
