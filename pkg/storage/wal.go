package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrWALCorrupted is returned when a record's CRC or digest does not match.
	ErrWALCorrupted = errors.New("WAL is corrupted")
	// ErrWALClosed is returned by any operation on a closed WAL.
	ErrWALClosed = errors.New("WAL is closed")
)

// WALOpCode tags the kind of operation a WAL record carries.
type WALOpCode uint8

const (
	WALBegin    WALOpCode = 0
	WALCommit   WALOpCode = 1
	WALRollback WALOpCode = 2
	WALInsert   WALOpCode = 3
	WALUpdate   WALOpCode = 4
	WALDelete   WALOpCode = 5
	// WALSavepoint marks a savepoint's position in tx_id's pending record
	// buffer; Table carries the savepoint's name.
	WALSavepoint WALOpCode = 6
	// WALSavepointRollback discards every record tx_id buffered since the
	// named savepoint (and every savepoint mark created after it); Table
	// carries the savepoint's name.
	WALSavepointRollback WALOpCode = 7
)

// WALRecord is one write-ahead log entry: tx_id, timestamp, op_code,
// table_name, and an op-specific payload (msgpack-encoded row data for
// Insert/Update/Delete, empty otherwise). Table carries the savepoint name
// for Savepoint/SavepointRollback records rather than a table name.
type WALRecord struct {
	TxID      uint64
	Timestamp time.Time
	Op        WALOpCode
	Table     string
	Payload   []byte
}

// WAL is an append-only log of committed and in-flight transaction
// operations, replayed on restart to reconstruct committed state.
type WAL struct {
	file      *os.File
	mu        sync.Mutex
	bufWriter *bufio.Writer
	path      string
}

// OpenWAL opens or creates a WAL file, positioned for appending at the end.
func OpenWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	if _, err := file.Seek(0, 2); err != nil {
		file.Close()
		return nil, err
	}
	return &WAL{file: file, bufWriter: bufio.NewWriter(file), path: path}, nil
}

// Append writes one record to the log. Commit, Rollback, and
// SavepointRollback records are flushed and fsynced immediately, so a
// transaction's durability decision survives a crash the instant the
// caller observes success; other records are buffered and flushed
// opportunistically (following a Commit) for throughput, preserving
// atomic-append ordering: once a Commit record is durable, every prior
// record for that tx_id is too.
func (w *WAL) Append(record WALRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ErrWALClosed
	}

	buf := encodeWALRecord(record)
	digest := blake2b.Sum256(buf)
	crc := crc32.ChecksumIEEE(buf)

	if err := binary.Write(w.bufWriter, binary.LittleEndian, uint32(len(buf))); err != nil {
		return err
	}
	if _, err := w.bufWriter.Write(buf); err != nil {
		return err
	}
	if _, err := w.bufWriter.Write(digest[:]); err != nil {
		return err
	}
	if err := binary.Write(w.bufWriter, binary.LittleEndian, crc); err != nil {
		return err
	}

	if record.Op == WALCommit || record.Op == WALRollback || record.Op == WALSavepointRollback {
		if err := w.bufWriter.Flush(); err != nil {
			return err
		}
		return w.file.Sync()
	}
	return nil
}

// encodeWALRecord serializes a record's body (everything covered by the
// digest and CRC, i.e. everything but the length prefix and trailers).
func encodeWALRecord(r WALRecord) []byte {
	tableBytes := []byte(r.Table)
	buf := make([]byte, 8+8+1+2+len(tableBytes)+4+len(r.Payload))
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], r.TxID)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(r.Timestamp.UnixNano()))
	off += 8
	buf[off] = byte(r.Op)
	off++
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(tableBytes)))
	off += 2
	copy(buf[off:], tableBytes)
	off += len(tableBytes)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Payload)))
	off += 4
	copy(buf[off:], r.Payload)
	return buf
}

func decodeWALRecord(buf []byte) (WALRecord, error) {
	if len(buf) < 8+8+1+2+4 {
		return WALRecord{}, ErrWALCorrupted
	}
	off := 0
	txID := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	nanos := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	op := WALOpCode(buf[off])
	off++
	tableLen := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if len(buf) < off+tableLen+4 {
		return WALRecord{}, ErrWALCorrupted
	}
	table := string(buf[off : off+tableLen])
	off += tableLen
	payloadLen := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if len(buf) < off+payloadLen {
		return WALRecord{}, ErrWALCorrupted
	}
	payload := buf[off : off+payloadLen]
	return WALRecord{
		TxID:      txID,
		Timestamp: time.Unix(0, int64(nanos)),
		Op:        op,
		Table:     table,
		Payload:   payload,
	}, nil
}

// readRecord reads one length-prefixed record, verifying its digest and CRC.
func readRecord(reader *bufio.Reader) (WALRecord, error) {
	var length uint32
	if err := binary.Read(reader, binary.LittleEndian, &length); err != nil {
		return WALRecord{}, err
	}
	buf := make([]byte, length)
	if _, err := readFull(reader, buf); err != nil {
		return WALRecord{}, err
	}
	var digest [32]byte
	if _, err := readFull(reader, digest[:]); err != nil {
		return WALRecord{}, err
	}
	var storedCRC uint32
	if err := binary.Read(reader, binary.LittleEndian, &storedCRC); err != nil {
		return WALRecord{}, err
	}
	if crc32.ChecksumIEEE(buf) != storedCRC {
		return WALRecord{}, ErrWALCorrupted
	}
	if blake2b.Sum256(buf) != digest {
		return WALRecord{}, ErrWALCorrupted
	}
	return decodeWALRecord(buf)
}

func readFull(reader *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := reader.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// savepointMark records a savepoint's position in its transaction's
// pending record buffer, so a later SavepointRollback can truncate back
// to it during replay.
type savepointMark struct {
	name string
	pos  int
}

// Replay reads every record in the log from the beginning and invokes apply
// for each data record (Insert/Update/Delete) belonging to a transaction
// that reached Commit, in the order it was originally appended. Records
// belonging to a transaction that never committed — rolled back, or
// abandoned mid-write by a crash — are discarded: replay applies only
// committed transactions. A SavepointRollback record truncates its
// transaction's buffered records back to the named savepoint's position,
// discarding that savepoint and any created after it, mirroring
// rollback_to_savepoint's in-memory effect so replay does not resurrect
// writes the original session already discarded.
func (w *WAL) Replay(apply func(WALRecord) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ErrWALClosed
	}
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	defer w.file.Seek(0, 2)

	reader := bufio.NewReader(w.file)
	pending := make(map[uint64][]WALRecord)
	marks := make(map[uint64][]savepointMark)

	for {
		rec, err := readRecord(reader)
		if err != nil {
			break
		}
		switch rec.Op {
		case WALBegin:
			pending[rec.TxID] = nil
			delete(marks, rec.TxID)
		case WALCommit:
			for _, buffered := range pending[rec.TxID] {
				if err := apply(buffered); err != nil {
					return err
				}
			}
			delete(pending, rec.TxID)
			delete(marks, rec.TxID)
		case WALRollback:
			delete(pending, rec.TxID)
			delete(marks, rec.TxID)
		case WALSavepoint:
			marks[rec.TxID] = append(marks[rec.TxID], savepointMark{name: rec.Table, pos: len(pending[rec.TxID])})
		case WALSavepointRollback:
			stack := marks[rec.TxID]
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == rec.Table {
					pending[rec.TxID] = pending[rec.TxID][:stack[i].pos]
					marks[rec.TxID] = stack[:i]
					break
				}
			}
		case WALInsert, WALUpdate, WALDelete:
			pending[rec.TxID] = append(pending[rec.TxID], rec)
		}
	}
	return nil
}

// Truncate clears the log, used after a checkpoint has durably persisted
// every committed change to the backing store.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ErrWALClosed
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	w.bufWriter = bufio.NewWriter(w.file)
	return nil
}

// Close flushes and closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.bufWriter.Flush(); err != nil {
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}
