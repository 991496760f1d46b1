package storage

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/coreflux/txcore/pkg/catalog"
)

// EncodeRow msgpack-encodes a row for use as a WALRecord payload.
func EncodeRow(row catalog.Row) ([]byte, error) {
	return msgpack.Marshal(row)
}

// DecodeRow decodes a WALRecord payload produced by EncodeRow.
func DecodeRow(buf []byte) (catalog.Row, error) {
	var row catalog.Row
	if err := msgpack.Unmarshal(buf, &row); err != nil {
		return nil, err
	}
	return row, nil
}
