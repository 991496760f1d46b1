package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflux/txcore/pkg/catalog"
)

func TestReadYourOwnWrites(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1), catalog.TextValue("a")}))
	row, ok := m.ReadCommitted(1, "users/0/1")
	require.True(t, ok)
	assert.Equal(t, catalog.TextValue("a"), row[1])
}

func TestCommitMakesVersionVisibleToOthers(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1)}))
	_, ok := m.ReadCommitted(2, "users/0/1")
	assert.False(t, ok)
	require.NoError(t, m.Commit(1))
	row, ok := m.ReadCommitted(2, "users/0/1")
	require.True(t, ok)
	assert.Equal(t, catalog.IntegerValue(1), row[0])
}

func TestWriteConflictBetweenConcurrentUncommittedWriters(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	m.BeginTransaction(2)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1)}))

	err := m.Write(2, "users/0/1", catalog.Row{catalog.IntegerValue(2)})
	assert.ErrorIs(t, err, ErrWriteConflict)
}

func TestFirstCommitterWinsSurfacesAtCommit(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	m.BeginTransaction(2)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1)}))
	require.NoError(t, m.Commit(1))

	// tx2's snapshot predates tx1's commit, so its write on the same key is
	// staged successfully (no other pending writer), but committing it must
	// fail: tx1 already committed a newer version of the same key.
	require.NoError(t, m.Write(2, "users/0/1", catalog.Row{catalog.IntegerValue(2)}))
	err := m.Commit(2)
	assert.ErrorIs(t, err, ErrSerializationFailure)
}

func TestRollbackDiscardsPendingWrite(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1)}))
	m.Rollback(1)
	_, ok := m.ReadCommitted(1, "users/0/1")
	assert.False(t, ok)
	assert.False(t, m.IsActive(1))
}

func TestDeleteTombstonesRow(t *testing.T) {
	m := New()
	m.BeginTransaction(1)
	require.NoError(t, m.Write(1, "users/0/1", catalog.Row{catalog.IntegerValue(1)}))
	require.NoError(t, m.Commit(1))

	m.BeginTransaction(2)
	require.NoError(t, m.Delete(2, "users/0/1"))
	require.NoError(t, m.Commit(2))

	_, ok := m.ReadCommitted(3, "users/0/1")
	assert.False(t, ok)
}
