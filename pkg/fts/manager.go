package fts

import "sync"

// Manager is the process-wide full-text search collaborator: one Index per
// (table, column) pair, matching the executor's search(table, column,
// query, language, query_type) -> row_ids surface. language and query_type
// are accepted for forward compatibility with the grammar but do not change
// scoring; this core only tokenizes on Unicode letter/digit boundaries and
// scores with BM25, regardless of declared language.
type Manager struct {
	mu      sync.Mutex
	indexes map[string]*Index
}

// NewManager creates an empty full-text search manager.
func NewManager() *Manager {
	return &Manager{indexes: make(map[string]*Index)}
}

func indexKey(table, column string) string {
	return table + "." + column
}

func (m *Manager) indexFor(table, column string, create bool) *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := indexKey(table, column)
	idx, ok := m.indexes[key]
	if !ok {
		if !create {
			return nil
		}
		idx = NewIndex()
		m.indexes[key] = idx
	}
	return idx
}

// AddDocument (re)indexes text under rowID within the index for (table,
// column), creating the index on first use.
func (m *Manager) AddDocument(table, column, rowID, text string) {
	m.indexFor(table, column, true).Index(rowID, text)
}

// RemoveDocument deletes rowID from the (table, column) index, if it exists.
func (m *Manager) RemoveDocument(table, column, rowID string) {
	if idx := m.indexFor(table, column, false); idx != nil {
		idx.Remove(rowID)
	}
}

// Search returns the set of row keys matching query against the (table,
// column) index. language and query_type are currently unused dimensions
// (see type doc). A table/column with no index yet (never indexed) matches
// nothing rather than erroring.
func (m *Manager) Search(table, column, query, language, queryType string) map[string]struct{} {
	idx := m.indexFor(table, column, false)
	if idx == nil {
		return nil
	}
	results := idx.Search(query)
	out := make(map[string]struct{}, len(results))
	for _, r := range results {
		out[r.DocID] = struct{}{}
	}
	return out
}

// DropTable removes every full-text index registered against table,
// called when the owning table is dropped.
func (m *Manager) DropTable(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := table + "."
	for key := range m.indexes {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(m.indexes, key)
		}
	}
}
