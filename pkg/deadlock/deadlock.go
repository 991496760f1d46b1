// Package deadlock implements wait-for graph cycle detection for the lock
// manager: every time a transaction blocks on a table held by another, an
// edge is recorded; a cycle means a deadlock, resolved by aborting the
// youngest (highest tx_id) transaction on the cycle.
package deadlock

import "sync"

// Detector tracks wait-for edges between transactions.
type Detector struct {
	mu    sync.Mutex
	waits map[uint64]map[uint64]string // waiter -> holder -> table
}

// New creates an empty deadlock detector.
func New() *Detector {
	return &Detector{waits: make(map[uint64]map[uint64]string)}
}

// AddWait records that waiter is blocked on a resource held by holder.
func (d *Detector) AddWait(waiter, holder uint64, table string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if waiter == holder {
		return
	}
	edges, ok := d.waits[waiter]
	if !ok {
		edges = make(map[uint64]string)
		d.waits[waiter] = edges
	}
	edges[holder] = table
}

// RemoveTransaction drops every wait edge involving txID, as waiter or holder.
func (d *Detector) RemoveTransaction(txID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waits, txID)
	for waiter, edges := range d.waits {
		delete(edges, txID)
		if len(edges) == 0 {
			delete(d.waits, waiter)
		}
	}
}

// RemoveWaitsFrom drops every edge where txID is the waiter, leaving intact
// any edge where txID is the holder another transaction is blocked on. The
// lock-acquisition loop calls this after every attempt (success or
// failure) to clear its own wait edges without erasing a concurrent
// waiter's view of txID as a holder.
func (d *Detector) RemoveWaitsFrom(txID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waits, txID)
}

// DetectDeadlock runs a DFS cycle search over the wait-for graph restricted
// to the given active transaction IDs. If a cycle exists, it returns the
// highest (youngest) tx_id participating in it, the conventional victim
// choice for this core, and true. With no cycle it returns (0, false).
func (d *Detector) DetectDeadlock(active []uint64) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	activeSet := make(map[uint64]bool, len(active))
	for _, tx := range active {
		activeSet[tx] = true
	}

	visited := make(map[uint64]int) // 0 = unvisited, 1 = in stack, 2 = done
	var cyclePath []uint64
	var dfs func(node uint64) bool
	dfs = func(node uint64) bool {
		visited[node] = 1
		cyclePath = append(cyclePath, node)
		for next := range d.waits[node] {
			if !activeSet[next] {
				continue
			}
			switch visited[next] {
			case 1:
				cyclePath = append(cyclePath, next)
				return true
			case 0:
				if dfs(next) {
					return true
				}
			}
		}
		visited[node] = 2
		cyclePath = cyclePath[:len(cyclePath)-1]
		return false
	}

	for waiter := range d.waits {
		if !activeSet[waiter] || visited[waiter] != 0 {
			continue
		}
		cyclePath = nil
		if dfs(waiter) {
			return victimOf(cyclePath), true
		}
	}
	return 0, false
}

// victimOf returns the highest tx_id among the cycle segment of path (the
// portion from the repeated node to the end).
func victimOf(path []uint64) uint64 {
	if len(path) == 0 {
		return 0
	}
	repeat := path[len(path)-1]
	start := 0
	for i, tx := range path {
		if tx == repeat {
			start = i
			break
		}
	}
	victim := path[start]
	for _, tx := range path[start:] {
		if tx > victim {
			victim = tx
		}
	}
	return victim
}
