// Package node implements the table of known peers: upsert on hello,
// timeout-based eviction, insertion-ordered iteration.
package node

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"
)

// Key identifies a node: the pair (pid, iid) together form the table key.
type Key struct {
	PID string
	IID string
}

// Data is the peer-asserted payload carried in every hello.
type Data struct {
	IsMaster         bool            `json:"isMaster"`
	IsMasterEligible bool            `json:"isMasterEligible"`
	Weight           float64         `json:"weight"`
	Address          string          `json:"address"`
	Advertisement    json.RawMessage `json:"advertisement,omitempty"`
}

// Node is a known peer.
type Node struct {
	Key

	Address  string // observed source IP of the last hello
	Port     int    // observed source port of the last hello
	Hostname string
	LastSeen int64 // wall-clock seconds
	Data     Data
}

// Table is the ordered collection of known peers, keyed by (pid,iid).
// Removal given a node reference is O(1); iteration order equals insertion
// order. A single lock protects the whole table, matching the "nodes lock"
// from the concurrency model.
type Table struct {
	mu    sync.Mutex
	order *list.List // of *Node, insertion order
	index map[Key]*list.Element
}

// New creates an empty node table.
func New() *Table {
	return &Table{
		order: list.New(),
		index: make(map[Key]*list.Element),
	}
}

// Upsert inserts a new node or updates an existing one, returning the
// stored node, whether it was newly created, and whether it was already
// reporting as master before this update (used by the dispatcher to decide
// whether the `master` observer should fire).
func (t *Table) Upsert(key Key, observedIP string, observedPort int, hostname string, data Data, now int64) (n Node, wasNew bool, wasMasterBefore bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.index[key]; ok {
		existing := el.Value.(*Node)
		wasMasterBefore = existing.Data.IsMaster
		existing.Address = observedIP
		existing.Port = observedPort
		existing.Hostname = hostname
		existing.LastSeen = now
		existing.Data = data
		return *existing, false, wasMasterBefore
	}

	created := &Node{
		Key:      key,
		Address:  observedIP,
		Port:     observedPort,
		Hostname: hostname,
		LastSeen: now,
		Data:     data,
	}
	el := t.order.PushBack(created)
	t.index[key] = el
	return *created, true, false
}

// Get returns the node for key, if present.
func (t *Table) Get(key Key) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.index[key]
	if !ok {
		return Node{}, false
	}
	return *el.Value.(*Node), true
}

// Len returns the number of nodes currently in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Iterate calls fn for every node, in insertion order. fn must not mutate
// the table.
func (t *Table) Iterate(fn func(Node)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for el := t.order.Front(); el != nil; el = el.Next() {
		fn(*el.Value.(*Node))
	}
}

// applicableTimeout returns T (in milliseconds) for a node given whether it
// currently claims to be master.
func applicableTimeout(n *Node, nodeTimeoutMs, masterTimeoutMs int) int {
	if n.Data.IsMaster {
		return masterTimeoutMs
	}
	return nodeTimeoutMs
}

// shouldEvict evicts a node iff it is dated in the future relative to now
// (clock-skew guard), or iff now - last_seen exceeds T/1000 seconds, where
// T is in milliseconds. The comparison is intentionally coarse: T is
// truncated to whole seconds.
func shouldEvict(n *Node, now int64, nodeTimeoutMs, masterTimeoutMs int) bool {
	if now < n.LastSeen {
		return true
	}
	t := applicableTimeout(n, nodeTimeoutMs, masterTimeoutMs)
	return now-n.LastSeen > int64(t/1000)
}

// EvictStale removes every node that has timed out as of now and returns
// the evicted nodes, in the order they were evicted (insertion order).
func (t *Table) EvictStale(now int64, nodeTimeoutMs, masterTimeoutMs int) []Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []Node
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		n := el.Value.(*Node)
		if shouldEvict(n, now, nodeTimeoutMs, masterTimeoutMs) {
			evicted = append(evicted, *n)
			t.order.Remove(el)
			delete(t.index, n.Key)
		}
		el = next
	}
	return evicted
}

// Remove deletes a node by key. Instance release uses Clear instead.
func (t *Table) Remove(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.index[key]; ok {
		t.order.Remove(el)
		delete(t.index, key)
	}
}

// Clear empties the table, returning the removed nodes.
func (t *Table) Clear() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []Node
	for el := t.order.Front(); el != nil; el = el.Next() {
		all = append(all, *el.Value.(*Node))
	}
	t.order.Init()
	t.index = make(map[Key]*list.Element)
	return all
}

// Now returns the current wall-clock time in whole seconds, the unit the
// check loop and eviction rule operate in.
func Now() int64 {
	return time.Now().Unix()
}
