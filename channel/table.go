// Package channel implements the subscription table for user events:
// exact-string join/leave, POSIX-style regex dispatch against event names.
package channel

import (
	"encoding/json"
	"regexp"
	"sync"
)

// Handler is invoked once per matching dispatch, with the event name, the
// full decoded JSON payload, and the opaque user value passed to Join.
type Handler func(event string, payload json.RawMessage, user interface{})

type entry struct {
	pattern string
	handler Handler
	user    interface{}
	re      *regexp.Regexp // nil if pattern failed to compile
}

// Table is the ordered collection of subscriptions. A single lock protects
// the list and is held for the duration of a dispatch, matching the
// "channels lock" from the concurrency model.
type Table struct {
	mu      sync.Mutex
	entries []*entry
}

// New creates an empty channel table.
func New() *Table {
	return &Table{}
}

// Join adds a subscription for pattern, matched as a regular expression
// against incoming event names. A second Join with the same exact pattern
// string replaces the handler and user of the existing subscription rather
// than appending a duplicate.
func (t *Table) Join(pattern string, handler Handler, user interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.pattern == pattern {
			e.handler = handler
			e.user = user
			return
		}
	}

	re, _ := regexp.Compile(pattern)
	t.entries = append(t.entries, &entry{pattern: pattern, handler: handler, user: user, re: re})
}

// Leave removes the first subscription whose stored pattern equals pattern,
// byte-exact.
func (t *Table) Leave(pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.pattern == pattern {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscriptions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Dispatch invokes the handler of every subscription whose pattern matches
// eventName. A pattern that failed to compile at Join time is skipped
// silently. The table lock is held for the full dispatch, including user
// callback invocation, matching the concurrency model's ordering guarantee
// (a slow handler blocks later matches in the same dispatch and any other
// dispatch, Join or Leave waiting for the table lock, but not the node
// table).
func (t *Table) Dispatch(eventName string, payload json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.re == nil {
			continue
		}
		if e.re.MatchString(eventName) {
			e.handler(eventName, payload, e.user)
		}
	}
}

// Clear empties the table, e.g. on instance release.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
