// Package uid generates the process and instance identifiers used on the
// wire, and resolves the local hostname default.
package uid

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// New returns a canonical 36-char hyphenated UUID-v4 string, used for the
// instance id (a fresh one per discover.Instance).
func New() string {
	return uuid.NewString()
}

var (
	processIDOnce sync.Once
	processID     string
)

// ProcessID returns the UUID shared by every discover.Instance created in
// this process: it is generated once, on first use, and held for the
// process's lifetime. Multiple instances in the same process therefore
// carry the same pid and differ only in iid, which is what lets
// ignoreProcess filtering treat them as siblings.
func ProcessID() string {
	processIDOnce.Do(func() {
		processID = uuid.NewString()
	})
	return processID
}

// Hostname returns the OS hostname, or "unknown" if it cannot be resolved.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
