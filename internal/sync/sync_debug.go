//go:build deadlock

// Package sync provides the mutex types used by the broker registries.
// With -tags deadlock the registry locks are go-deadlock mutexes.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex guards a single registry map and reports lock waits over the timeout.
type Mutex = deadlock.Mutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

func init() {
	// Registry locks are only ever held across one map operation or one
	// non-blocking write, so anything past a few seconds is a bug.
	deadlock.Opts.DeadlockTimeout = 5 * time.Second

	if os.Getenv("PUBD_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true

	println("[DEADLOCK DETECTION ENABLED] registry locks use go-deadlock")
}
