//go:build !deadlock

// Package sync provides the mutex types used by the broker registries.
// Release builds use the standard library. Build with -tags deadlock to swap
// in go-deadlock and get a report when a registry lock is held too long.
package sync

import "sync"

// Mutex guards a single registry map.
type Mutex = sync.Mutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once
