// Package latch provides the two concurrency primitives the rest of this
// module is built on: a non-blocking SpinLock and a blocking SleepLock.
// Both stand in for the kernel primitives spec.md §6 treats as external
// collaborators (spin-lock with interrupt-disable discipline, sleeping lock).
package latch

import "sync"

// SpinLock is a named mutual-exclusion lock that must never be held across
// an operation that can block (disk I/O, SleepLock acquisition). In the
// kernel this additionally disables local interrupts for its duration; Go
// has no such primitive exposed to user code, so SpinLock only documents the
// discipline — callers are responsible for never sleeping while holding one.
type SpinLock struct {
	name string
	mu   sync.Mutex
}

// NewSpinLock creates a named spin-lock, mirroring the kernel's
// initlock(&lock, name).
func NewSpinLock(name string) *SpinLock {
	return &SpinLock{name: name}
}

func (s *SpinLock) Name() string { return s.name }

// Acquire blocks (spins, in the kernel) until the lock is held.
func (s *SpinLock) Acquire() { s.mu.Lock() }

// Release releases a held lock.
func (s *SpinLock) Release() { s.mu.Unlock() }

// TryAcquire reports whether the lock was free and is now held.
func (s *SpinLock) TryAcquire() bool { return s.mu.TryLock() }
