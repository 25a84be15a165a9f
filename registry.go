package xtlog

import (
	"sync"

	"go.uber.org/atomic"
)

// Shared instance registry. The process-wide Logger is built once and
// handed back on every later call; a failed construction leaves the
// registry empty so the next call retries.
var (
	instance   atomic.Pointer[Logger]
	instanceMu sync.Mutex
)

// GetOrCreate returns the shared Logger, building it on first use with the
// given options. Once the instance exists, later calls return it unchanged
// and their options are ignored; use Update to reconfigure a live logger.
func GetOrCreate(opts ...Option) (*Logger, error) {
	if l := instance.Load(); l != nil {
		return l, nil
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()

	if l := instance.Load(); l != nil {
		return l, nil
	}
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	instance.Store(l)
	return l, nil
}

// Instance returns the shared Logger, or nil when none has been created
// yet.
func Instance() *Logger {
	return instance.Load()
}

// HasInstance reports whether the shared Logger exists.
func HasInstance() bool {
	return instance.Load() != nil
}

// ResetInstance drops the shared Logger so the next GetOrCreate builds a
// fresh one. The dropped instance keeps working for anyone still holding
// it; Close it first when its sinks should be released.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance.Store(nil)
}
