// Package affinity binds worker goroutines to processor cores.
//
// Pinning is advisory. A Pinner that cannot bind reports an error the caller
// is expected to count and ignore; nothing in the benchmark depends on a pin
// succeeding.
package affinity

import "runtime"

// Pinner binds the calling goroutine to a core.
type Pinner interface {
	// Pin locks the calling goroutine to its OS thread and restricts that
	// thread to core. The goroutine stays locked until it exits, at which
	// point the runtime discards the thread.
	Pin(core int) error
	// Supported reports whether Pin can have any effect on this platform.
	Supported() bool
}

// CoreFor maps a worker index onto the available cores round-robin.
func CoreFor(worker int) int {
	n := runtime.NumCPU()
	if n <= 0 || worker < 0 {
		return 0
	}
	return worker % n
}

// Noop is a Pinner that never binds.
type Noop struct{}

func (Noop) Pin(int) error   { return nil }
func (Noop) Supported() bool { return false }
