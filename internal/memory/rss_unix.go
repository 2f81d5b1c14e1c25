//go:build linux || darwin

package memory

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PeakRSS returns the high-water resident set size of this process in bytes,
// or 0 if it cannot be determined.
func PeakRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	if ru.Maxrss <= 0 {
		return 0
	}
	// ru_maxrss is kilobytes on Linux and bytes on Darwin.
	if runtime.GOOS == "darwin" {
		return uint64(ru.Maxrss)
	}
	return uint64(ru.Maxrss) * 1024
}
