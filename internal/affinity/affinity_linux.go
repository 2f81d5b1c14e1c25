//go:build linux

package affinity

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxCPU is the number of cores a unix.CPUSet can address.
const maxCPU = 8 * int(unsafe.Sizeof(unix.CPUSet{}))

// Default returns the platform pinner, backed by sched_setaffinity.
func Default() Pinner {
	return schedPinner{}
}

type schedPinner struct{}

func (schedPinner) Supported() bool { return true }

func (schedPinner) Pin(core int) error {
	if core < 0 || core >= maxCPU {
		return fmt.Errorf("affinity: core %d out of range", core)
	}
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: pin to core %d: %w", core, err)
	}
	return nil
}
