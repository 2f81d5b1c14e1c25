// Package simd holds the architecture-specific cache hints used on the
// insertion hot path.
package simd

import "unsafe"

// Prefetch hints to the CPU to fetch the cache line holding p into the outer
// cache levels for an upcoming read. It never faults and has no effect on
// correctness; platforms without a prefetch instruction ignore it.
func Prefetch(p unsafe.Pointer) {
	prefetchImpl(p)
}

// PrefetchFloat32 prefetches the first cache line of s. Empty slices are ignored.
func PrefetchFloat32(s []float32) {
	if len(s) == 0 {
		return
	}
	prefetchImpl(unsafe.Pointer(unsafe.SliceData(s)))
}

// PrefetchUint64 prefetches the cache line holding *p.
func PrefetchUint64(p *uint64) {
	if p == nil {
		return
	}
	prefetchImpl(unsafe.Pointer(p))
}

func prefetchGeneric(_ unsafe.Pointer) {}
