//go:build arm64

package simd

import "unsafe"

var prefetchImpl = prefetchL3

//go:noescape
func prefetchL3(p unsafe.Pointer)
