//go:build amd64

package simd

import "unsafe"

var prefetchImpl = prefetchT2

//go:noescape
func prefetchT2(p unsafe.Pointer)
