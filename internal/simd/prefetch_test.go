package simd

import (
	"testing"
	"unsafe"
)

func TestPrefetch(t *testing.T) {
	// Prefetching valid memory should not crash
	data := make([]byte, 1024)
	for i := 0; i < len(data); i += 64 {
		Prefetch(unsafe.Pointer(&data[i]))
	}

	// Prefetching nil should not crash (hardware ignores it)
	Prefetch(nil)
}

func TestPrefetchTyped(t *testing.T) {
	vecs := make([]float32, 128)
	ids := make([]uint64, 16)
	for i := 0; i < len(ids); i++ {
		PrefetchFloat32(vecs[i*8 : (i+1)*8])
		PrefetchUint64(&ids[i])
	}

	PrefetchFloat32(nil)
	PrefetchUint64(nil)
}

func BenchmarkPrefetch(b *testing.B) {
	data := make([]float32, 1<<16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		PrefetchFloat32(data[(i*16)&(len(data)-1):])
	}
}
