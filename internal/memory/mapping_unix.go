//go:build linux || darwin

package memory

import (
	"fmt"
	"os"

	"github.com/23skdu/hnswbench/internal/metrics"
	"golang.org/x/sys/unix"
)

// MapFile maps size bytes of f read-only. The file may be closed once MapFile
// returns; the mapping stays valid until Close.
func MapFile(f *os.File, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	metrics.MappedBytes.Add(float64(size))
	return &Mapping{data: data}, nil
}

// Close unmaps the region. It is safe to call more than once.
func (m *Mapping) Close() error {
	if m == nil || m.data == nil {
		return nil
	}
	size := len(m.data)
	err := unix.Munmap(m.data)
	m.data = nil
	metrics.MappedBytes.Sub(float64(size))
	return err
}

func adviseBytes(b []byte, advice Advice) error {
	var unixAdvice int
	switch advice {
	case AdviceNormal:
		unixAdvice = unix.MADV_NORMAL
	case AdviceRandom:
		unixAdvice = unix.MADV_RANDOM
	case AdviceSequential:
		unixAdvice = unix.MADV_SEQUENTIAL
	case AdviceWillNeed:
		unixAdvice = unix.MADV_WILLNEED
	case AdviceDontNeed:
		unixAdvice = unix.MADV_DONTNEED
	default:
		return nil
	}
	return unix.Madvise(b, unixAdvice)
}
