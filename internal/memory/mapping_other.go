//go:build !linux && !darwin

package memory

import "os"

// MapFile is not supported on this platform.
func MapFile(_ *os.File, _ int) (*Mapping, error) {
	return nil, ErrMmapUnsupported
}

// Close is a no-op on platforms without mmap support.
func (m *Mapping) Close() error {
	if m != nil {
		m.data = nil
	}
	return nil
}

func adviseBytes(_ []byte, _ Advice) error {
	return nil
}
