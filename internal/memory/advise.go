package memory

import "errors"

// ErrMmapUnsupported indicates that mmap isn't supported on this platform.
var ErrMmapUnsupported = errors.New("mmap unsupported on this platform")

// Advice identifies the type of access pattern for a memory region.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceRandom
	AdviceSequential
	AdviceWillNeed
	AdviceDontNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceNormal:
		return "normal"
	case AdviceRandom:
		return "random"
	case AdviceSequential:
		return "sequential"
	case AdviceWillNeed:
		return "willneed"
	case AdviceDontNeed:
		return "dontneed"
	default:
		return "unknown"
	}
}

// Mapping is a read-only, private memory mapping of a whole file.
//
// The slice returned by Bytes aliases the mapped region and becomes invalid
// after Close. Callers that need the data beyond the mapping's lifetime must
// copy it out first.
type Mapping struct {
	data []byte
}

// Bytes returns the mapped region.
func (m *Mapping) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Len returns the size of the mapped region in bytes.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.data)
}

// Advise applies each advice to the whole mapping in order. Advice is a hint;
// kernels are free to ignore it.
func (m *Mapping) Advise(advice ...Advice) error {
	if m == nil || len(m.data) == 0 {
		return nil
	}
	for _, a := range advice {
		if err := adviseBytes(m.data, a); err != nil {
			return err
		}
	}
	return nil
}
