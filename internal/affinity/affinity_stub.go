//go:build !linux

package affinity

// Default returns a no-op pinner; this platform has no thread affinity API.
func Default() Pinner {
	return Noop{}
}
