//go:build !linux && !darwin

package memory

// PeakRSS is not available on this platform.
func PeakRSS() uint64 {
	return 0
}
