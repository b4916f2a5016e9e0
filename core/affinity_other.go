//go:build !linux

package core

// setAffinity is a no-op on platforms without thread affinity support.
func setAffinity(mask uint64) error {
	return nil
}
