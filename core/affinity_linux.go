//go:build linux

package core

import (
	"golang.org/x/sys/unix"
)

// setAffinity pins the calling thread to the CPUs of the given mask.
// Bit i selects CPU i. Must run after runtime.LockOSThread.
func setAffinity(mask uint64) error {
	var set unix.CPUSet
	for cpu := 0; cpu < 64; cpu++ {
		if mask&(1<<cpu) != 0 {
			set.Set(cpu)
		}
	}
	return unix.SchedSetaffinity(0, &set)
}
