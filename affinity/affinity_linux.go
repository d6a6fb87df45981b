//go:build linux

// Linux thread-to-CPU pinning via golang.org/x/sys/unix (numaID is not
// applied), avoiding cgo so the
// dataplane stays a pure-Go static binary (unlike the teacher's cgo+libnuma
// approach, which this module deliberately trades for easier cross-compile
// and deployment in a kernel-bypass/DPDK-style host).

package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

func setAffinityPlatform(cpuID, numaID int) error {
	runtime.LockOSThread()
	if cpuID < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu=%d: %w", cpuID, err)
	}
	return nil
}
