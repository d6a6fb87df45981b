//go:build windows

// Windows thread pinning via golang.org/x/sys/windows, adapted from the
// teacher's internal/concurrency/affinity_windows.go (which used the same
// API directly through syscall instead of x/sys; we standardize on x/sys
// since it is already a module dependency on every platform).

package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
)

func setAffinityPlatform(cpuID, numaID int) error {
	runtime.LockOSThread()
	if cpuID < 0 {
		return nil
	}
	h := windows.CurrentThread()
	mask := uintptr(1) << uint(cpuID)
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(h), mask)
	if ret == 0 {
		return fmt.Errorf("affinity: SetThreadAffinityMask cpu=%d: %w", cpuID, err)
	}
	return nil
}
