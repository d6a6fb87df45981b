//go:build !linux && !windows

// Stub for platforms without a pinning syscall; Pin is a no-op success so
// callers in test environments don't have to special-case the platform.

package affinity

func setAffinityPlatform(cpuID, numaID int) error {
	return nil
}
