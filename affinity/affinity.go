// Package affinity pins the goroutines that drive each dataplane component
// (codec, steering, scheduler, arbiter, ...) to specific CPUs/NUMA nodes, so
// the "independent hardware unit per component" model from spec §5 gets a
// real placement instead of floating across the Go scheduler's P's.
//
// Adapted from the teacher's affinity/affinity.go platform-neutral shim;
// platform backends live in affinity_linux.go / affinity_windows.go /
// affinity_stub.go guarded by build tags, same as the teacher.
package affinity

// Descriptor captures the current binding state of a pinned goroutine.
type Descriptor struct {
	CPUID  int
	NUMAID int
	Pinned bool
}

// Pinner binds the calling OS thread (via runtime.LockOSThread) to a CPU.
// The numaID argument is recorded in the Descriptor; no platform backend
// applies a NUMA binding.
type Pinner interface {
	Pin(cpuID, numaID int) error
	Unpin() error
	Descriptor() Descriptor
}

// New returns the platform Pinner implementation.
func New() Pinner {
	return &pinner{cpuID: -1, numaID: -1}
}

type pinner struct {
	cpuID  int
	numaID int
	pinned bool
}

// Pin pins the current OS thread. cpuID/numaID of -1 skip that dimension.
func (p *pinner) Pin(cpuID, numaID int) error {
	if err := setAffinityPlatform(cpuID, numaID); err != nil {
		return err
	}
	p.cpuID, p.numaID, p.pinned = cpuID, numaID, true
	return nil
}

// Unpin clears any previously set binding. Best-effort: most platforms have
// no "undo" primitive, so this simply resets our bookkeeping; a fresh Pin
// call is the supported way to rebind.
func (p *pinner) Unpin() error {
	p.cpuID, p.numaID, p.pinned = -1, -1, false
	return nil
}

func (p *pinner) Descriptor() Descriptor {
	return Descriptor{CPUID: p.cpuID, NUMAID: p.numaID, Pinned: p.pinned}
}
