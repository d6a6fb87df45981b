package affinity

import "testing"

func TestPinDescriptor(t *testing.T) {
	p := New()
	if err := p.Pin(-1, -1); err != nil {
		t.Fatalf("Pin(-1,-1): %v", err)
	}
	d := p.Descriptor()
	if !d.Pinned {
		t.Fatalf("expected Pinned=true after Pin")
	}
	if err := p.Unpin(); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	if p.Descriptor().Pinned {
		t.Fatalf("expected Pinned=false after Unpin")
	}
}
