package concurrency

import "testing"

func TestRingBufferBasic(t *testing.T) {
	r := NewRingBuffer[int](4)
	if r.Cap() != 4 {
		t.Fatalf("expected cap 4, got %d", r.Cap())
	}
	for i := 0; i < 4; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("enqueue %d should succeed", i)
		}
	}
	if r.Enqueue(99) {
		t.Fatalf("enqueue into full ring should fail")
	}
	for i := 0; i < 4; i++ {
		v, ok := r.Dequeue()
		if !ok || v != i {
			t.Fatalf("expected %d,true got %d,%v", i, v, ok)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Fatalf("dequeue from empty ring should fail")
	}
}

func TestRingBufferRoundsUpCapacity(t *testing.T) {
	r := NewRingBuffer[int](15)
	if r.Cap() != 16 {
		t.Fatalf("expected rounded capacity 16, got %d", r.Cap())
	}
}
