package transport

import "testing"

func TestFakeWriteThenSent(t *testing.T) {
	f := NewFake()
	if err := f.WriteFrame([]byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	sent := f.Sent()
	if len(sent) != 1 || string(sent[0]) != string([]byte{1, 2, 3}) {
		t.Fatalf("unexpected sent log: %+v", sent)
	}
}

func TestFakeQueueRecvThenReadFrame(t *testing.T) {
	f := NewFake()
	f.QueueRecv([]byte{9, 9})
	got, err := f.ReadFrame()
	if err != nil || string(got) != string([]byte{9, 9}) {
		t.Fatalf("unexpected read: %v %v", got, err)
	}
}

func TestFakeClosedRejectsIO(t *testing.T) {
	f := NewFake()
	f.Close()
	if err := f.WriteFrame([]byte{1}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := f.ReadFrame(); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
