package transport

import "sync"

// Fake is a fully in-memory RawConn for tests, adapted from the
// teacher's fake.Transport: a send buffer and a recv buffer, both
// inspectable/seedable by the test driving it.
type Fake struct {
	mu     sync.Mutex
	sent   [][]byte
	toRecv [][]byte
	closed bool
}

// NewFake returns an empty Fake RawConn.
func NewFake() *Fake {
	return &Fake{}
}

// ReadFrame pops the next queued frame, returns (nil, nil) when nothing
// is queued, and returns ErrClosed once closed, even if frames remain
// queued.
func (f *Fake) ReadFrame() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if len(f.toRecv) == 0 {
		return nil, nil
	}
	frame := f.toRecv[0]
	f.toRecv = f.toRecv[1:]
	return frame, nil
}

// WriteFrame appends frame to the sent log.
func (f *Fake) WriteFrame(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	cp := append([]byte(nil), frame...)
	f.sent = append(f.sent, cp)
	return nil
}

// Close marks the fake connection closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// QueueRecv seeds a frame to be returned by the next ReadFrame call.
func (f *Fake) QueueRecv(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), frame...)
	f.toRecv = append(f.toRecv, cp)
}

// Sent returns every frame written via WriteFrame, in order.
func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

var _ RawConn = (*Fake)(nil)
