package memcached

import "testing"

func TestSetThenGetHits(t *testing.T) {
	ik := New(4)
	ik.Set([]byte("foo"), []byte("bar"), 1)

	got, ok := ik.Get([]byte("foo"), 1)
	if !ok || string(got) != "bar" {
		t.Fatalf("expected hit with value bar, got %q ok=%v", got, ok)
	}
	hits, _ := ik.RegRead(RegHits, 0)
	if hits != 1 {
		t.Fatalf("expected hits=1, got %d", hits)
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	ik := New(4)
	_, ok := ik.Get([]byte("missing"), 1)
	if ok {
		t.Fatalf("expected miss for unset key")
	}
	misses, _ := ik.RegRead(RegMisses, 0)
	if misses != 1 {
		t.Fatalf("expected misses=1, got %d", misses)
	}
}

func TestWarmFromTracePopulatesCache(t *testing.T) {
	ik := New(4)
	ik.WarmFromTrace(map[string][]byte{"a": []byte("1"), "b": []byte("2")}, 0)
	if v, ok := ik.Get([]byte("a"), 0); !ok || string(v) != "1" {
		t.Fatalf("expected warmed key a=1, got %q ok=%v", v, ok)
	}
}
