package control

import "testing"

func TestMetricsRegistryCounterAndGauge(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Inc("steering.match_total")
	mr.Add("steering.match_total", 2)
	mr.Set("drr.active_flows", 4)

	snap := mr.GetSnapshot()
	if got := snap["steering.match_total"]; got != 3.0 {
		t.Fatalf("expected 3.0, got %v", got)
	}
	if got := snap["drr.active_flows"]; got != 4.0 {
		t.Fatalf("expected 4.0, got %v", got)
	}
}

func TestMetricsRegistryIdempotentRegistration(t *testing.T) {
	mr := NewMetricsRegistry()
	c1 := mr.Counter("foo", "foo help")
	c2 := mr.Counter("foo", "ignored on second call")
	if c1 != c2 {
		t.Fatalf("expected same counter instance on repeat registration")
	}
}
