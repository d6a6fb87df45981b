package scheduler

import "testing"

func TestScheduleIsIdempotent(t *testing.T) {
	d := NewDRR(100)
	d.Schedule(3)
	d.Schedule(3)
	if d.activeFlows.Length() != 1 {
		t.Fatalf("expected flow 3 queued exactly once, got length %d", d.activeFlows.Length())
	}
}

func TestNextFlowFIFOOrder(t *testing.T) {
	d := NewDRR(50)
	d.Schedule(1)
	d.Schedule(2)

	f, quota, ok := d.NextFlow()
	if !ok || f != 1 || quota != 50 {
		t.Fatalf("expected flow 1 quota 50, got f=%d quota=%d ok=%v", f, quota, ok)
	}
	if d.Active(1) {
		t.Fatalf("flow 1 should no longer be marked active after NextFlow")
	}

	f, quota, ok = d.NextFlow()
	if !ok || f != 2 || quota != 50 {
		t.Fatalf("expected flow 2 quota 50, got f=%d quota=%d ok=%v", f, quota, ok)
	}

	if _, _, ok := d.NextFlow(); ok {
		t.Fatalf("expected no more active flows")
	}
}

func TestUpdateFlowDeficitCarryOver(t *testing.T) {
	d := NewDRR(100)
	d.Schedule(5)
	_, quota, _ := d.NextFlow()
	d.UpdateFlow(5, true, quota-20)

	d.Schedule(5)
	_, quota2, _ := d.NextFlow()
	if quota2 != (quota-20)+100 {
		t.Fatalf("expected carried deficit + quantum, got %d", quota2)
	}
}

func TestUpdateFlowForfeitsDeficitWhenDrained(t *testing.T) {
	d := NewDRR(100)
	d.Schedule(5)
	_, quota, _ := d.NextFlow()
	d.UpdateFlow(5, false, quota-20)

	d.Schedule(5)
	_, quota2, _ := d.NextFlow()
	if quota2 != 100 {
		t.Fatalf("expected forfeited deficit (quota==quantum), got %d", quota2)
	}
}
