package risk

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestLatencyGuard(t *testing.T) {
	fc := &fakeClock{t: time.Unix(0, 0)}
	guard := &LatencyGuard{
		MinInterval: 100 * time.Millisecond,
		clock:       fc,
	}
	if err := guard.PreOrder("NIFTY", 1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := guard.PreOrder("NIFTY", -1); err != nil {
		t.Fatalf("sell should be allowed immediately: %v", err)
	}
	if err := guard.PreOrder("NIFTY", 1); err == nil {
		t.Fatalf("expected too frequent on repeated buy")
	}
	fc.t = fc.t.Add(200 * time.Millisecond)
	if err := guard.PreOrder("NIFTY", 1); err != nil {
		t.Fatalf("expected pass after interval")
	}
}

func TestLatencyGuardBatchCountsOnePerSide(t *testing.T) {
	fc := &fakeClock{t: time.Unix(0, 0)}
	guard := &LatencyGuard{MinInterval: time.Second, clock: fc}

	legs := []Leg{{Symbol: "NIFTY240311100CE", DeltaQty: 50}, {Symbol: "NIFTY240311100PE", DeltaQty: 50}}
	if err := guard.PreOrderBatch(legs); err != nil {
		t.Fatalf("both buy legs should pass as one order: %v", err)
	}
	if err := guard.PreOrderBatch(legs); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected too frequent on repeated group, got %v", err)
	}
	fc.t = fc.t.Add(2 * time.Second)
	if err := guard.PreOrderBatch(legs); err != nil {
		t.Fatalf("expected pass after interval: %v", err)
	}
}

func TestLatencyGuardBatchRejectLeavesNoTrace(t *testing.T) {
	fc := &fakeClock{t: time.Unix(0, 0)}
	guard := &LatencyGuard{MinInterval: time.Second, clock: fc}
	if err := guard.PreOrder("NIFTY", 1); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	// 买腿过频，卖腿也不应记录时间
	if err := guard.PreOrderBatch([]Leg{{"NIFTY", -1}, {"NIFTY", 1}}); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected too frequent, got %v", err)
	}
	if err := guard.PreOrder("NIFTY", -1); err != nil {
		t.Fatalf("sell side must be untouched by the rejected group: %v", err)
	}
}

func TestManualClockOnlyMovesForward(t *testing.T) {
	var mc ManualClock
	if !mc.Now().IsZero() {
		t.Fatalf("zero clock should report zero time")
	}
	t0 := time.Unix(1_700_000_000, 0)
	mc.Advance(t0)
	mc.Advance(t0.Add(-time.Minute))
	if !mc.Now().Equal(t0) {
		t.Fatalf("clock moved backwards: %v", mc.Now())
	}
}
