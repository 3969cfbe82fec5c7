package progress

import (
	"sync"
	"testing"
	"time"
)

// tickRecorder collects delivered ticks safely.
type tickRecorder struct {
	mu     sync.Mutex
	values []float64
}

// record appends one tick value.
func (r *tickRecorder) record(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

// snapshot returns a copy of ticks seen so far.
func (r *tickRecorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

// waitForTicks polls until at least n ticks were recorded.
func waitForTicks(t *testing.T, r *tickRecorder, n int) []float64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("ticks = %d, want at least %d", len(r.snapshot()), n)
	return nil
}

// TestSimulatorMonotonicAndCapped verifies ticks never decrease and never pass the cap.
func TestSimulatorMonotonicAndCapped(t *testing.T) {
	sim := New(WithInterval(time.Millisecond), WithRandom(func() float64 { return 0.999 }))
	rec := &tickRecorder{}
	h := sim.Start(rec.record)
	defer sim.Stop(h)

	values := waitForTicks(t, rec, 15)
	prev := 0.0
	for i, v := range values {
		if v < prev {
			t.Fatalf("tick %d decreased: %v < %v", i, v, prev)
		}
		if v > Cap {
			t.Fatalf("tick %d = %v exceeds cap %v", i, v, Cap)
		}
		prev = v
	}
	if values[len(values)-1] != Cap {
		t.Fatalf("last tick = %v, want cap %v after saturation", values[len(values)-1], Cap)
	}
}

// TestSimulatorRandomIncrements verifies step sizes follow the random source.
func TestSimulatorRandomIncrements(t *testing.T) {
	steps := []float64{0.5, 0.1, 0.0, 0.3}
	var mu sync.Mutex
	i := 0
	random := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := steps[i%len(steps)]
		i++
		return v
	}
	sim := New(WithInterval(time.Millisecond), WithRandom(random))
	rec := &tickRecorder{}
	h := sim.Start(rec.record)
	values := waitForTicks(t, rec, 4)
	h.Stop()

	want := []float64{5, 6, 6, 9}
	for j, w := range want {
		if diff := values[j] - w; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("tick %d = %v, want %v", j, values[j], w)
		}
	}
}

// TestSimulatorNoTickAfterStop verifies cancellation is final.
func TestSimulatorNoTickAfterStop(t *testing.T) {
	sim := New(WithInterval(time.Millisecond))
	rec := &tickRecorder{}
	h := sim.Start(rec.record)
	waitForTicks(t, rec, 3)

	sim.Stop(h)
	after := len(rec.snapshot())
	time.Sleep(30 * time.Millisecond)
	if got := len(rec.snapshot()); got != after {
		t.Fatalf("ticks after stop: %d -> %d", after, got)
	}
	if !h.Stopped() {
		t.Fatal("handle should report stopped")
	}
}

// TestSimulatorStopIsIdempotent verifies repeated and nil stops are no-ops.
func TestSimulatorStopIsIdempotent(t *testing.T) {
	sim := New(WithInterval(time.Millisecond))
	sim.Stop(nil)

	h := sim.Start(nil)
	sim.Stop(h)
	sim.Stop(h)
	h.Stop()

	var never *Handle
	never.Stop()
	if !never.Stopped() {
		t.Fatal("nil handle should report stopped")
	}
}

// TestNewDefaults verifies the policy values.
func TestNewDefaults(t *testing.T) {
	sim := New()
	if sim.interval != 200*time.Millisecond {
		t.Fatalf("interval = %v", sim.interval)
	}
	if sim.maxStep != 10 {
		t.Fatalf("max step = %v", sim.maxStep)
	}
	if Cap != 90 {
		t.Fatalf("cap = %v", Cap)
	}
}
