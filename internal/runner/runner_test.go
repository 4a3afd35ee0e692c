package runner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region mock

type countingStepper struct {
	calls   atomic.Int64
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (s *countingStepper) Step() bool {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.calls.Add(1)
	return true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func armed(r *Runner) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// #endregion mock

func TestNew_Defaults(t *testing.T) {
	r := New(&countingStepper{}, 0, nil)
	if r.interval != DefaultInterval {
		t.Fatalf("expected default interval, got %v", r.interval)
	}
	if armed(r) {
		t.Fatal("new runner should be disarmed")
	}
}

func TestArm_Steps(t *testing.T) {
	s := &countingStepper{}
	r := New(s, time.Millisecond, nil)
	r.Arm()
	waitFor(t, func() bool { return s.calls.Load() >= 3 })
	r.Disarm()

	after := s.calls.Load()
	time.Sleep(10 * time.Millisecond)
	if s.calls.Load() != after {
		t.Fatal("steps continued after Disarm returned")
	}
}

func TestArm_Idempotent(t *testing.T) {
	s := &countingStepper{}
	r := New(s, time.Millisecond, nil)
	r.Arm()
	r.Arm()
	r.Arm()
	waitFor(t, func() bool { return s.calls.Load() >= 5 })
	r.Disarm()
	r.Disarm()
	if s.overlap.Load() {
		t.Fatal("steps overlapped")
	}
	if armed(r) {
		t.Fatal("expected disarmed")
	}
}

func TestNoOverlapWithSlowStep(t *testing.T) {
	s := &countingStepper{delay: 3 * time.Millisecond}
	r := New(s, time.Millisecond, nil)
	r.Arm()
	waitFor(t, func() bool { return s.calls.Load() >= 4 })
	r.Disarm()
	if s.overlap.Load() {
		t.Fatal("slow steps overlapped")
	}
}

func TestConcurrentArmDisarm(t *testing.T) {
	s := &countingStepper{}
	r := New(s, time.Millisecond, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Arm()
			} else {
				r.Disarm()
			}
		}(i)
	}
	wg.Wait()
	r.Disarm()
	if s.overlap.Load() {
		t.Fatal("steps overlapped")
	}
}
