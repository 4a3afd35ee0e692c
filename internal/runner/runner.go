// Package runner drives a Stepper at a fixed cadence from a single goroutine.
package runner

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the tick cadence of the simulation loop.
const DefaultInterval = time.Second

// Stepper performs one tick. It reports false when the tick was refused.
type Stepper interface {
	Step() bool
}

// #region runner-struct

// Runner owns the periodic timer. While armed, exactly one goroutine calls
// Step, so ticks never overlap.
type Runner struct {
	stepper  Stepper
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New returns a disarmed runner. A non-positive interval uses DefaultInterval.
func New(stepper Stepper, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{stepper: stepper, interval: interval, logger: logger}
}

// #endregion runner-struct

// #region arm

// Arm starts the timer. Arming an armed runner does nothing.
func (r *Runner) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.stop, r.done)
	r.logger.Debug("runner armed", zap.Duration("interval", r.interval))
}

// Disarm stops the timer and waits for an in-flight step to finish.
// Disarming a disarmed runner does nothing.
func (r *Runner) Disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	// Held across the wait so a concurrent Arm cannot start a second loop
	// while the old one is mid-step.
	close(r.stop)
	<-r.done
	r.stop, r.done = nil, nil
	r.logger.Debug("runner disarmed")
}

// #endregion arm

// #region loop

func (r *Runner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A stop racing the tick wins.
			select {
			case <-stop:
				return
			default:
			}
			if !r.stepper.Step() {
				r.logger.Debug("step refused")
			}
		}
	}
}

// #endregion loop
