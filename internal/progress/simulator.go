package progress

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultInterval is the tick period of the synthetic estimate.
	DefaultInterval = 200 * time.Millisecond
	// DefaultMaxStep is the largest increment added on a single tick.
	DefaultMaxStep = 10.0
	// Cap bounds the estimate until the real outcome is known.
	Cap = 90.0
)

// Simulator produces a cosmetic, non-authoritative progress estimate.
type Simulator struct {
	interval time.Duration
	maxStep  float64
	random   func() float64
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithInterval overrides the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxStep overrides the largest per-tick increment.
func WithMaxStep(step float64) Option {
	return func(s *Simulator) {
		if step >= 0 {
			s.maxStep = step
		}
	}
}

// WithRandom injects the [0,1) source used to size increments.
func WithRandom(fn func() float64) Option {
	return func(s *Simulator) {
		if fn != nil {
			s.random = fn
		}
	}
}

// New builds a simulator with the 200ms / up-to-10 policy unless overridden.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		interval: DefaultInterval,
		maxStep:  DefaultMaxStep,
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle controls one running ticker.
type Handle struct {
	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	once    sync.Once
}

// Start schedules periodic ticks reporting min(accumulator, Cap) to onTick.
// onTick runs on the simulator goroutine and must not call Stop.
func (s *Simulator) Start(onTick func(float64)) *Handle {
	h := &Handle{quit: make(chan struct{})}
	go s.run(h, onTick)
	return h
}

// Stop cancels the ticker behind h. Nil and repeated stops are no-ops.
func (s *Simulator) Stop(h *Handle) {
	h.Stop()
}

func (s *Simulator) run(h *Handle, onTick func(float64)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	acc := 0.0
	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			acc += s.random() * s.maxStep
			if acc > Cap {
				acc = Cap
			}
			if !h.deliver(onTick, acc) {
				return
			}
		}
	}
}

// deliver invokes onTick unless the handle was stopped. Holding mu during the
// callback is what makes Stop wait out an in-flight tick.
func (h *Handle) deliver(onTick func(float64), value float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	if onTick != nil {
		onTick(value)
	}
	return true
}

// Stop cancels the ticker. Once Stop returns no further tick is delivered.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.once.Do(func() { close(h.quit) })
}

// Stopped reports whether Stop has been called.
func (h *Handle) Stopped() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
