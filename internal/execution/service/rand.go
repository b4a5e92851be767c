package service

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness source behind failure injection, healing draws, and
// synthetic metrics. Tests inject deterministic implementations to force
// specific branches.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// lockedRand wraps math/rand with a mutex so concurrent drivers can share it.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// Sleeper models the simulated per-step delay. The default implementation
// honors context cancellation; tests substitute a no-op.
type Sleeper func(ctx context.Context, d time.Duration)

func defaultSleeper(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
