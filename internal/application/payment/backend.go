package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// DefaultSuccessRate is the share of payments the simulated backend approves.
const DefaultSuccessRate = 0.9

// SimulatedBackend approves payments at random with a configurable success rate.
type SimulatedBackend struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	latency     time.Duration
}

func NewSimulatedBackend(successRate float64, latency time.Duration) (*SimulatedBackend, error) {
	b := &SimulatedBackend{
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
		latency: latency,
	}
	if err := b.SetSuccessRate(successRate); err != nil {
		return nil, err
	}
	return b, nil
}

// SetSuccessRate accepts a rate in [0, 1].
func (b *SimulatedBackend) SetSuccessRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("payment: success rate %v outside [0,1]", rate)
	}
	b.mu.Lock()
	b.successRate = rate
	b.mu.Unlock()
	return nil
}

func (b *SimulatedBackend) Authorize(ctx context.Context, _ string, _ decimal.Decimal, _ domain.Method) (bool, error) {
	if b.latency > 0 {
		t := time.NewTimer(b.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.random.Float64() < b.successRate, nil
}

// StaticBackend always gives the same answer.
type StaticBackend struct {
	Approve bool
	Err     error
}

func (b StaticBackend) Authorize(ctx context.Context, _ string, _ decimal.Decimal, _ domain.Method) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if b.Err != nil {
		return false, b.Err
	}
	return b.Approve, nil
}
