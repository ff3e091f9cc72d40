package modelclient

import (
	"context"
	"time"

	"github.com/curricle-systems/core/pkg/kernel"
)

// TierLimits configures the token-bucket policy and daily call ceiling for
// one model tier, the rpm/day table spec §4.2/§5 describes.
type TierLimits struct {
	RPM           int
	DailyCallCap  int
}

// Limiter rate-limits and daily-caps calls per tier, reusing
// pkg/kernel.LimiterStore for the token bucket and adding a per-tier
// daily-call counter. When a tier's count is exhausted, Acquire returns
// DailyCapExhaustedError; nothing records the resulting move to another
// candidate.
type Limiter struct {
	store  kernel.LimiterStore
	limits map[ModelTier]TierLimits

	dailyMu     dailyMutex
	dailyCounts map[ModelTier]int
	dailyDate   string
}

type dailyMutex struct{ ch chan struct{} }

func newDailyMutex() dailyMutex {
	m := dailyMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

func (m dailyMutex) lock()   { <-m.ch }
func (m dailyMutex) unlock() { m.ch <- struct{}{} }

// NewLimiter builds a Limiter backed by store (in-process or Redis-backed,
// per pkg/kernel.NewInMemoryLimiterStore / pkg/kernel.RedisLimiterStore)
// with the given per-tier policy table.
func NewLimiter(store kernel.LimiterStore, limits map[ModelTier]TierLimits) *Limiter {
	return &Limiter{
		store:       store,
		limits:      limits,
		dailyMu:     newDailyMutex(),
		dailyCounts: make(map[ModelTier]int),
		dailyDate:   time.Now().UTC().Format("2006-01-02"),
	}
}

// Acquire takes one call from the tier's budget without waiting: it returns
// the backing LimiterStore's error at once when the tier is rate limited,
// and a *DailyCapExhaustedError when the tier's calls for today are
// exhausted, so the caller can move on to another tier.
func (l *Limiter) Acquire(ctx context.Context, tier ModelTier) error {
	limits, ok := l.limits[tier]
	if !ok {
		limits = TierLimits{RPM: 60, DailyCallCap: 1000}
	}

	if exhausted := l.dailyExhausted(tier, limits.DailyCallCap); exhausted {
		return &DailyCapExhaustedError{Tier: tier}
	}

	policy := kernel.BackpressurePolicy{RPM: limits.RPM, Burst: limits.RPM}
	if err := kernel.EvaluateBackpressure(ctx, l.store, string(tier), policy); err != nil {
		return err
	}

	l.recordCall(tier)
	return nil
}

func (l *Limiter) dailyExhausted(tier ModelTier, cap int) bool {
	if cap <= 0 {
		return false
	}
	l.dailyMu.lock()
	defer l.dailyMu.unlock()
	l.rolloverLocked()
	return l.dailyCounts[tier] >= cap
}

func (l *Limiter) recordCall(tier ModelTier) {
	l.dailyMu.lock()
	defer l.dailyMu.unlock()
	l.rolloverLocked()
	l.dailyCounts[tier]++
}

func (l *Limiter) rolloverLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if today != l.dailyDate {
		l.dailyDate = today
		l.dailyCounts = make(map[ModelTier]int)
	}
}

// DailyCapExhaustedError signals that a tier's daily call budget ran out;
// Client.GenerateText moves on to the next candidate in the chain in
// response.
type DailyCapExhaustedError struct {
	Tier ModelTier
}

func (e *DailyCapExhaustedError) Error() string {
	return "modelclient: daily call cap exhausted for tier " + string(e.Tier)
}
