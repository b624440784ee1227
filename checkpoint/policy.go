package checkpoint

import (
	"time"
)

// Policy decides when a dispatched batch's token is durably checkpointed.
// BatchProcessed is called once per successfully observed non-empty batch
// with its record count; true means checkpoint now, false defers the token
// until a later batch fires the policy or the processor flushes at shutdown.
// A Policy instance belongs to a single processor and need not be safe for
// concurrent use.
type Policy interface {
	BatchProcessed(count int) bool
}

var _ Policy = everyBatch{}

type everyBatch struct{}

// EveryBatch checkpoints after every observed batch. The most conservative
// cadence: after a crash, at most one batch is redelivered.
func EveryBatch() Policy {
	return everyBatch{}
}

func (everyBatch) BatchProcessed(int) bool {
	return true
}

var _ Policy = (*PeriodicPolicy)(nil)

type PeriodicPolicyConfig struct {
	MaxInterval time.Duration
	MaxCount    int
}

type PeriodicPolicyOption func(*PeriodicPolicyConfig)

func WithMaxInterval(d time.Duration) PeriodicPolicyOption {
	return func(cfg *PeriodicPolicyConfig) {
		cfg.MaxInterval = d
	}
}

func WithMaxCount(c int) PeriodicPolicyOption {
	return func(cfg *PeriodicPolicyConfig) {
		cfg.MaxCount = c
	}
}

// PeriodicPolicy checkpoints once enough records or enough time accumulated
// since the last checkpoint, trading a wider redelivery window for fewer
// writes.
type PeriodicPolicy struct {
	c     PeriodicPolicyConfig
	count int
	last  time.Time
}

func Periodic(opts ...PeriodicPolicyOption) *PeriodicPolicy {
	cfg := PeriodicPolicyConfig{
		MaxInterval: 5 * time.Second,
		MaxCount:    100,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &PeriodicPolicy{
		c:    cfg,
		last: time.Now(),
	}
}

func (p *PeriodicPolicy) BatchProcessed(count int) bool {
	p.count += count
	if p.count > 0 && (p.count >= p.c.MaxCount || time.Since(p.last) >= p.c.MaxInterval) {
		p.count = 0
		p.last = time.Now()
		return true
	}

	return false
}
