package health

import (
	"context"
	"sync/atomic"
	"time"

	"payment-dispatcher/internal/models"
)

// Selection is the process-wide active processor choice. It lives in a
// single atomic word: the monitor is the only writer, every dispatch attempt
// reads it, and staleness is bounded by the polling interval.
type Selection int32

const (
	SelectionNone Selection = iota
	SelectionDefault
	SelectionFallback
)

// Processor maps the selection to a routable processor. false means neither
// processor is believed healthy and the item should be requeued unsent.
func (s Selection) Processor() (models.Processor, bool) {
	switch s {
	case SelectionDefault:
		return models.ProcessorDefault, true
	case SelectionFallback:
		return models.ProcessorFallback, true
	default:
		return "", false
	}
}

func (s Selection) String() string {
	if p, ok := s.Processor(); ok {
		return string(p)
	}
	return "none"
}

type Checker interface {
	CheckHealth(ctx context.Context) (models.HealthStatus, error)
}

// Monitor polls both processors and keeps the selection current. Priority
// failover, not load balancing: default wins whenever it is healthy.
type Monitor struct {
	defaultChecker  Checker
	fallbackChecker Checker
	interval        time.Duration
	current         atomic.Int32
}

func NewMonitor(defaultChecker, fallbackChecker Checker, interval time.Duration) *Monitor {
	return &Monitor{
		defaultChecker:  defaultChecker,
		fallbackChecker: fallbackChecker,
		interval:        interval,
	}
}

func (m *Monitor) Current() Selection {
	return Selection(m.current.Load())
}

// Run polls once immediately, then on every tick until ctx is cancelled.
// Poll errors never stop the loop; they just count as failing.
func (m *Monitor) Run(ctx context.Context) error {
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	if m.healthy(ctx, m.defaultChecker) {
		m.current.Store(int32(SelectionDefault))
		return
	}
	if m.healthy(ctx, m.fallbackChecker) {
		m.current.Store(int32(SelectionFallback))
		return
	}
	m.current.Store(int32(SelectionNone))
}

func (m *Monitor) healthy(ctx context.Context, checker Checker) bool {
	status, err := checker.CheckHealth(ctx)
	if err != nil {
		return false
	}
	return !status.Failing
}
