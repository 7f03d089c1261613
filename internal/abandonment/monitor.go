package abandonment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avelinehq/cartside/internal/cart"
	"github.com/avelinehq/cartside/internal/gateway"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/money"
	"github.com/avelinehq/cartside/pkg/types"
)

// OwnerSource resolves the identity the cart is currently persisted under.
type OwnerSource interface {
	ActiveOwner() types.OwnerKey
}

// Monitor watches the cart for inactivity. It arms when the cart turns
// non-empty while no checkout is running, restarts its countdown on every
// qualifying mutation, and fires a single abandonment notification per arm
// cycle once the cart sits untouched for the full duration. Firing never
// touches the cart; re-arming requires new activity.
type Monitor struct {
	tracker gateway.Tracker
	owner   OwnerSource
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	after   time.Duration

	mu             sync.Mutex
	timer          *time.Timer
	armed          bool
	checkoutActive bool
	lines          []types.CartLine
	closed         bool
}

// Params carries the monitor dependencies.
type Params struct {
	Tracker     gateway.Tracker
	OwnerSource OwnerSource
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	After       time.Duration
}

// NewMonitor validates the dependencies and builds a Monitor.
func NewMonitor(p Params) (*Monitor, error) {
	if p.Tracker == nil {
		return nil, fmt.Errorf("tracker required")
	}
	if p.OwnerSource == nil {
		return nil, fmt.Errorf("owner source required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.After <= 0 {
		return nil, fmt.Errorf("abandonment duration must be positive")
	}
	return &Monitor{
		tracker: p.Tracker,
		owner:   p.OwnerSource,
		logg:    p.Logger,
		metrics: p.Metrics,
		after:   p.After,
	}, nil
}

// OnCartChange drives the arm/disarm state machine. Both user mutations and
// seeds from persisted state count as qualifying activity.
func (m *Monitor) OnCartChange(change cart.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	if change.Empty() {
		m.disarmLocked()
		return
	}
	m.lines = change.Lines
	if m.checkoutActive {
		return
	}
	m.armLocked()
}

// CheckoutStarted disarms the monitor for the duration of the checkout flow.
func (m *Monitor) CheckoutStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkoutActive = true
	m.disarmLocked()
}

// CheckoutEnded lifts the checkout suppression. The monitor stays disarmed
// until the next qualifying mutation.
func (m *Monitor) CheckoutEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkoutActive = false
}

// Armed reports whether a countdown is currently running.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Close cancels any pending countdown permanently.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.disarmLocked()
}

func (m *Monitor) armLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.armed = true
	m.timer = time.AfterFunc(m.after, m.fire)
}

func (m *Monitor) disarmLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.armed = false
}

func (m *Monitor) fire() {
	m.mu.Lock()
	if !m.armed || m.closed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	lines := types.CloneLines(m.lines)
	m.mu.Unlock()

	ctx := context.Background()
	event := gateway.AbandonmentEvent{
		Owner: m.owner.ActiveOwner(),
		Lines: lines,
		Total: money.CartTotal(lines),
	}
	eventCtx := m.logg.WithOwnerKey(ctx, event.Owner.String())
	if err := m.tracker.TrackAbandonment(ctx, event); err != nil {
		m.logg.Error(eventCtx, "abandonment notification failed", err)
		return
	}
	m.metrics.IncAbandonmentFire()
	m.logg.Info(eventCtx, "cart abandonment recorded")
}
