package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avelinehq/cartside/internal/cart"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/types"
)

// saver is the slice of the persistence gateway the scheduler drives.
type saver interface {
	Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error
}

// snapshotter yields the latest cart state at timer expiry, so a save always
// carries the newest lines even when more edits landed after scheduling.
type snapshotter interface {
	Snapshot() cart.Change
}

// OwnerSource resolves the identity the cart is currently persisted under.
type OwnerSource interface {
	ActiveOwner() types.OwnerKey
}

// Scheduler debounces cart mutations into persistence writes. Every change
// notification restarts a quiet-period timer; only when edits pause does a
// single save fire with the cart's current state. Seed notifications from
// loading persisted state never schedule a write.
type Scheduler struct {
	gateway saver
	store   snapshotter
	owner   OwnerSource
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	quiet   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool

	saving sync.WaitGroup
}

// Params carries the scheduler dependencies.
type Params struct {
	Gateway     saver
	Store       snapshotter
	OwnerSource OwnerSource
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	QuietPeriod time.Duration
}

// NewScheduler validates the dependencies and builds a Scheduler.
func NewScheduler(p Params) (*Scheduler, error) {
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.OwnerSource == nil {
		return nil, fmt.Errorf("owner source required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.QuietPeriod <= 0 {
		return nil, fmt.Errorf("quiet period must be positive")
	}
	return &Scheduler{
		gateway: p.Gateway,
		store:   p.Store,
		owner:   p.OwnerSource,
		logg:    p.Logger,
		metrics: p.Metrics,
		quiet:   p.QuietPeriod,
	}, nil
}

// OnCartChange restarts the quiet-period timer. Bursts of edits collapse
// into one write once activity pauses for the full quiet period.
func (s *Scheduler) OnCartChange(change cart.Change) {
	if change.Origin == cart.OriginSeed {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.pending {
		s.metrics.IncDeferredMutation()
	}
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if !s.pending || s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.saving.Add(1)
	s.mu.Unlock()

	defer s.saving.Done()
	s.persist(context.Background())
}

// Flush synchronously persists any pending state and waits for an in-flight
// save to land. Used on shutdown and before ownership changes hands.
func (s *Scheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	hadPending := s.pending
	s.pending = false
	s.mu.Unlock()

	s.saving.Wait()
	if hadPending {
		s.persist(ctx)
	}
}

// Cancel drops any pending save without writing. Used when a caller has
// already written the latest state through directly, so the debounced save
// would be a redundant duplicate.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
	s.mu.Unlock()
	s.saving.Wait()
}

// Close stops the scheduler permanently after flushing pending state.
func (s *Scheduler) Close(ctx context.Context) {
	s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// persist snapshots the store at send time so the write always carries the
// latest lines, then saves under the currently active owner. Failures are
// logged and dropped; the next mutation naturally retries.
func (s *Scheduler) persist(ctx context.Context) {
	snapshot := s.store.Snapshot()
	owner := s.owner.ActiveOwner()
	saveCtx := s.logg.WithOwnerKey(ctx, owner.String())

	start := time.Now()
	err := s.gateway.Save(saveCtx, owner, snapshot.Lines, snapshot.Revision)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveSave("failure", elapsed)
		s.logg.Error(saveCtx, "cart autosave failed", err)
		return
	}
	s.metrics.ObserveSave("success", elapsed)
	s.logg.Debug(saveCtx, "cart autosaved")
}
