package autosave

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avelinehq/cartside/internal/cart"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/types"
)

type recordedSave struct {
	owner    types.OwnerKey
	lines    []types.CartLine
	revision int64
}

type fakeSaver struct {
	mu    sync.Mutex
	saves []recordedSave
	ctxs  []context.Context
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, recordedSave{owner: owner, lines: lines, revision: revision})
	f.ctxs = append(f.ctxs, ctx)
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeSaver) last() recordedSave {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func (f *fakeSaver) lastCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxs[len(f.ctxs)-1]
}

type fixedOwner struct {
	owner types.OwnerKey
}

func (f fixedOwner) ActiveOwner() types.OwnerKey {
	return f.owner
}

func newTestScheduler(t *testing.T, store *cart.Store, gateway *fakeSaver, quiet time.Duration) *Scheduler {
	t.Helper()
	s, err := NewScheduler(Params{
		Gateway:     gateway,
		Store:       store,
		OwnerSource: fixedOwner{owner: types.SessionOwner("sess-test")},
		Logger:      logger.New(logger.Options{ServiceName: "autosave-test", Output: io.Discard}),
		QuietPeriod: quiet,
	})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func snapshot(price string) types.PriceSnapshot {
	return types.PriceSnapshot{UnitListPrice: decimal.RequireFromString(price)}
}

func TestSchedulerSavesAfterQuietPeriod(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 20*time.Millisecond)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))

	waitFor(t, func() bool { return gateway.count() == 1 })
	saved := gateway.last()
	if saved.owner != types.SessionOwner("sess-test") {
		t.Fatalf("unexpected owner: %v", saved.owner)
	}
	if len(saved.lines) != 1 || saved.lines[0].ProductID != "sku-a" {
		t.Fatalf("unexpected lines: %+v", saved.lines)
	}
}

func TestSchedulerSaveContextCarriesOwnerKey(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	var buf bytes.Buffer
	logg := logger.New(logger.Options{
		ServiceName: "autosave-test",
		Level:       zerolog.InfoLevel,
		Output:      &buf,
	})
	s, err := NewScheduler(Params{
		Gateway:     gateway,
		Store:       store,
		OwnerSource: fixedOwner{owner: types.SessionOwner("sess-test")},
		Logger:      logg,
		QuietPeriod: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	waitFor(t, func() bool { return gateway.count() == 1 })

	// Logging through the context the gateway received must carry the owner
	// tag, so gateway-side logs stay attributable.
	logg.Info(gateway.lastCtx(), "save context check")
	if !strings.Contains(buf.String(), `"owner_key":"session:sess-test"`) {
		t.Fatalf("save context must carry the owner key, got %s", buf.String())
	}
}

func TestSchedulerCollapsesBursts(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 50*time.Millisecond)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	for i := 0; i < 4; i++ {
		time.Sleep(5 * time.Millisecond)
		store.Add("sku-a", snapshot("10.00"))
	}

	waitFor(t, func() bool { return gateway.count() >= 1 })
	time.Sleep(80 * time.Millisecond)
	if got := gateway.count(); got != 1 {
		t.Fatalf("expected the burst to collapse into one save, got %d", got)
	}
	if qty := gateway.last().lines[0].Quantity; qty != 5 {
		t.Fatalf("save must carry the final quantity, got %d", qty)
	}
}

func TestSchedulerSnapshotsAtExpiry(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 20*time.Millisecond)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	store.Add("sku-b", snapshot("20.00"))

	waitFor(t, func() bool { return gateway.count() == 1 })
	saved := gateway.last()
	if len(saved.lines) != 2 {
		t.Fatalf("expected both lines in the save, got %d", len(saved.lines))
	}
	if saved.revision != store.Revision() {
		t.Fatalf("save revision %d should match store revision %d", saved.revision, store.Revision())
	}
}

func TestSchedulerIgnoresSeeds(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 10*time.Millisecond)
	store.Subscribe(s)

	store.Replace([]types.CartLine{
		{ProductID: "sku-a", UnitListPrice: decimal.NewFromInt(10), Quantity: 1},
	})

	time.Sleep(50 * time.Millisecond)
	if gateway.count() != 0 {
		t.Fatal("loading persisted state must not trigger a save")
	}
}

func TestSchedulerFailureIsDroppedAndNextMutationRetries(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{err: errors.New("gateway down")}
	s := newTestScheduler(t, store, gateway, 10*time.Millisecond)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	time.Sleep(50 * time.Millisecond)
	if gateway.count() != 0 {
		t.Fatal("failed save must not be recorded")
	}

	gateway.mu.Lock()
	gateway.err = nil
	gateway.mu.Unlock()

	store.Add("sku-a", snapshot("10.00"))
	waitFor(t, func() bool { return gateway.count() == 1 })
}

func TestSchedulerFlushPersistsPendingImmediately(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, time.Hour)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	if gateway.count() != 0 {
		t.Fatal("quiet period should still be running")
	}

	s.Flush(context.Background())
	if gateway.count() != 1 {
		t.Fatal("flush must persist the pending state")
	}
}

func TestSchedulerCancelDropsPendingSave(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 20*time.Millisecond)
	store.Subscribe(s)

	store.Add("sku-a", snapshot("10.00"))
	s.Cancel()

	time.Sleep(60 * time.Millisecond)
	if gateway.count() != 0 {
		t.Fatal("cancel must drop the scheduled save")
	}
}

func TestSchedulerCloseStopsFurtherScheduling(t *testing.T) {
	store := cart.NewStore()
	gateway := &fakeSaver{}
	s := newTestScheduler(t, store, gateway, 10*time.Millisecond)
	store.Subscribe(s)

	s.Close(context.Background())
	store.Add("sku-a", snapshot("10.00"))

	time.Sleep(50 * time.Millisecond)
	if gateway.count() != 0 {
		t.Fatal("closed scheduler must not save")
	}
}
