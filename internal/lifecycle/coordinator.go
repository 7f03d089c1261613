package lifecycle

import (
	"context"
	"fmt"

	"github.com/avelinehq/cartside/internal/abandonment"
	"github.com/avelinehq/cartside/internal/autosave"
	"github.com/avelinehq/cartside/internal/cart"
	"github.com/avelinehq/cartside/internal/checkout"
	"github.com/avelinehq/cartside/internal/gateway"
	"github.com/avelinehq/cartside/internal/identity"
	"github.com/avelinehq/cartside/internal/migration"
	"github.com/avelinehq/cartside/pkg/config"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/types"
)

// Coordinator assembles the cart core and owns its lifecycle: resolve the
// session identity, seed the store from the gateway, fan mutations out to
// autosave and abandonment, and shut the timers down cleanly.
type Coordinator struct {
	store     *cart.Store
	ownerKey  *OwnerState
	scheduler *autosave.Scheduler
	monitor   *abandonment.Monitor
	migration *migration.Service
	checkout  *checkout.Handoff
	gateway   gateway.Gateway
	identity  *identity.Provider
	logg      *logger.Logger
}

// Params carries the coordinator dependencies.
type Params struct {
	Config   *config.Config
	Gateway  gateway.Gateway
	Tracker  gateway.Tracker
	Creator  gateway.OrderCreator
	Identity *identity.Provider
	Logger   *logger.Logger
	Metrics  *metrics.CartMetrics
}

// New builds and wires the coordinator. Start must be called before use.
func New(p Params) (*Coordinator, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if p.Tracker == nil {
		return nil, fmt.Errorf("tracker required")
	}
	if p.Creator == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	store := cart.NewStore()
	ownerKey := NewOwnerState(types.OwnerKey{})

	scheduler, err := autosave.NewScheduler(autosave.Params{
		Gateway:     p.Gateway,
		Store:       store,
		OwnerSource: ownerKey,
		Logger:      p.Logger,
		Metrics:     p.Metrics,
		QuietPeriod: p.Config.Cart.QuietPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("autosave scheduler: %w", err)
	}

	monitor, err := abandonment.NewMonitor(abandonment.Params{
		Tracker:     p.Tracker,
		OwnerSource: ownerKey,
		Logger:      p.Logger,
		Metrics:     p.Metrics,
		After:       p.Config.Cart.AbandonmentAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("abandonment monitor: %w", err)
	}

	migrationSvc, err := migration.NewService(migration.Params{
		Gateway:   p.Gateway,
		Scheduler: scheduler,
		Store:     store,
		Owner:     ownerKey,
		Logger:    p.Logger,
		Metrics:   p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("migration service: %w", err)
	}

	handoff, err := checkout.NewHandoff(checkout.Params{
		Creator: p.Creator,
		Store:   store,
		Gateway: p.Gateway,
		Monitor: monitor,
		Pending: scheduler,
		Owner:   ownerKey,
		Logger:  p.Logger,
		Metrics: p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout handoff: %w", err)
	}

	return &Coordinator{
		store:     store,
		ownerKey:  ownerKey,
		scheduler: scheduler,
		monitor:   monitor,
		migration: migrationSvc,
		checkout:  handoff,
		gateway:   p.Gateway,
		identity:  p.Identity,
		logg:      p.Logger,
	}, nil
}

// Start resolves the anonymous session identity, seeds the store from the
// gateway, and begins observing mutations. A failed load degrades to an
// empty cart.
func (c *Coordinator) Start(ctx context.Context) error {
	sessionKey, err := c.identity.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("resolve session identity: %w", err)
	}
	owner := types.SessionOwner(sessionKey)
	c.ownerKey.SetActiveOwner(owner)
	ctx = c.logg.WithOwnerKey(ctx, owner.String())

	lines, err := c.gateway.Load(ctx, owner)
	if err != nil {
		c.logg.Error(ctx, "loading persisted cart failed, starting empty", err)
		lines = nil
	}

	c.store.Subscribe(c.scheduler)
	c.store.Subscribe(c.monitor)
	if len(lines) > 0 {
		c.store.Replace(lines)
	}

	c.logg.Info(ctx, "cart core started")
	return nil
}

// Login migrates the session cart to the authenticated user.
func (c *Coordinator) Login(ctx context.Context, userID string) error {
	return c.migration.MigrateToUser(ctx, userID)
}

// Shutdown flushes pending saves and stops both timers.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.scheduler.Close(ctx)
	c.monitor.Close()
	c.logg.Info(ctx, "cart core stopped")
}

// Store exposes the cart store for the API layer.
func (c *Coordinator) Store() *cart.Store {
	return c.store
}

// Checkout exposes the checkout handoff for the API layer.
func (c *Coordinator) Checkout() *checkout.Handoff {
	return c.checkout
}

// ActiveOwner returns the identity the cart is currently persisted under.
func (c *Coordinator) ActiveOwner() types.OwnerKey {
	return c.ownerKey.ActiveOwner()
}
