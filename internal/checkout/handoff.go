package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/avelinehq/cartside/internal/cart"
	"github.com/avelinehq/cartside/internal/gateway"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/money"
	"github.com/avelinehq/cartside/pkg/types"
)

// monitorControl suppresses abandonment tracking while a checkout runs.
type monitorControl interface {
	CheckoutStarted()
	CheckoutEnded()
}

// cartAccess is the slice of the cart store the handoff needs.
type cartAccess interface {
	Snapshot() cart.Change
	Clear()
}

// saver persists the emptied cart after a confirmed checkout.
type saver interface {
	Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error
}

// pendingSaves drops a debounced save that the confirm write-through has
// already superseded.
type pendingSaves interface {
	Cancel()
}

// OwnerSource resolves the identity the cart is currently persisted under.
type OwnerSource interface {
	ActiveOwner() types.OwnerKey
}

// Handoff freezes the cart for the external checkout flow. Begin captures a
// read-only snapshot and opens an order; success clears the cart and
// persists the empty state so a reload cannot resurrect stale lines; cancel
// leaves the cart untouched.
type Handoff struct {
	creator gateway.OrderCreator
	store   cartAccess
	gateway saver
	monitor monitorControl
	pending pendingSaves
	owner   OwnerSource
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mu     sync.Mutex
	begun  bool
	active *ActiveCheckout
}

// ActiveCheckout is the frozen cart handed to the payment collaborator.
type ActiveCheckout struct {
	OrderRef string
	Lines    []types.CartLine
	Total    decimal.Decimal
}

// Params carries the handoff dependencies.
type Params struct {
	Creator gateway.OrderCreator
	Store   cartAccess
	Gateway saver
	Monitor monitorControl
	Pending pendingSaves
	Owner   OwnerSource
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// NewHandoff validates the dependencies and builds a Handoff.
func NewHandoff(p Params) (*Handoff, error) {
	if p.Creator == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if p.Monitor == nil {
		return nil, fmt.Errorf("monitor required")
	}
	if p.Pending == nil {
		return nil, fmt.Errorf("pending saves required")
	}
	if p.Owner == nil {
		return nil, fmt.Errorf("owner source required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handoff{
		creator: p.Creator,
		store:   p.Store,
		gateway: p.Gateway,
		monitor: p.Monitor,
		pending: p.Pending,
		owner:   p.Owner,
		logg:    p.Logger,
		metrics: p.Metrics,
	}, nil
}

// Begin freezes the current lines and total and opens an order with the
// external collaborator. The abandonment monitor is suppressed until the
// checkout resolves. An empty cart cannot start a checkout.
func (h *Handoff) Begin(ctx context.Context, contact string) (*ActiveCheckout, error) {
	// Reserve the checkout before any blocking work so a concurrent Begin
	// cannot slip past the guard while CreateOrder is in flight.
	h.mu.Lock()
	if h.begun {
		h.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress")
	}
	h.begun = true
	h.mu.Unlock()

	snapshot := h.store.Snapshot()
	if snapshot.Empty() {
		h.release()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot start checkout with an empty cart")
	}

	owner := h.owner.ActiveOwner()
	total := money.CartTotal(snapshot.Lines)
	ctx = h.logg.WithOwnerKey(ctx, owner.String())

	h.monitor.CheckoutStarted()
	orderRef, err := h.creator.CreateOrder(ctx, gateway.OrderRequest{
		Owner:   owner,
		Lines:   snapshot.Lines,
		Total:   total,
		Contact: contact,
	})
	if err != nil {
		h.release()
		h.monitor.CheckoutEnded()
		h.metrics.IncCheckout("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	checkout := &ActiveCheckout{OrderRef: orderRef, Lines: snapshot.Lines, Total: total}
	h.mu.Lock()
	h.active = checkout
	h.mu.Unlock()

	h.metrics.IncCheckout("begun")
	h.logg.Info(h.logg.WithField(ctx, "order_ref", orderRef), "checkout started")
	return checkout, nil
}

// ConfirmSuccess ends the checkout after payment succeeded. The cart is
// cleared in memory and the empty state is written through immediately.
func (h *Handoff) ConfirmSuccess(ctx context.Context) error {
	h.mu.Lock()
	if h.active == nil {
		h.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout in progress")
	}
	orderRef := h.active.OrderRef
	h.active = nil
	h.begun = false
	h.mu.Unlock()

	owner := h.owner.ActiveOwner()
	ctx = h.logg.WithFields(ctx, map[string]any{
		"owner_key": owner.String(),
		"order_ref": orderRef,
	})

	h.store.Clear()
	// Clear scheduled a debounced save of the empty cart; the direct write
	// below supersedes it, so drop it instead of writing twice.
	h.pending.Cancel()
	emptied := h.store.Snapshot()
	if err := h.gateway.Save(ctx, owner, nil, emptied.Revision); err != nil {
		h.logg.Error(ctx, "persisting emptied cart failed", err)
	}
	h.monitor.CheckoutEnded()

	h.metrics.IncCheckout("success")
	h.logg.Info(ctx, "checkout confirmed, cart cleared")
	return nil
}

// Cancel abandons the checkout mid-flow. The cart is left untouched and
// abandonment tracking resumes on the next qualifying mutation.
func (h *Handoff) Cancel(ctx context.Context) error {
	h.mu.Lock()
	if h.active == nil {
		h.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout in progress")
	}
	orderRef := h.active.OrderRef
	h.active = nil
	h.begun = false
	h.mu.Unlock()

	h.monitor.CheckoutEnded()
	h.metrics.IncCheckout("cancelled")
	h.logg.Info(h.logg.WithField(ctx, "order_ref", orderRef), "checkout cancelled")
	return nil
}

func (h *Handoff) release() {
	h.mu.Lock()
	h.begun = false
	h.mu.Unlock()
}

// Active returns the in-flight checkout, or nil.
func (h *Handoff) Active() *ActiveCheckout {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}
