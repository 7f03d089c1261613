// Package gateway defines the persistence contracts the cart core consumes.
// Implementations live in the httpgw, redisgw, and gormgw subpackages; the
// remote backend remains the merge authority for migrations.
package gateway

import (
	"context"

	"github.com/avelinehq/cartside/pkg/types"
	"github.com/shopspring/decimal"
)

// Gateway persists carts by owner key. Callers apply the soft-failure policy:
// a failed Load is treated as an empty cart, a failed Save is logged and
// dropped, a failed Migrate leaves the session cart in place.
type Gateway interface {
	// Load returns the persisted lines for the owner, or nil when no cart
	// exists under that key.
	Load(ctx context.Context, owner types.OwnerKey) ([]types.CartLine, error)
	// Save replaces the persisted cart for the owner. Revision is the store's
	// logical clock at snapshot time, recorded for last-write-wins audits.
	Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error
	// Migrate merges the session cart into the user cart server-side. After a
	// successful migrate, Load under the user key yields the union of both.
	Migrate(ctx context.Context, sessionID, userID string) error
}

// AbandonmentEvent is the snapshot delivered when a cart goes quiet.
type AbandonmentEvent struct {
	Owner   types.OwnerKey   `json:"owner"`
	Lines   []types.CartLine `json:"items"`
	Total   decimal.Decimal  `json:"total"`
	Contact string           `json:"contact,omitempty"`
}

// Tracker receives abandonment events, fire-and-forget.
type Tracker interface {
	TrackAbandonment(ctx context.Context, event AbandonmentEvent) error
}

// OrderRequest is the frozen cart handed to the external checkout flow.
type OrderRequest struct {
	Owner   types.OwnerKey   `json:"owner"`
	Lines   []types.CartLine `json:"items"`
	Total   decimal.Decimal  `json:"total"`
	Contact string           `json:"contact,omitempty"`
}

// OrderCreator starts an order from a frozen cart and returns its reference.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
}
