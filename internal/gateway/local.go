package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avelinehq/cartside/pkg/logger"
)

// LoggingTracker records abandonment events in the structured log. Used when
// no remote tracking collaborator is configured.
type LoggingTracker struct {
	logg *logger.Logger
}

func NewLoggingTracker(logg *logger.Logger) (*LoggingTracker, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LoggingTracker{logg: logg}, nil
}

func (t *LoggingTracker) TrackAbandonment(ctx context.Context, event AbandonmentEvent) error {
	ctx = t.logg.WithFields(ctx, map[string]any{
		"owner_key": event.Owner.String(),
		"items":     len(event.Lines),
		"total":     event.Total.String(),
	})
	t.logg.Info(ctx, "cart.abandoned")
	return nil
}

// LocalOrderCreator mints order references locally. Used when no remote
// order collaborator is configured; the reference is only a handle for the
// checkout flow, not a fulfilled order.
type LocalOrderCreator struct {
	logg *logger.Logger
}

func NewLocalOrderCreator(logg *logger.Logger) (*LocalOrderCreator, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LocalOrderCreator{logg: logg}, nil
}

func (c *LocalOrderCreator) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	ref := "ord-" + uuid.NewString()
	ctx = c.logg.WithFields(ctx, map[string]any{
		"owner_key": req.Owner.String(),
		"order_ref": ref,
		"total":     req.Total.String(),
	})
	c.logg.Info(ctx, "order.opened")
	return ref, nil
}
