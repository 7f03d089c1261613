package migration

import (
	"context"
	"fmt"

	"github.com/avelinehq/cartside/internal/gateway"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/types"
)

// ownerState is the mutable owner-key slot shared with the rest of the core.
type ownerState interface {
	ActiveOwner() types.OwnerKey
	SetActiveOwner(owner types.OwnerKey)
}

// pendingSaves is the slice of the autosave scheduler the migration drives.
type pendingSaves interface {
	Flush(ctx context.Context)
}

// replacer swaps the in-memory cart for the gateway's merged result.
type replacer interface {
	Replace(lines []types.CartLine)
}

// Service transfers a session cart to a user cart at login. The gateway is
// the merge authority: after a successful migrate the store is reloaded
// under the user key, replacing the in-memory lines wholesale. Failure
// leaves the session cart and owner key untouched.
type Service struct {
	gateway   gateway.Gateway
	scheduler pendingSaves
	store     replacer
	owner     ownerState
	logg      *logger.Logger
	metrics   *metrics.CartMetrics
}

// Params carries the service dependencies.
type Params struct {
	Gateway   gateway.Gateway
	Scheduler pendingSaves
	Store     replacer
	Owner     ownerState
	Logger    *logger.Logger
	Metrics   *metrics.CartMetrics
}

// NewService validates the dependencies and builds a Service.
func NewService(p Params) (*Service, error) {
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if p.Scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.Owner == nil {
		return nil, fmt.Errorf("owner state required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		gateway:   p.Gateway,
		scheduler: p.Scheduler,
		store:     p.Store,
		owner:     p.Owner,
		logg:      p.Logger,
		metrics:   p.Metrics,
	}, nil
}

// MigrateToUser folds the active session cart into the given user's cart.
// Pending autosaves are flushed first so the server-side merge sees the
// latest session lines, and the owner key flips before the store is
// reseeded so no later save lands under the stale session key.
func (s *Service) MigrateToUser(ctx context.Context, userID string) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	active := s.owner.ActiveOwner()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"owner_key": active.String(),
		"user_id":   userID,
	})

	if active.IsUser() {
		if active.ID == userID {
			s.logg.Debug(ctx, "cart already owned by user, migration skipped")
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already owned by a different user")
	}

	s.scheduler.Flush(ctx)

	if err := s.gateway.Migrate(ctx, active.ID, userID); err != nil {
		s.metrics.IncMigration("failure")
		s.logg.Error(ctx, "cart migration failed, keeping session cart", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "migrate cart")
	}

	userKey := types.UserOwner(userID)
	s.owner.SetActiveOwner(userKey)

	lines, err := s.gateway.Load(ctx, userKey)
	if err != nil {
		s.logg.Error(ctx, "reload after migration failed, starting from empty cart", err)
		lines = nil
	}
	s.store.Replace(lines)

	s.metrics.IncMigration("success")
	s.logg.Info(ctx, "session cart migrated to user")
	return nil
}
