package lifecycle

import (
	"sync"

	"github.com/avelinehq/cartside/pkg/types"
)

// OwnerState is the single mutable owner-key slot shared by the scheduler,
// monitor, migration, and checkout. Exactly one key is active at a time;
// migration is the only writer after startup.
type OwnerState struct {
	mu    sync.Mutex
	owner types.OwnerKey
}

// NewOwnerState starts with the given owner key.
func NewOwnerState(owner types.OwnerKey) *OwnerState {
	return &OwnerState{owner: owner}
}

// ActiveOwner returns the identity the cart is currently persisted under.
func (s *OwnerState) ActiveOwner() types.OwnerKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// SetActiveOwner switches the active identity.
func (s *OwnerState) SetActiveOwner(owner types.OwnerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}
