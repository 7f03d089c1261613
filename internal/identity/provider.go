package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelinehq/cartside/pkg/logger"
)

// KeyStore persists the durable anonymous session key. A store that cannot
// hold the key returns an error and the provider degrades to an in-memory key.
type KeyStore interface {
	// Load returns the persisted key, or empty string when none exists yet.
	Load(ctx context.Context) (string, error)
	// Store persists the key. When another writer raced ahead, Store returns
	// the winning key instead of the candidate.
	Store(ctx context.Context, key string) (string, error)
}

// Provider issues the durable anonymous session key. The key is generated
// once per storage scope and returned unchanged on every later call.
type Provider struct {
	store KeyStore
	logg  *logger.Logger

	mu     sync.Mutex
	cached string

	now     func() time.Time
	suffix  func() string
	degrade bool
}

// Params carries the provider dependencies.
type Params struct {
	Store  KeyStore
	Logger *logger.Logger
}

// NewProvider validates the dependencies and builds a Provider.
func NewProvider(p Params) (*Provider, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("key store required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Provider{
		store:  p.Store,
		logg:   p.Logger,
		now:    time.Now,
		suffix: randomSuffix,
	}, nil
}

// GetOrCreate returns the session key, creating and persisting one on first
// use. Repeated calls always return the same key. When the store is
// unavailable the provider falls back to a process-local key and logs the
// degraded mode once.
func (p *Provider) GetOrCreate(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	existing, err := p.store.Load(ctx)
	if err == nil && existing != "" {
		p.cached = existing
		return existing, nil
	}
	if err != nil {
		p.degradeLocked(ctx, err)
		return p.cached, nil
	}

	candidate := p.generate()
	stored, err := p.store.Store(ctx, candidate)
	if err != nil {
		p.degradeLocked(ctx, err)
		return p.cached, nil
	}
	if stored != "" {
		candidate = stored
	}
	p.cached = candidate
	return candidate, nil
}

func (p *Provider) degradeLocked(ctx context.Context, cause error) {
	if !p.degrade {
		warnCtx := p.logg.WithField(ctx, "cause", cause.Error())
		p.logg.Warn(warnCtx, "session key storage unavailable, using in-memory key")
		p.degrade = true
	}
	if p.cached == "" {
		p.cached = p.generate()
	}
}

// generate combines a millisecond timestamp with a random suffix so keys
// created by concurrent clients never collide.
func (p *Provider) generate() string {
	return fmt.Sprintf("%d-%s", p.now().UnixMilli(), p.suffix())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
