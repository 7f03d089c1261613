package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/avelinehq/cartside/internal/gateway"
	"github.com/avelinehq/cartside/internal/identity"
	"github.com/avelinehq/cartside/internal/lifecycle"
	pkgauth "github.com/avelinehq/cartside/pkg/auth"
	"github.com/avelinehq/cartside/pkg/config"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/types"
)

type memGateway struct {
	carts map[string][]types.CartLine
}

func (m *memGateway) Load(ctx context.Context, owner types.OwnerKey) ([]types.CartLine, error) {
	return m.carts[owner.String()], nil
}

func (m *memGateway) Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	m.carts[owner.String()] = lines
	return nil
}

func (m *memGateway) Migrate(ctx context.Context, sessionID, userID string) error {
	sessionKey := types.SessionOwner(sessionID).String()
	userKey := types.UserOwner(userID).String()
	m.carts[userKey] = gateway.MergeLines(m.carts[sessionKey], m.carts[userKey])
	delete(m.carts, sessionKey)
	return nil
}

type memTracker struct{}

func (memTracker) TrackAbandonment(ctx context.Context, event gateway.AbandonmentEvent) error {
	return nil
}

type memCreator struct{}

func (memCreator) CreateOrder(ctx context.Context, req gateway.OrderRequest) (string, error) {
	return "ord-router", nil
}

type memKeyStore struct {
	key string
}

func (m *memKeyStore) Load(ctx context.Context) (string, error) {
	return m.key, nil
}

func (m *memKeyStore) Store(ctx context.Context, key string) (string, error) {
	m.key = key
	return key, nil
}

func testRouter(t *testing.T) (http.Handler, *config.Config, *memGateway) {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		Cart: config.CartConfig{
			QuietPeriod:           time.Hour,
			AbandonmentAfter:      time.Hour,
			FreeShippingThreshold: decimal.NewFromInt(100),
			FlatShippingFee:       decimal.RequireFromString("9.90"),
		},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "cartside"},
	}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	backend := &memGateway{carts: map[string][]types.CartLine{
		"user:user-r": {{ProductID: "P2", UnitListPrice: decimal.NewFromInt(500), Quantity: 1}},
	}}

	provider, err := identity.NewProvider(identity.Params{
		Store:  &memKeyStore{key: "sess-r"},
		Logger: logg,
	})
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	core, err := lifecycle.New(lifecycle.Params{
		Config:   cfg,
		Gateway:  backend,
		Tracker:  memTracker{},
		Creator:  memCreator{},
		Identity: provider,
		Logger:   logg,
	})
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	if err := core.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { core.Shutdown(context.Background()) })

	return NewRouter(cfg, logg, core, prometheus.NewRegistry()), cfg, backend
}

func do(t *testing.T, handler http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	handler, _, _ := testRouter(t)

	if rec := do(t, handler, http.MethodGet, "/health/live", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/health/ready", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/metrics", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", rec.Code)
	}
}

func TestRouterAnonymousToLoginFlow(t *testing.T) {
	handler, cfg, _ := testRouter(t)

	body := []byte(`{"product_id":"P1","unit_list_price":"1000"}`)
	if rec := do(t, handler, http.MethodPost, "/api/v1/cart/items", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, handler, http.MethodPost, "/api/v1/cart/items", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d", rec.Code)
	}

	rec := do(t, handler, http.MethodGet, "/api/v1/cart", nil, nil)
	var envelope struct {
		Data struct {
			Owner  string `json:"owner"`
			Totals struct {
				Subtotal string `json:"subtotal"`
			} `json:"totals"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if envelope.Data.Owner != "session:sess-r" {
		t.Fatalf("expected session owner, got %s", envelope.Data.Owner)
	}
	if envelope.Data.Totals.Subtotal != "2000" {
		t.Fatalf("expected subtotal 2000, got %s", envelope.Data.Totals.Subtotal)
	}

	if rec := do(t, handler, http.MethodPost, "/api/v1/session/login", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("login without token must 401, got %d", rec.Code)
	}

	token, err := pkgauth.IssueAccessToken(cfg.JWT, "user-r", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/session/login", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/cart", nil, nil)
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if envelope.Data.Owner != "user:user-r" {
		t.Fatalf("expected user owner after login, got %s", envelope.Data.Owner)
	}
	if envelope.Data.Totals.Subtotal != "2500" {
		t.Fatalf("expected merged subtotal 2500, got %s", envelope.Data.Totals.Subtotal)
	}
}

func TestRouterCheckoutFlow(t *testing.T) {
	handler, _, backend := testRouter(t)

	if rec := do(t, handler, http.MethodPost, "/api/v1/checkout", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty-cart checkout must 400, got %d", rec.Code)
	}

	body := []byte(`{"product_id":"P1","unit_list_price":"150"}`)
	if rec := do(t, handler, http.MethodPost, "/api/v1/cart/items", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d", rec.Code)
	}

	rec := do(t, handler, http.MethodPost, "/api/v1/checkout", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("begin: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, handler, http.MethodPost, "/api/v1/checkout/confirm", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200 got %d", rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/cart", nil, nil)
	var envelope struct {
		Data struct {
			Items []any `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatal("cart must be empty after confirmed checkout")
	}
	if got := backend.carts["session:sess-r"]; len(got) != 0 {
		t.Fatalf("persisted cart must be emptied, got %+v", got)
	}
}
