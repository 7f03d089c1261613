// Package httpgw speaks the storefront backend's cart endpoints over HTTP.
// It is the production Gateway implementation; the backend owns the merge
// semantics for migrations.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelinehq/cartside/internal/gateway"
	"github.com/avelinehq/cartside/pkg/config"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/types"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements gateway.Gateway, gateway.Tracker, and
// gateway.OrderCreator against the remote backend.
type Client struct {
	base string
	http httpDoer
}

// New builds an HTTP gateway from configuration.
func New(cfg config.GatewayConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing gateway base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

type cartPayload struct {
	Items    []types.CartLine `json:"items"`
	Revision int64            `json:"revision,omitempty"`
}

type migratePayload struct {
	SessionKey string `json:"session_key"`
	UserKey    string `json:"user_key"`
}

type orderResponse struct {
	OrderRef string `json:"order_ref"`
}

// Load fetches the cart persisted under the owner key. A 404 means no cart
// exists yet and is not an error.
func (c *Client) Load(ctx context.Context, owner types.OwnerKey) ([]types.CartLine, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cartURL(owner), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build load request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("load cart: unexpected status %d", resp.StatusCode))
	}

	var payload cartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cart payload")
	}
	return payload.Items, nil
}

// Save replaces the persisted cart under the owner key.
func (c *Client) Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	payload := cartPayload{Items: lines, Revision: revision}
	if payload.Items == nil {
		payload.Items = []types.CartLine{}
	}
	return c.post(ctx, c.cartURL(owner), payload, nil, "save cart")
}

// Migrate asks the backend to merge the session cart into the user cart.
func (c *Client) Migrate(ctx context.Context, sessionID, userID string) error {
	payload := migratePayload{SessionKey: sessionID, UserKey: userID}
	return c.post(ctx, c.base+"/carts/migrate", payload, nil, "migrate cart")
}

// TrackAbandonment reports a quiet cart to the tracking endpoint.
func (c *Client) TrackAbandonment(ctx context.Context, event gateway.AbandonmentEvent) error {
	return c.post(ctx, c.base+"/tracking/abandoned-carts", event, nil, "track abandonment")
}

// CreateOrder hands a frozen cart to the order endpoint and returns the order
// reference.
func (c *Client) CreateOrder(ctx context.Context, req gateway.OrderRequest) (string, error) {
	var out orderResponse
	if err := c.post(ctx, c.base+"/orders", req, &out, "create order"); err != nil {
		return "", err
	}
	if out.OrderRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "create order: missing order_ref")
	}
	return out.OrderRef, nil
}

func (c *Client) post(ctx context.Context, target string, body any, out any, op string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode "+op+" payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+op+" request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s: unexpected status %d", op, resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
		}
	}
	return nil
}

func (c *Client) cartURL(owner types.OwnerKey) string {
	return fmt.Sprintf("%s/carts/%s/%s", c.base, url.PathEscape(string(owner.Kind)), url.PathEscape(owner.ID))
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
