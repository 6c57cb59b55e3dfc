// Package remote implements the client for the authoritative store API.
// Every call is a single attempt with no retry; the cart engine decides
// what degradation looks like when a call fails.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"cartd/internal/model"
	"cartd/internal/session"
	"cartd/internal/transport"
)

// apiVersion is the newest store API major version this client understands.
// The server advertises its version in the X-Cart-Api-Version header; a
// newer major on the wire is logged once per process so operators notice
// before payload drift starts corrupting the mirror.
const apiVersion = "v1"

// versionHeader carries the store API version on responses.
const versionHeader = "X-Cart-Api-Version"

// Config holds store client configuration.
type Config struct {
	// BaseURL is the store API root, e.g. https://shop.example.com.
	BaseURL string

	// Timeout bounds each HTTP call. Defaults to 15s.
	Timeout time.Duration

	Logger *slog.Logger
}

// Client talks to the store's cart, variant, and stock endpoints.
//
// The transport presents a browser TLS fingerprint; see internal/transport.
// Mutations carry a fresh Idempotency-Key so a duplicated request after a
// connection drop cannot double-apply on the server.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
	versionWarn sync.Once
}

// New creates a store API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport.NewBrowserTransport(timeout),
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}, nil
}

// === Cart operations ===

// FetchCart retrieves the authoritative cart.
func (c *Client) FetchCart(ctx context.Context, sess session.Session) (model.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, sess, http.MethodGet, "/api/cart", nil, &payload); err != nil {
		return model.Cart{}, err
	}
	return payload.toCart(), nil
}

// AddItem adds a line to the remote cart and returns the updated cart.
func (c *Client) AddItem(ctx context.Context, sess session.Session, line model.CartLine) (model.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, sess, http.MethodPost, "/api/cart/add", itemEnvelope{Item: line}, &payload); err != nil {
		return model.Cart{}, err
	}
	return payload.toCart(), nil
}

// RemoveItem removes the line addressed by id and returns the updated cart.
func (c *Client) RemoveItem(ctx context.Context, sess session.Session, id model.LineIdentity) (model.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, sess, http.MethodPost, "/api/cart/remove", itemEnvelope{Item: id}, &payload); err != nil {
		return model.Cart{}, err
	}
	return payload.toCart(), nil
}

// UpdateItem patches the line addressed by id and returns the updated cart.
func (c *Client) UpdateItem(ctx context.Context, sess session.Session, id model.LineIdentity, patch model.LinePatch) (model.Cart, error) {
	body := itemEnvelope{Item: updateItem{
		LineIdentity: id,
		Quantity:     patch.Quantity,
		UnitPrice:    patch.UnitPrice,
	}}

	var payload cartPayload
	if err := c.do(ctx, sess, http.MethodPost, "/api/cart/update", body, &payload); err != nil {
		return model.Cart{}, err
	}
	return payload.toCart(), nil
}

// ClearCart empties the remote cart.
func (c *Client) ClearCart(ctx context.Context, sess session.Session) (model.Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, sess, http.MethodPost, "/api/cart/clear", struct{}{}, &payload); err != nil {
		return model.Cart{}, err
	}
	return payload.toCart(), nil
}

// === Variants ===

// FetchVariants retrieves the variant snapshot for a product, in the
// product's declared order.
func (c *Client) FetchVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	if productID == "" {
		return nil, model.NewValidationError("product_id", "required")
	}

	var payload variantsPayload
	path := "/api/products/" + productID + "/variants"
	if err := c.do(ctx, session.Session{}, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Variants, nil
}

// === Stock validation ===

// ValidateStock checks requested quantities against live inventory.
// A rejection is not an error: the result carries success=false and the
// server's message. Errors are transport or server failures only.
func (c *Client) ValidateStock(ctx context.Context, items []StockItem) (StockResult, error) {
	var result StockResult
	err := c.do(ctx, session.Session{}, http.MethodPost, "/api/orders/validate-stock", stockValidateRequest{Items: items}, &result)
	if err != nil {
		return StockResult{}, err
	}
	return result, nil
}

// === Request plumbing ===

// do executes one API call and decodes the response into out.
// Non-2xx statuses map to APIErrors with the server message preserved.
func (c *Client) do(ctx context.Context, sess session.Session, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError(method+" "+path, err)
	}
	defer resp.Body.Close()

	c.checkAPIVersion(resp.Header.Get(versionHeader))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.NewUpstreamError(method+" "+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp.StatusCode, path, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return model.NewUpstreamError(method+" "+path, fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

// statusError maps HTTP failures to the error taxonomy.
func (c *Client) statusError(status int, path string, body []byte) error {
	message := parseErrorMessage(body)

	switch {
	case status == http.StatusNotFound:
		return model.NewNotFoundError(path)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "store API rejected credentials"
		}
		return model.NewUnauthorizedError(message)
	case status == http.StatusTooManyRequests:
		return model.NewRateLimitError("store API")
	case status >= 400 && status < 500:
		if message == "" {
			message = fmt.Sprintf("store API returned %d", status)
		}
		return &model.APIError{
			Code:       "STORE_REJECTED",
			Message:    message,
			StatusCode: status,
			Err:        model.ErrInvalidRequest,
		}
	default:
		return model.NewUpstreamError(path, fmt.Errorf("status %d: %s", status, message))
	}
}

// checkAPIVersion warns once when the store speaks a newer major version.
func (c *Client) checkAPIVersion(advertised string) {
	if advertised == "" {
		return
	}
	v := advertised
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return
	}
	if semver.Compare(semver.Major(v), apiVersion) > 0 {
		c.versionWarn.Do(func() {
			c.logger.Warn("store API is newer than this client",
				slog.String("advertised", advertised),
				slog.String("supported", apiVersion),
			)
		})
	}
}
