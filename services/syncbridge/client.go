package syncbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hearthline-bakery/hearthline-api/services"
)

// External catalog table names, shared with the public front end
const (
	TableBakeSlots = "bake_slots"
	TableFlavors   = "flavors"
	TableLocations = "locations"
)

// Intake row results reported back to the external store
const (
	IntakeResultProcessed = "processed"
	IntakeResultRejected  = "rejected"
)

// IntakeItem is one requested line of a publicly submitted order
type IntakeItem struct {
	FlavorID uint   `json:"flavor_id"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// IntakeOrder is the payload of a publicly submitted order, carrying contact
// details instead of a customer id
type IntakeOrder struct {
	CustomerName     string       `json:"customer_name"`
	CustomerEmail    string       `json:"customer_email"`
	CustomerPhone    string       `json:"customer_phone"`
	BakeSlotID       uint         `json:"bake_slot_id"`
	PickupLocationID uint         `json:"pickup_location_id"`
	Items            []IntakeItem `json:"items"`
}

// IntakeRow is one row of the external store's intake area
type IntakeRow struct {
	ID          string      `json:"id"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Order       IntakeOrder `json:"order"`
}

// RowStore is the external public-facing store: a disposable, reconstructable
// cache of the private catalog plus an intake area for public orders.
type RowStore interface {
	// UpsertRow writes a row keyed by table and id; resending the same state
	// is idempotent (last-write wins by record id)
	UpsertRow(ctx context.Context, table, id string, fields map[string]interface{}) error
	// ListIntakeRows returns submitted public orders with row ids after the
	// given watermark
	ListIntakeRows(ctx context.Context, afterID string) ([]IntakeRow, error)
	// MarkIntakeProcessed records the intake outcome on the external row
	MarkIntakeProcessed(ctx context.Context, rowID, result string) error
}

// Client talks to the external store over HTTP with bearer auth and bounded
// exponential backoff on transient failures.
type Client struct {
	baseURL     string
	storeID     string
	tokens      *TokenSource
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration
}

// NewClient validates the target store configuration and builds a client
func NewClient(baseURL, storeID string, tokens *TokenSource) (*Client, error) {
	if baseURL == "" || storeID == "" {
		return nil, fmt.Errorf("%w: sync base URL and store id are required", services.ErrConfigMissing)
	}
	return &Client{
		baseURL:     baseURL,
		storeID:     storeID,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 4,
		backoffBase: 500 * time.Millisecond,
	}, nil
}

// UpsertRow writes one catalog row, keyed by table and record id
func (c *Client) UpsertRow(ctx context.Context, table, id string, fields map[string]interface{}) error {
	path := fmt.Sprintf("/stores/%s/tables/%s/rows/%s", c.storeID, table, id)
	return c.doWithRetry(ctx, http.MethodPut, path, fields, nil)
}

// ListIntakeRows reads publicly submitted orders after the watermark
func (c *Client) ListIntakeRows(ctx context.Context, afterID string) ([]IntakeRow, error) {
	path := fmt.Sprintf("/stores/%s/intake?after=%s", c.storeID, afterID)
	var out struct {
		Rows []IntakeRow `json:"rows"`
	}
	if err := c.doWithRetry(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// MarkIntakeProcessed reports an intake row's outcome back to the store
func (c *Client) MarkIntakeProcessed(ctx context.Context, rowID, result string) error {
	path := fmt.Sprintf("/stores/%s/intake/%s/status", c.storeID, rowID)
	return c.doWithRetry(ctx, http.MethodPost, path, map[string]interface{}{"result": result}, nil)
}

// doWithRetry runs one request with bearer auth, retrying transient failures
// (network errors, 429, 5xx) with exponential backoff. After the attempts
// are exhausted it surfaces ErrSyncUnavailable; 4xx responses are permanent
// and fail immediately.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", services.ErrSyncUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %s %s failed after %d attempts: %v",
		services.ErrSyncUnavailable, method, path, c.maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &permanentError{fmt.Errorf("failed to encode request body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &permanentError{fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("malformed response: %w", err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("store returned status %d", resp.StatusCode)
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &permanentError{fmt.Errorf("store rejected %s %s with status %d: %s",
			method, path, resp.StatusCode, string(raw))}
	}
}

// permanentError marks failures that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}
