// Package wishes provides a Go client for the wishes guestbook API:
// REST calls, a Server-Sent Events consumer, and a Reconciler that merges
// cached, authoritative, and optimistic state into one consistent view.
package wishes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Header names recognized by the server for privileged operations.
const (
	HeaderAdminPass = "X-Admin-Pass"
	HeaderSeedToken = "X-Seed-Token"
)

// Wish is one guestbook entry as returned by the API.
type Wish struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a wishes API client. The zero value is not usable; construct
// with NewClient. AdminPass and SeedToken are optional and only needed for
// the delete and import operations.
type Client struct {
	BaseURL    string
	AdminPass  string
	SeedToken  string
	HTTPClient *http.Client
}

// NewClient creates a client for the given base URL, which should include
// the API prefix (for example "http://localhost:8080/api").
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wishes: server error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized reports whether err is an APIError with HTTP status 401.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is an APIError with HTTP status 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// IsAmbiguousPrefix reports whether err is an APIError with HTTP status 409,
// returned when a shortened id matches more than one wish.
func IsAmbiguousPrefix(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusConflict
}

// doRequest performs an HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = "unknown"
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}
	return respBody, nil
}

// CreateWishRequest is the request body for creating a wish.
type CreateWishRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// CreateWishResponse is the response from creating a wish.
type CreateWishResponse struct {
	OK   bool   `json:"ok"`
	ID   string `json:"id"`
	Wish *Wish  `json:"wish"`
}

// CreateWish submits a new wish and returns the stored record.
func (c *Client) CreateWish(ctx context.Context, name, message string) (*CreateWishResponse, error) {
	body, _ := json.Marshal(CreateWishRequest{Name: name, Message: message})
	respBody, err := c.doRequest(ctx, http.MethodPost, "/wish", body, nil)
	if err != nil {
		return nil, err
	}
	var out CreateWishResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWishesResponse is the response from listing wishes.
type ListWishesResponse struct {
	Wishes []Wish `json:"wishes"`
}

// ListWishes returns all wishes, newest first.
func (c *Client) ListWishes(ctx context.Context) (*ListWishesResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/wishes", nil, nil)
	if err != nil {
		return nil, err
	}
	var out ListWishesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CountResponse is the response from counting wishes.
type CountResponse struct {
	Count int64 `json:"count"`
}

// Count returns the total number of wishes.
func (c *Client) Count(ctx context.Context) (int64, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/wishes/count", nil, nil)
	if err != nil {
		return 0, err
	}
	var out CountResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// TypingRequest is the request body for a typing presence signal.
type TypingRequest struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

// Typing reports typing presence. Failures are returned but safe to ignore.
func (c *Client) Typing(ctx context.Context, name string, typing bool) error {
	body, _ := json.Marshal(TypingRequest{Name: name, Typing: typing})
	_, err := c.doRequest(ctx, http.MethodPost, "/wish/typing", body, nil)
	return err
}

// DeleteWishResponse is the response from deleting a wish.
type DeleteWishResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

// DeleteWish removes a wish by full id or unique id prefix (6 hex chars
// minimum). Requires AdminPass to be set on the client.
func (c *Client) DeleteWish(ctx context.Context, idOrPrefix string) (*DeleteWishResponse, error) {
	h := http.Header{}
	h.Set(HeaderAdminPass, c.AdminPass)
	respBody, err := c.doRequest(ctx, http.MethodDelete, "/messages/"+idOrPrefix, nil, h)
	if err != nil {
		return nil, err
	}
	var out DeleteWishResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportItem is one record in an import batch. ID and CreatedAt are
// preserved as given; records whose id already exists are skipped.
type ImportItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportRequest is the request body for a seed import.
type ImportRequest struct {
	Wishes []ImportItem `json:"wishes"`
}

// ImportResponse is the response from a seed import.
type ImportResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

// Import inserts a batch of wishes with caller-chosen ids, skipping ids that
// already exist. Requires SeedToken to be set on the client.
func (c *Client) Import(ctx context.Context, items []ImportItem) (*ImportResponse, error) {
	body, _ := json.Marshal(ImportRequest{Wishes: items})
	h := http.Header{}
	h.Set(HeaderSeedToken, c.SeedToken)
	respBody, err := c.doRequest(ctx, http.MethodPost, "/wishes/import", body, h)
	if err != nil {
		return nil, err
	}
	var out ImportResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	Store             string `json:"store"`
	Broker            string `json:"broker"`
	StreamSubscribers int    `json:"stream_subscribers,omitempty"`
}

// Health reports server health. The endpoint is served at the server root,
// outside the API prefix.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	root := &Client{BaseURL: base.Scheme + "://" + base.Host, HTTPClient: c.HTTPClient}
	respBody, err := root.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
