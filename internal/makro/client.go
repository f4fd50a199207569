package makro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/service"
)

// Client talks to the Makro seller API. All mutating calls carry a
// deterministic idempotency key so a retried request can never mint a second
// listing.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

// NewClient creates a seller API client. In dry-run mode no token source is
// built and no network calls are made.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: cfg.timeout(),
		// The API must never silently redirect an authenticated request;
		// a redirect here means a misconfigured base URL or an auth portal
		// interposing itself.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return fmt.Errorf("%w: %s redirected to %s",
				common.ErrRedirectBlocked, via[0].URL, req.URL)
		},
	}

	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}
	if !cfg.DryRun {
		c.tokens = newTokenSource(ctx, cfg, httpClient)
	}
	return c, nil
}

// listingPayload is the create/update request body.
type listingPayload struct {
	SellerID string  `json:"seller_id"`
	SKU      string  `json:"sku"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
}

type listingResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	SKU   string `json:"sku"`
}

// FindExisting looks up a listing by the candidate's SKU. Lookup is best
// effort: endpoints that do not support search degrade to "no duplicate
// found" so publishing can proceed on the strength of the idempotency key.
func (c *Client) FindExisting(ctx context.Context, candidate *model.Candidate) (*service.Listing, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: candidate", common.ErrInvalidInput)
	}
	if c.cfg.DryRun {
		return nil, nil
	}

	query := url.Values{"sku": {candidate.SKU()}}
	resp, err := c.do(ctx, http.MethodGet, "/seller/v1/listings?"+query.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode.
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		slog.Warn("Listing lookup unsupported by endpoint, proceeding without duplicate check",
			"status", resp.StatusCode,
			"sku", candidate.SKU())
		return nil, nil
	default:
		return nil, c.statusError(resp)
	}

	var result struct {
		Listings []listingResponse `json:"listings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode listing search response: %w", err)
	}

	for _, l := range result.Listings {
		if l.SKU == candidate.SKU() || strings.EqualFold(l.Title, candidate.Title) {
			return &service.Listing{ID: l.ID, Title: l.Title, SKU: l.SKU}, nil
		}
	}
	return nil, nil
}

// CreateListing publishes a candidate. The Idempotency-Key header is derived
// from the source ID alone, so retries of a timed-out create are safe.
func (c *Client) CreateListing(ctx context.Context, candidate *model.Candidate) (*service.ListingResult, error) {
	payload, err := c.buildPayload(candidate)
	if err != nil {
		return nil, err
	}

	if c.cfg.DryRun {
		slog.Info("Dry run: would create listing",
			"sku", payload.SKU,
			"title", payload.Title,
			"price", payload.Price)
		return &service.ListingResult{ListingID: "dry-run-" + payload.SKU, DryRun: true}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/seller/v1/listings", bytes.NewReader(body),
		candidate.IdempotencyKey())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp)
	}

	var created listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}
	return &service.ListingResult{ListingID: created.ID}, nil
}

// UpdateListing refreshes the title and price of an existing listing.
func (c *Client) UpdateListing(ctx context.Context, listingID string, candidate *model.Candidate) (*service.ListingResult, error) {
	if listingID == "" {
		return nil, fmt.Errorf("%w: listing ID", common.ErrInvalidInput)
	}
	payload, err := c.buildPayload(candidate)
	if err != nil {
		return nil, err
	}

	if c.cfg.DryRun {
		slog.Info("Dry run: would update listing",
			"listing_id", listingID,
			"price", payload.Price)
		return &service.ListingResult{ListingID: listingID, DryRun: true}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/seller/v1/listings/"+url.PathEscape(listingID),
		bytes.NewReader(body), candidate.IdempotencyKey())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	return &service.ListingResult{ListingID: listingID}, nil
}

// UpdateStock sets the available quantity on a listing.
func (c *Client) UpdateStock(ctx context.Context, listingID string, quantity int) error {
	if listingID == "" {
		return fmt.Errorf("%w: listing ID", common.ErrInvalidInput)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative: %d", common.ErrInvalidInput, quantity)
	}

	if c.cfg.DryRun {
		slog.Info("Dry run: would update stock",
			"listing_id", listingID,
			"quantity", quantity)
		return nil
	}

	body, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return fmt.Errorf("failed to encode stock payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut,
		"/seller/v1/listings/"+url.PathEscape(listingID)+"/stock", bytes.NewReader(body), "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.statusError(resp)
	}
	return nil
}

// buildPayload validates a candidate and assembles its listing body.
func (c *Client) buildPayload(candidate *model.Candidate) (*listingPayload, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: candidate", common.ErrInvalidInput)
	}
	if !candidate.ValidInput() {
		return nil, fmt.Errorf("%w: candidate %s is missing source data", common.ErrInvalidInput, candidate.SourceID)
	}
	if candidate.ComputedPrice <= 0 {
		return nil, fmt.Errorf("%w: candidate %s has no computed price", common.ErrInvalidInput, candidate.SourceID)
	}

	return &listingPayload{
		SellerID: c.cfg.SellerID,
		SKU:      candidate.SKU(),
		Title:    candidate.Title,
		Category: candidate.Category,
		Price:    candidate.ComputedPrice,
	}, nil
}

// do issues an authenticated request. The idempotency key is attached only
// when non-empty.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, idempotencyKey string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error wraps the CheckRedirect error; surface the sentinel.
		return nil, fmt.Errorf("request to %s failed: %w", path, unwrapURLError(err))
	}
	return resp, nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// statusError maps an unexpected response status to a classified error.
// 5xx and 429 are retryable; auth and conflict never are.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %d from %s: %s", common.ErrAuthFailed, resp.StatusCode, resp.Request.URL.Path, detail)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %d from %s: %s", common.ErrDuplicateListing, resp.StatusCode, resp.Request.URL.Path, detail)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %d from %s", common.ErrRateLimit, resp.StatusCode, resp.Request.URL.Path)
	case resp.StatusCode >= 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("server error %d from %s: %s", resp.StatusCode, resp.Request.URL.Path, detail),
			Retryable: true,
		}
	default:
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, resp.Request.URL.Path, detail)
	}
}

// Ensure Client satisfies the marketplace contract.
var _ service.Marketplace = (*Client)(nil)
