package makro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"relist/internal/common"
)

// tokenExpiryMargin is how long before real expiry a cached token is treated
// as stale. Refreshing early keeps a token from dying mid-request.
const tokenExpiryMargin = 60 * time.Second

// tokenSource exchanges client credentials for a bearer token at the seller
// API's token endpoint. It fetches a fresh token on every call; callers get
// caching by wrapping it in newTokenSource.
type tokenSource struct {
	ctx        context.Context
	httpClient *http.Client
	cfg        *Config
}

// newTokenSource returns a cached token source that refreshes within
// tokenExpiryMargin of expiry. The cache is safe for concurrent use.
func newTokenSource(ctx context.Context, cfg *Config, httpClient *http.Client) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, &tokenSource{
		ctx:        ctx,
		cfg:        cfg,
		httpClient: httpClient,
	}, tokenExpiryMargin)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.cfg.APIKey},
		"client_secret": {s.cfg.APISecret},
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request failed: %w", common.ErrAuthFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s",
			common.ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token response: %w", common.ErrAuthFailed, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned an empty token", common.ErrAuthFailed)
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		Expiry:      time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
