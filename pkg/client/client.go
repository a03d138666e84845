package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when the server has no record for the request.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when the server rejects the credentials.
var ErrUnauthorized = errors.New("unauthorized")

// maxResponseBytes bounds response bodies; arrival batches can be large.
const maxResponseBytes = 8 << 20

// Client is the SeaSense SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client
	cache      *vesselCache

	username  string
	password  string
	basicOnly bool // the server issues no session tokens

	// token state, guarded by mu
	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time // zero = token was set manually (no auto-refresh)
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithCacheTTL enables in-memory caching of registry lookups.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newVesselCache(ttl)
		return nil
	}
}

// WithBearerToken attaches a pre-obtained session token to every request.
// The token is treated as long-lived and will not be auto-refreshed.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
		return nil
	}
}

// WithBasicAuth configures operator credentials. They are exchanged for a
// session token at POST /api/auth/token; if the server issues no tokens the
// credentials are sent as HTTP Basic on every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) error {
		if username == "" {
			return errors.New("basic auth: username is required")
		}
		c.username, c.password = username, password
		return nil
	}
}

// New creates a Client for the seasense-api at base.
func New(base string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// GetVessel returns the registry record for an IMO.
func (c *Client) GetVessel(ctx context.Context, imo string) (*Vessel, error) {
	if c.cache != nil {
		if v, ok := c.cache.get(imo); ok {
			return v, nil
		}
	}
	var v Vessel
	if err := c.getJSON(ctx, "/api/vessels/imo/"+url.PathEscape(imo), &v); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.set(imo, &v)
	}
	return &v, nil
}

// SearchVessels returns registry records whose current or former name
// contains name.
func (c *Client) SearchVessels(ctx context.Context, name string) ([]Vessel, error) {
	var out []Vessel
	if err := c.getJSON(ctx, "/api/vessels/name/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Arriving assesses vessels due within windowHours (the server default when
// zero), or only imo when it is set.
func (c *Client) Arriving(ctx context.Context, imo string, windowHours int) ([]Assessment, error) {
	body := map[string]any{}
	if imo != "" {
		body["imo"] = imo
	}
	if windowHours > 0 {
		body["windowHours"] = windowHours
	}
	var out []Assessment
	if err := c.postJSON(ctx, "/api/vessels/arriving", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search assesses recently arrived vessels matching query by IMO, call sign
// or name.
func (c *Client) Search(ctx context.Context, query string) ([]Assessment, error) {
	var out []Assessment
	if err := c.postJSON(ctx, "/api/vessels/search", map[string]string{"query": query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Score scores the registry record for an IMO. The server records the
// result in its ledger; LedgerIndex reports where.
func (c *Client) Score(ctx context.Context, imo string) (*ScoreResult, error) {
	hdr, body, err := c.send(ctx, http.MethodGet, "/api/score/"+url.PathEscape(imo), nil)
	if err != nil {
		return nil, err
	}
	var res ScoreResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	res.LedgerIndex = -1
	if s := hdr.Get("X-Ledger-Index"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			res.LedgerIndex = n
		}
	}
	return &res, nil
}

// Headers returns the export header row of the server's ruleset.
func (c *Client) Headers(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/api/score/headers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ruleset returns the server's ruleset configuration as JSON.
func (c *Client) Ruleset(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.getJSON(ctx, "/api/score/ruleset", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LedgerHistory returns up to limit ledger entries for an IMO, newest first.
func (c *Client) LedgerHistory(ctx context.Context, imo string, limit int) ([]LedgerEntry, error) {
	path := "/api/ledger/imo/" + url.PathEscape(imo)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []LedgerEntry
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyLedger asks the server to verify its ledger chain.
func (c *Client) VerifyLedger(ctx context.Context) (*LedgerStatus, error) {
	var st LedgerStatus
	if err := c.getJSON(ctx, "/api/ledger", &st); err != nil {
		return nil, err
	}
	if err := c.getJSON(ctx, "/api/ledger/verify", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// FetchToken exchanges the configured credentials for a session token,
// caches it and returns it.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	token, expiry, err := c.fetchTokenRaw(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.bearerToken = token
	c.tokenExpiry = expiry
	c.mu.Unlock()
	return token, nil
}

// errNoTokens marks a server that accepts Basic credentials but does not
// issue session tokens.
var errNoTokens = errors.New("server does not issue session tokens")

func (c *Client) fetchTokenRaw(ctx context.Context) (token string, expiry time.Time, err error) {
	if c.username == "" {
		return "", time.Time{}, errors.New("no credentials configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/token", nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read token response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", time.Time{}, errNoTokens
	case resp.StatusCode == http.StatusUnauthorized:
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(body))
	case resp.StatusCode >= 300:
		return "", time.Time{}, fmt.Errorf("token endpoint error %d: %s", resp.StatusCode, errorMessage(body))
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}

	// Refresh 60 s before actual expiry to avoid clock-skew failures.
	const refreshBuffer = 60 * time.Second
	exp := time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - refreshBuffer)
	return payload.Token, exp, nil
}

// authorize sets the Authorization header: a cached or freshly fetched
// session token, or Basic credentials when the server issues no tokens.
func (c *Client) authorize(req *http.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bearerToken != "" && (c.tokenExpiry.IsZero() || time.Now().Before(c.tokenExpiry)) {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		return nil
	}
	if c.username == "" {
		return nil
	}
	if c.basicOnly {
		req.SetBasicAuth(c.username, c.password)
		return nil
	}

	token, expiry, err := c.fetchTokenRaw(req.Context())
	if errors.Is(err, errNoTokens) {
		c.basicOnly = true
		req.SetBasicAuth(c.username, c.password)
		return nil
	}
	if err != nil {
		return err
	}
	c.bearerToken = token
	c.tokenExpiry = expiry
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, body, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	_, body, err := c.send(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (http.Header, []byte, error) {
	var bodyReader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(body))
	case resp.StatusCode >= 300:
		return nil, nil, fmt.Errorf("server error %d: %s", resp.StatusCode, errorMessage(body))
	}
	return resp.Header, body, nil
}

// errorMessage extracts {"error": "..."} from a response body, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// ── Vessel cache ─────────────────────────────────────────────────────────────

type cacheEntry struct {
	vessel    *Vessel
	expiresAt time.Time
}

type vesselCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newVesselCache(ttl time.Duration) *vesselCache {
	return &vesselCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (vc *vesselCache) get(key string) (*Vessel, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	e, ok := vc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	cp := *e.vessel
	return &cp, true
}

func (vc *vesselCache) set(key string, v *Vessel) {
	cp := *v
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries[key] = &cacheEntry{vessel: &cp, expiresAt: time.Now().Add(vc.ttl)}
}
