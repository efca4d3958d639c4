// Package supabase talks to the hosted backend-as-a-service over its REST
// surface: the GoTrue identity endpoints under /auth/v1 and the PostgREST
// record store under /rest/v1.
package supabase

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

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/ports"
)

// Config holds the project endpoint and keys.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// Observer receives the outcome of every remote call.
type Observer func(operation string, elapsed time.Duration, err error)

// Client is a thin JSON client for one project. It is safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	log        zerolog.Logger
	observe    Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver reports call latency and errors to fn.
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

func NewClient(cfg Config, log zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "supabase").Logger(),
		observe:    func(string, time.Duration, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// credential selects the key and bearer token a request is sent with.
type credential int

const (
	// asAnon sends the anon key, or the caller's access token when ctx has one.
	asAnon credential = iota
	// asService sends the service-role key.
	asService
)

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	cred    credential
	token   string // explicit bearer token, overrides ctx
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	start := time.Now()
	err := c.send(ctx, r, out)
	c.observe(r.op, time.Since(start), err)
	if err != nil {
		c.log.Debug().Err(err).Str("op", r.op).Msg("remote call failed")
	}
	return err
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(r.body); err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}

	key := c.anonKey
	bearer := c.anonKey
	if r.cred == asService {
		key = c.serviceKey
		bearer = c.serviceKey
	} else if token := ports.AccessTokenFrom(ctx); token != "" {
		bearer = token
	}
	if r.token != "" {
		bearer = r.token
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: %w", r.op, decodeError(resp))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// Ping checks that the project answers. Any HTTP response counts as alive.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("supabase ping: status %d", resp.StatusCode)
	}
	return nil
}
