// Package remote talks to the home-automation HTTP API: house and device
// listings, login, and the peripheral command endpoint used when a schedule
// fires.
package remote

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
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/home-scheduler/internal/persistence"
)

const (
	defaultRatePerSec = 5
	defaultTimeout    = 10 * time.Second
	maxErrorBody      = 4 << 10
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	RatePerSec int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// House is an entry of the house listing.
type House struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// Device is a controllable peripheral of a house.
type Device struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	AvailableCommands []string `json:"availableCommands"`
}

// Client is safe for concurrent use. Every request waits on a shared token
// bucket before hitting the network.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
	log     *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config, tokens TokenSource, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", cfg.BaseURL)
	}

	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		tokens:  tokens,
		log:     log.With("component", "remote"),
	}, nil
}

// SendCommand posts verb to a peripheral of a house. Any 2xx status is a
// success; every other outcome is a *DispatchFailure. Calls are never retried.
func (c *Client) SendCommand(ctx context.Context, houseID int64, peripheralID, verb string) error {
	fail := func(status int, err error) error {
		return &DispatchFailure{HouseID: houseID, PeripheralID: peripheralID, Command: verb, Status: status, Err: err}
	}

	path := fmt.Sprintf("/houses/%d/devices/%s/command", houseID, url.PathEscape(peripheralID))
	resp, err := c.do(ctx, http.MethodPost, path, map[string]string{"command": verb}, true)
	if err != nil {
		return fail(0, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, nil)
	}
	return nil
}

// Dispatch sends a schedule command; it adapts SendCommand for the trigger path.
func (c *Client) Dispatch(ctx context.Context, houseID int64, command persistence.ScheduleCommand) error {
	return c.SendCommand(ctx, houseID, command.PeripheralID, command.Command)
}

// ListHouses returns the houses visible to the signed-in user.
func (c *Client) ListHouses(ctx context.Context) ([]House, error) {
	var payload struct {
		Houses []House `json:"houses"`
	}
	if err := c.getJSON(ctx, "/houses", &payload); err != nil {
		return nil, err
	}
	return payload.Houses, nil
}

// ListDevices returns the peripherals of a house.
func (c *Client) ListDevices(ctx context.Context, houseID int64) ([]Device, error) {
	var payload struct {
		Devices []Device `json:"devices"`
	}
	if err := c.getJSON(ctx, "/houses/"+strconv.FormatInt(houseID, 10)+"/devices", &payload); err != nil {
		return nil, err
	}
	return payload.Devices, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const path = "/auth/login"
	body := map[string]string{"email": email, "password": password}

	resp, err := c.do(ctx, http.MethodPost, path, body, false)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &APIError{Method: http.MethodPost, Path: path, Status: resp.StatusCode}
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("remote: decode login response: %w", err)
	}
	if payload.Token == "" {
		return "", errors.New("remote: login response carried no token")
	}
	return payload.Token, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		if c.tokens == nil {
			return nil, errors.New("remote: no token source configured")
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	c.log.DebugContext(ctx, "request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
