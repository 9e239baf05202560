// Package mt5 is the REST client for the MetaTrader 5 bridge sidecar. The
// bridge owns the terminal session; this client implements the domain's
// MarketData and BrokerGateway interfaces on top of its HTTP API.
package mt5

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mzahran/scalpbot/internal/crypto"
)

// ClientConfig holds the bridge endpoint and terminal credentials. When
// BridgeKey and BridgeSecret are set, every request carries HMAC headers
// the bridge verifies.
type ClientConfig struct {
	Endpoint     string // host:port of the bridge, e.g. "localhost:18812"
	Login        int64
	Password     string
	Server       string
	BridgeKey    string
	BridgeSecret string
}

// Client talks to the MT5 bridge over HTTP.
type Client struct {
	baseURL    string
	cfg        ClientConfig
	auth       *crypto.BridgeAuth
	httpClient *http.Client
	connected  atomic.Bool
}

// NewClient creates a bridge client. It does not touch the network; call
// Connect before trading.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL: "http://" + cfg.Endpoint,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	if cfg.BridgeSecret != "" {
		c.auth = &crypto.BridgeAuth{Key: cfg.BridgeKey, Secret: cfg.BridgeSecret}
	}
	return c
}

// Connect asks the bridge to open (or confirm) the terminal session using
// the configured credentials.
func (c *Client) Connect(ctx context.Context) error {
	req := map[string]any{
		"login":    c.cfg.Login,
		"password": c.cfg.Password,
		"server":   c.cfg.Server,
	}
	if _, err := c.doPost(ctx, "/connect", req); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("mt5: connect: %w", err)
	}
	c.connected.Store(true)
	return nil
}

// Connected reports the last known session state. It is refreshed by every
// bridge call rather than probing the network itself.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Ping verifies the bridge and terminal are reachable.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.doGet(ctx, "/health")
	if err != nil {
		c.connected.Store(false)
		return fmt.Errorf("mt5: ping: %w", err)
	}

	var health struct {
		Connected bool `json:"connected"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("mt5: decode health: %w", err)
	}
	c.connected.Store(health.Connected)
	if !health.Connected {
		return fmt.Errorf("mt5: terminal session is down")
	}
	return nil
}

// errNoData marks a 404 from the bridge: the resource simply is not there.
type errNoData struct{ path string }

func (e errNoData) Error() string { return "mt5: no data at " + e.path }

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.sign(req, path, "")
	return c.do(req, path)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, path, string(data))
	return c.do(req, path)
}

// sign attaches bridge HMAC headers when a shared secret is configured.
func (c *Client) sign(req *http.Request, path, body string) {
	if c.auth == nil {
		return
	}
	for k, v := range c.auth.Headers(req.Method, path, body) {
		req.Header.Set(k, v)
	}
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.connected.Store(false)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNoData{path: path}
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	c.connected.Store(true)
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
