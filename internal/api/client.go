package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wesm/redmine-tracker/internal/redmine"
)

// DefaultPageSize is the number of items requested per page of a paginated list
const DefaultPageSize = 100

// Client wraps the Redmine transport with typed operations on Redmine resources
// and a connection heartbeat.
type Client struct {
	rc       *redmine.Client
	pageSize int
	logger   *slog.Logger

	mu            sync.Mutex
	checking      bool
	checkGen      uint64
	connectivity  Connectivity
	listeners     []func(Connectivity)
	recoveryDelay time.Duration
	recovery      *time.Timer
	closed        bool
}

// Option configures a Client
type Option func(*Client)

// WithPageSize sets the page size used by paginated retrievals
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger of the client and its transport
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "api")
		redmine.WithLogger(logger)(c.rc)
	}
}

// WithTransportOptions passes options to the underlying transport
func WithTransportOptions(opts ...redmine.Option) Option {
	return func(c *Client) {
		for _, opt := range opts {
			opt(c.rc)
		}
	}
}

// NewClient creates a client for url without authentication. It starts
// working once an authenticator is set.
func NewClient(url string, opts ...Option) *Client {
	c := newClient(opts...)
	c.rc.SetURL(url)
	return c
}

// NewKeyClient creates a client using API key authentication
func NewKeyClient(url, apiKey string, checkSSL bool, opts ...Option) *Client {
	c := newClient(opts...)
	c.rc.SetCheckSSL(checkSSL)
	c.rc.SetURL(url)
	c.rc.SetAuthenticatorKey(apiKey)
	return c
}

// NewPasswordClient creates a client using basic authentication
func NewPasswordClient(url, login, password string, checkSSL bool, opts ...Option) *Client {
	c := newClient(opts...)
	c.rc.SetCheckSSL(checkSSL)
	c.rc.SetURL(url)
	c.rc.SetAuthenticatorPassword(login, password)
	return c
}

func newClient(opts ...Option) *Client {
	c := &Client{
		rc:            redmine.New(),
		pageSize:      DefaultPageSize,
		logger:        slog.Default().With("component", "api"),
		recoveryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rc.OnInitialised(c.CheckConnectionStatus)
	c.rc.OnNetworkAccessibleChanged(func(bool) { c.CheckConnectionStatus() })
	return c
}

// Transport returns the underlying transport client
func (c *Client) Transport() *redmine.Client {
	return c.rc
}

// PageSize returns the page size of paginated retrievals
func (c *Client) PageSize() int {
	return c.pageSize
}

// URL returns the Redmine base URL
func (c *Client) URL() string {
	return c.rc.URL()
}

// SetURL sets the Redmine base URL
func (c *Client) SetURL(url string) {
	c.rc.SetURL(url)
}

// SetAuthenticatorKey switches to API key authentication
func (c *Client) SetAuthenticatorKey(apiKey string) {
	c.rc.SetAuthenticatorKey(apiKey)
}

// SetAuthenticatorPassword switches to basic authentication
func (c *Client) SetAuthenticatorPassword(login, password string) {
	c.rc.SetAuthenticatorPassword(login, password)
}

// SetAuthenticator installs a custom authenticator
func (c *Client) SetAuthenticator(auth redmine.Authenticator) {
	c.rc.SetAuthenticator(auth)
}

// SetCheckSSL enables or disables certificate verification
func (c *Client) SetCheckSSL(checkSSL bool) {
	c.rc.SetCheckSSL(checkSSL)
}

// SetUserAgent sets the user agent
func (c *Client) SetUserAgent(userAgent string) {
	c.rc.SetUserAgent(userAgent)
}

// Reconnect recreates the connection manager and checks the connection
func (c *Client) Reconnect() {
	c.rc.Reconnect()
	c.CheckConnectionStatus()
}

// Close stops the heartbeat and releases the transport. Listeners are not
// called after Close.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.recovery != nil {
		c.recovery.Stop()
		c.recovery = nil
	}
	c.mu.Unlock()

	return c.rc.Close()
}
