package redmine

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
)

// DefaultUserAgent is sent when no user agent was configured
const DefaultUserAgent = "redmine-tracker"

// Client handles the connection to a Redmine instance and provides raw access
// to the Redmine REST API.
//
// Requests are sent asynchronously. Completion callbacks are delivered on a
// single event goroutine owned by the client, so callbacks never run
// concurrently with each other.
type Client struct {
	mu sync.Mutex

	url       string
	checkSSL  bool
	userAgent string

	auth     Authenticator
	authKind string

	transport  *http.Transport
	httpClient *http.Client

	pending map[*Reply]JSONCallback
	nextID  uint64

	initHooks        []func()
	reachHooks       []func(bool)
	networkReachable bool

	closed bool

	events *loop
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used by the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "transport")
	}
}

// WithUserAgent sets the initial user agent
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates an unconfigured client. It becomes usable once both a URL and an
// authenticator have been set.
func New(opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		checkSSL:         true,
		userAgent:        DefaultUserAgent,
		networkReachable: true,
		pending:          make(map[*Reply]JSONCallback),
		events:           newLoop(),
		ctx:              ctx,
		cancel:           cancel,
		logger:           slog.Default().With("component", "transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithKey creates a client using API key authentication
func NewWithKey(url, apiKey string, checkSSL bool, opts ...Option) *Client {
	c := New(opts...)
	c.SetCheckSSL(checkSSL)
	c.SetURL(url)
	c.SetAuthenticatorKey(apiKey)
	return c
}

// NewWithPassword creates a client using basic authentication
func NewWithPassword(url, login, password string, checkSSL bool, opts ...Option) *Client {
	c := New(opts...)
	c.SetCheckSSL(checkSSL)
	c.SetURL(url)
	c.SetAuthenticatorPassword(login, password)
	return c
}

// OnInitialised registers fn to run on the event goroutine each time the
// connection is (re-)initialised.
func (c *Client) OnInitialised(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initHooks = append(c.initHooks, fn)
}

// OnNetworkAccessibleChanged registers fn to run on the event goroutine when the
// server stops or starts answering at the network level. Requests that fail
// before any response arrives mark it unreachable; any response marks it
// reachable again.
func (c *Client) OnNetworkAccessibleChanged(fn func(accessible bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reachHooks = append(c.reachHooks, fn)
}

// NetworkAccessible reports whether the last finished request reached the server
func (c *Client) NetworkAccessible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.networkReachable
}

// URL returns the Redmine base URL
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// CheckSSL reports whether certificates are verified
func (c *Client) CheckSSL() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkSSL
}

// Initialised reports whether a connection manager exists
func (c *Client) Initialised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpClient != nil
}

// SetURL sets the Redmine base URL
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	if url == c.url {
		c.mu.Unlock()
		return
	}
	c.url = url
	ready := c.auth != nil && url != ""
	c.mu.Unlock()

	if ready {
		c.Init()
	}
}

// SetAuthenticatorKey switches to API key authentication
func (c *Client) SetAuthenticatorKey(apiKey string) {
	c.setAuthenticator("key:"+apiKey, NewKeyAuthenticator(apiKey))
}

// SetAuthenticatorPassword switches to basic authentication
func (c *Client) SetAuthenticatorPassword(login, password string) {
	c.setAuthenticator("basic:"+login+"\x00"+password, NewPasswordAuthenticator(login, password))
}

// SetAuthenticator installs a custom authenticator, e.g. a TokenAuthenticator.
// Installing the same authenticator again is a no-op.
func (c *Client) SetAuthenticator(auth Authenticator) {
	c.mu.Lock()
	same := c.auth == auth
	c.mu.Unlock()
	if same {
		return
	}
	c.setAuthenticator("", auth)
}

func (c *Client) setAuthenticator(kind string, auth Authenticator) {
	c.mu.Lock()
	if kind != "" && kind == c.authKind {
		c.mu.Unlock()
		return
	}
	c.authKind = kind
	c.auth = auth
	ready := c.url != ""
	c.mu.Unlock()

	if ready {
		c.Init()
	}
}

// SetCheckSSL enables or disables certificate verification
func (c *Client) SetCheckSSL(checkSSL bool) {
	c.mu.Lock()
	if checkSSL == c.checkSSL {
		c.mu.Unlock()
		return
	}
	c.checkSSL = checkSSL
	ready := c.auth != nil && c.url != ""
	c.mu.Unlock()

	if ready {
		c.Init()
	}
}

// SetUserAgent sets the user agent sent with every request
func (c *Client) SetUserAgent(userAgent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = userAgent
}

// Init reconnects and then runs the initialised hooks.
func (c *Client) Init() {
	c.Reconnect()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	hooks := append([]func(){}, c.initHooks...)
	c.mu.Unlock()

	for _, hook := range hooks {
		c.events.post(hook)
	}
}

// Reconnect replaces the underlying connection manager. Requests already in
// flight finish on the old one. It does nothing once the client is closed.
func (c *Client) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !c.checkSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicitly requested
	}
	c.transport = transport
	c.httpClient = &http.Client{Transport: transport}

	c.logger.Debug("connection manager initialised", "url", c.url, "check_ssl", c.checkSSL)
}

// Pending returns the number of registered callbacks still waiting for a reply
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close aborts in-flight requests, waits for their goroutines and releases the
// connection manager. Callbacks that have not run yet are dropped. A closed
// client rejects further requests with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.events.stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	c.transport = nil
	c.httpClient = nil
	c.pending = make(map[*Reply]JSONCallback)
	return nil
}
