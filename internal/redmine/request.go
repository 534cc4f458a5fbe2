package redmine

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Jeffail/gabs/v2"
)

// Operation is the HTTP verb of a request
type Operation int

const (
	Get Operation = iota
	Post
	Put
	Delete
)

func (op Operation) method() (string, bool) {
	switch op {
	case Get:
		return http.MethodGet, true
	case Post:
		return http.MethodPost, true
	case Put:
		return http.MethodPut, true
	case Delete:
		return http.MethodDelete, true
	}
	return "", false
}

func (op Operation) String() string {
	if m, ok := op.method(); ok {
		return m
	}
	return "Operation(" + strconv.Itoa(int(op)) + ")"
}

var (
	ErrNotInitialised   = errors.New("network manager not yet initialised")
	ErrNoResource       = errors.New("no resource specified")
	ErrNoCallback       = errors.New("no callback specified for HTTP GET mode")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrClosed           = errors.New("client is closed")
)

// JSONCallback receives a finished reply and its body parsed as JSON. The
// document is never nil; a body that is not valid JSON yields an empty object.
type JSONCallback func(reply *Reply, doc *gabs.Container)

// HTTPError is the error of a reply with a non-success status code
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Error transferring %s - server replied: %s", e.URL, e.Status)
}

// Reply is the handle of a request. It is returned by SendRequest and passed to
// the callback once the request has finished; its fields are only valid from
// within the callback.
type Reply struct {
	id     uint64
	Method string
	URL    *url.URL

	StatusCode int
	Header     http.Header

	body []byte
	err  error
}

// ID returns the sequence number of the request
func (r *Reply) ID() uint64 {
	return r.id
}

// Err returns the network error of a finished reply, including HTTP error
// statuses and certificate failures. It is nil on success.
func (r *Reply) Err() error {
	return r.err
}

// ErrorString describes the reply error
func (r *Reply) ErrorString() string {
	if r.err == nil {
		return "Unknown error"
	}
	return r.err.Error()
}

// Body returns the raw response body. It is released after the callback returns.
func (r *Reply) Body() []byte {
	return r.body
}

// SendRequest sends a request to <url>/<resource>.json?<queryParams>.
//
// GET requests need a callback; other operations without a callback are fire
// and forget. On validation failure the error is logged and a nil handle is
// returned.
func (c *Client) SendRequest(resource string, callback JSONCallback, op Operation, queryParams string, postData []byte) (*Reply, error) {
	reply, err := c.sendRequest(resource, callback, op, queryParams, postData)
	if err != nil {
		c.logger.Error("failed to send request", "resource", resource, "operation", op.String(), "error", err)
		return nil, err
	}
	return reply, nil
}

func (c *Client) sendRequest(resource string, callback JSONCallback, op Operation, queryParams string, postData []byte) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.httpClient == nil {
		return nil, ErrNotInitialised
	}
	if resource == "" {
		return nil, ErrNoResource
	}
	if op == Get && callback == nil {
		return nil, ErrNoCallback
	}
	method, ok := op.method()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}

	rawURL := c.url + "/" + resource + ".json?" + queryParams
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	c.logger.Debug("using URL", "url", u.String(), "operation", method)

	var body io.Reader
	if op == Post || op == Put {
		body = bytes.NewReader(postData)
	}
	req, err := http.NewRequestWithContext(c.ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	length := len(postData)
	if body == nil {
		length = 0
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Custom-User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(length))
	req.ContentLength = int64(length)
	if c.auth != nil {
		c.auth.AddAuthentication(req)
	}

	c.nextID++
	reply := &Reply{id: c.nextID, Method: method, URL: u}
	if callback != nil {
		c.pending[reply] = callback
	}

	client := c.httpClient
	checkSSL := c.checkSSL
	c.wg.Add(1)
	go c.do(client, req, reply, checkSSL)

	return reply, nil
}

func (c *Client) do(client *http.Client, req *http.Request, reply *Reply, checkSSL bool) {
	defer c.wg.Done()

	resp, err := client.Do(req)
	c.updateNetworkAccessible(err)
	if err != nil {
		reply.err = err
		if checkSSL && isCertificateError(err) {
			c.logger.Warn("SSL error, rejecting connection", "url", reply.URL.String(), "error", err)
		}
	} else {
		reply.StatusCode = resp.StatusCode
		reply.Header = resp.Header
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		reply.body = data

		switch {
		case resp.StatusCode >= 400:
			reply.err = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: reply.URL.String()}
		case readErr != nil:
			reply.err = fmt.Errorf("failed to read response: %w", readErr)
		}
	}

	c.events.post(func() { c.replyFinished(reply) })
}

// replyFinished runs once per finished request on the event goroutine.
func (c *Client) replyFinished(reply *Reply) {
	c.mu.Lock()
	callback, ok := c.pending[reply]
	delete(c.pending, reply)
	c.mu.Unlock()

	if ok {
		callback(reply, parseDocument(reply.body))
	}
	reply.body = nil
}

func parseDocument(data []byte) *gabs.Container {
	doc, err := gabs.ParseJSON(data)
	if err != nil || doc == nil || doc.Data() == nil {
		return gabs.New()
	}
	return doc
}

// updateNetworkAccessible records whether a request reached the server and
// posts the reachability hooks on a change. Aborted requests and certificate
// failures leave the state as it is. The hooks are posted ahead of the reply.
func (c *Client) updateNetworkAccessible(err error) {
	var reachable bool
	switch {
	case err == nil:
		reachable = true
	case isUnreachable(err):
		reachable = false
	default:
		return
	}

	c.mu.Lock()
	if reachable == c.networkReachable {
		c.mu.Unlock()
		return
	}
	c.networkReachable = reachable
	hooks := append([]func(bool){}, c.reachHooks...)
	c.mu.Unlock()

	c.logger.Info("network accessibility changed", "accessible", reachable)
	for _, hook := range hooks {
		c.events.post(func() { hook(reachable) })
	}
}

func isUnreachable(err error) bool {
	if errors.Is(err, context.Canceled) || isCertificateError(err) {
		return false
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func isCertificateError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verification *tls.CertificateVerificationError
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}
