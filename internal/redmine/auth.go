package redmine

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// Authenticator attaches exactly one authorization header to an outgoing request.
type Authenticator interface {
	AddAuthentication(req *http.Request)
}

// KeyAuthenticator authenticates with a Redmine API key
type KeyAuthenticator struct {
	apiKey string
}

// NewKeyAuthenticator creates an API key authenticator
func NewKeyAuthenticator(apiKey string) *KeyAuthenticator {
	return &KeyAuthenticator{apiKey: apiKey}
}

// AddAuthentication sets the X-Redmine-API-Key header
func (a *KeyAuthenticator) AddAuthentication(req *http.Request) {
	req.Header.Set("X-Redmine-API-Key", a.apiKey)
}

// PasswordAuthenticator authenticates with HTTP basic auth
type PasswordAuthenticator struct {
	login    string
	password string
}

// NewPasswordAuthenticator creates a login/password authenticator
func NewPasswordAuthenticator(login, password string) *PasswordAuthenticator {
	return &PasswordAuthenticator{login: login, password: password}
}

// AddAuthentication sets a basic Authorization header
func (a *PasswordAuthenticator) AddAuthentication(req *http.Request) {
	creds := base64.StdEncoding.EncodeToString([]byte(a.login + ":" + a.password))
	req.Header.Set("Authorization", "Basic "+creds)
}

// TokenAuthenticator sends OAuth2 access tokens, supported by Redmine 6.1 and later.
type TokenAuthenticator struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// NewTokenAuthenticator creates a bearer authenticator backed by src
func NewTokenAuthenticator(src oauth2.TokenSource, logger *slog.Logger) *TokenAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenAuthenticator{src: src, logger: logger}
}

// NewStaticTokenAuthenticator creates a bearer authenticator for a fixed access token
func NewStaticTokenAuthenticator(accessToken string) *TokenAuthenticator {
	return NewTokenAuthenticator(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}), nil)
}

// AddAuthentication sets a bearer Authorization header. A token source failure is
// logged and the request goes out unauthenticated; the server answers with 401.
func (a *TokenAuthenticator) AddAuthentication(req *http.Request) {
	tok, err := a.src.Token()
	if err != nil {
		a.logger.Error("failed to obtain access token", "error", err)
		return
	}
	tok.SetAuthHeader(req)
}
