package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/shared"
	"golang.org/x/oauth2"
)

// TokenSource is the read side of the session store the gateway needs.
type TokenSource interface {
	Token() (string, bool)
}

// UnauthorizedFunc is told about a 401/403 from the backend, along with the token the request carried.
type UnauthorizedFunc func(status int, token string)

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL        string
	Tokens         TokenSource
	Base           http.RoundTripper
	OnUnauthorized UnauthorizedFunc
	Logger         *log.Logger
}

// Gateway is the [http.RoundTripper] every outbound request goes through.
//
// Requests to the backend origin get "Authorization: Bearer <token>" when a token is stored.
// Requests to any other origin never carry an Authorization header. A 401 or 403 from the backend
// is handed to the caller unchanged, and OnUnauthorized runs once the caller closes the body.
type Gateway struct {
	origin         *url.URL
	tokens         TokenSource
	base           http.RoundTripper
	onUnauthorized UnauthorizedFunc
	logger         *log.Logger
}

// NewGateway creates a [Gateway] for the backend at opts.BaseURL.
func NewGateway(opts GatewayOpts) (*Gateway, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: gateway base URL %q", shared.ErrInvalidConfig, opts.BaseURL)
	}
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}

	return &Gateway{
		origin:         u,
		tokens:         opts.Tokens,
		base:           opts.Base,
		onUnauthorized: opts.OnUnauthorized,
		logger:         opts.Logger,
	}, nil
}

// SetUnauthorizedHandler replaces the 401/403 hook. Used when the handler is built after the client.
func (g *Gateway) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	g.onUnauthorized = fn
}

// Client wraps the gateway in an [http.Client].
func (g *Gateway) Client() *http.Client {
	return &http.Client{Transport: g}
}

// RoundTrip implements [http.RoundTripper].
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	if !g.isBackend(req.URL) {
		if req.Header.Get("Authorization") != "" {
			req = req.Clone(req.Context())
			req.Header.Del("Authorization")
		}
		return g.base.RoundTrip(req)
	}

	var token string
	if g.tokens != nil {
		token, _ = g.tokens.Token()
	}

	var resp *http.Response
	var err error
	if token != "" {
		t := &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   g.base,
		}
		resp, err = t.RoundTrip(req)
	} else {
		resp, err = g.base.RoundTrip(req)
	}
	if err != nil {
		return nil, err
	}

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && g.onUnauthorized != nil {
		g.logger.Debug("backend rejected credentials", "status", resp.StatusCode, "url", req.URL.Path)
		status := resp.StatusCode
		resp.Body = &afterClose{ReadCloser: resp.Body, fn: func() { g.onUnauthorized(status, token) }}
	}
	return resp, nil
}

func (g *Gateway) isBackend(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, g.origin.Scheme) && strings.EqualFold(u.Host, g.origin.Host)
}

// afterClose runs fn once, after the wrapped body is closed.
type afterClose struct {
	io.ReadCloser
	once sync.Once
	fn   func()
}

func (a *afterClose) Close() error {
	err := a.ReadCloser.Close()
	a.once.Do(a.fn)
	return err
}
