package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reel/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// authEndpoints never trigger refresh recovery; a 401 from them is final.
//
// /auth/me and its sub-paths are deliberately absent: they are ordinary protected calls.
var authEndpoints = map[string]struct{}{
	"/auth/login":    {},
	"/auth/register": {},
	"/auth/refresh":  {},
	"/auth/logout":   {},
}

// SessionStore is the part of the session the transport relies on.
type SessionStore interface {
	Credential() *oauth2.Token
	Refresh(ctx context.Context) (*oauth2.Token, error)
	Expire(ctx context.Context)
}

// TransportOpts configures a [Transport].
type TransportOpts struct {
	Base              http.RoundTripper // defaults to [http.DefaultTransport]
	Session           SessionStore
	BaseURL           string  // its path is stripped before matching auth endpoints
	RequestsPerSecond float64 // 0 disables limiting
	Logger            *log.Logger
}

// Transport attaches the session's bearer token to every request and recovers once from an expired token.
//
// On a 401 from a non-auth endpoint it refreshes the session and replays the request a single time. If the refresh
// fails, the session is expired and the original 401 response is returned.
type Transport struct {
	base     http.RoundTripper
	session  SessionStore
	limiter  *rate.Limiter
	basePath string
	logger   *log.Logger
}

// pendingRequest is one original request moving through recovery. The caller's request is never mutated.
type pendingRequest struct {
	req     *http.Request
	retried bool
	id      string
}

func (p pendingRequest) retry() pendingRequest {
	p.retried = true
	return p
}

// NewTransport creates a [Transport] from opts.
func NewTransport(opts TransportOpts) *Transport {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	t := &Transport{
		base:    opts.Base,
		session: opts.Session,
		logger:  shared.WithLogger(opts.Logger, "component", "transport"),
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	if u, err := url.Parse(opts.BaseURL); err == nil {
		t.basePath = strings.TrimSuffix(u.Path, "/")
	}

	return t
}

// NewHTTPClient wraps t in an [http.Client] with the given cookie jar and overall timeout.
func NewHTTPClient(t *Transport, jar http.CookieJar, timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Jar: jar, Timeout: timeout}
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.roundTrip(pendingRequest{req: req, id: shared.GenerateID()})
}

func (t *Transport) roundTrip(p pendingRequest) (*http.Response, error) {
	ctx := p.req.Context()

	out, err := t.decorate(p)
	if err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			closeBody(out)
			return nil, err
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("dispatch",
		"request_id", p.id, "method", p.req.Method, "path", p.req.URL.Path,
		"status", resp.StatusCode, "retried", p.retried)

	if !t.recoverable(p, resp) {
		return resp, nil
	}

	if _, err := t.session.Refresh(ctx); err != nil {
		// The caller gave up, not the refresh. The shared refresh keeps running; if it fails, the session is
		// expired by the next request that sees a 401.
		if ctxErr := ctx.Err(); ctxErr != nil {
			resp.Body.Close()
			return nil, ctxErr
		}
		t.logger.Warn("refresh after 401 failed", "request_id", p.id, "path", p.req.URL.Path, "err", err)
		t.session.Expire(ctx)
		return resp, nil
	}

	discard(resp)
	return t.roundTrip(p.retry())
}

// decorate clones the request and attaches the current bearer token.
//
// A retry gets a fresh body from GetBody since the first attempt consumed the original.
func (t *Transport) decorate(p pendingRequest) (*http.Request, error) {
	out := p.req.Clone(p.req.Context())

	if p.retried && hasBody(p.req) {
		body, err := p.req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	if tok := t.session.Credential(); tok != nil {
		tok.SetAuthHeader(out)
	}

	return out, nil
}

// recoverable is the retry eligibility test: 401, first attempt, not an auth endpoint, replayable body.
func (t *Transport) recoverable(p pendingRequest, resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized || p.retried {
		return false
	}
	if IsAuthEndpoint(t.basePath, p.req.URL.Path) {
		return false
	}
	return !hasBody(p.req) || p.req.GetBody != nil
}

// IsAuthEndpoint reports whether path, relative to basePath, is one of the login, register, refresh or logout
// endpoints.
func IsAuthEndpoint(basePath, path string) bool {
	basePath = strings.TrimSuffix(basePath, "/")
	if basePath != "" && (path == basePath || strings.HasPrefix(path, basePath+"/")) {
		path = path[len(basePath):]
	}
	path = "/" + strings.Trim(path, "/")

	_, ok := authEndpoints[path]
	return ok
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

// discard drains a little of the body so the connection can be reused, then closes it.
func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}
