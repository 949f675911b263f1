package session

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reel/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	flightInit    = "init"
	flightRefresh = "refresh"
)

// Credentials are the user-supplied secrets exchanged for an access token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator is the server side of the session: it issues and revokes access tokens.
//
// Refresh relies on ambient state (the httponly refresh cookie) rather than an explicit argument.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*oauth2.Token, error)
	Refresh(ctx context.Context) (*oauth2.Token, error)
	Logout(ctx context.Context) error
}

// Session holds the current access token and whether the initial refresh has completed.
type Session struct {
	auth   Authenticator
	nav    Navigator
	logger *log.Logger

	mu          sync.RWMutex
	token       *oauth2.Token
	initialized bool

	flight singleflight.Group
}

var _ oauth2.TokenSource = (*Session)(nil)

// New creates an empty, uninitialized [Session].
//
// A nil navigator drops redirects and a nil logger discards output.
func New(auth Authenticator, nav Navigator, logger *log.Logger) *Session {
	if nav == nil {
		nav = NavigatorFunc(func(context.Context, View, Reason) {})
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Session{auth: auth, nav: nav, logger: logger}
}

// Credential returns a copy of the current access token, or nil when unauthenticated.
func (s *Session) Credential() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneToken(s.token)
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil
}

// Initialized reports whether the first [Session.Init] has completed.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Token implements [oauth2.TokenSource] over the current credential.
func (s *Session) Token() (*oauth2.Token, error) {
	if tok := s.Credential(); tok != nil {
		return tok, nil
	}
	return nil, shared.ErrNotAuthenticated
}

// Init performs the one-time silent refresh and returns the resulting credential, nil meaning unauthenticated.
//
// Once initialized it returns the current credential without side effects. Concurrent callers share a single
// refresh. A refresh failure is not an error: it yields a nil credential. The error is only set when ctx ends
// before the shared outcome is known; the shared refresh itself keeps running for the other callers.
func (s *Session) Init(ctx context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	if s.initialized {
		defer s.mu.RUnlock()
		return cloneToken(s.token), nil
	}
	s.mu.RUnlock()

	return s.share(ctx, flightInit, func(ctx context.Context) (*oauth2.Token, error) {
		if s.Initialized() {
			return s.Credential(), nil
		}

		_, err := s.Refresh(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Debug("initial refresh failed, starting unauthenticated", "err", err)
			s.token = nil
		}
		s.initialized = true
		return cloneToken(s.token), nil
	})
}

// Login exchanges creds for an access token and redirects home.
//
// On failure any held token is dropped and the error is returned wrapped with [shared.ErrAuthFailed].
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	tok, err := s.auth.Login(ctx, creds)
	if err == nil && !usable(tok) {
		err = shared.ErrMissingToken
	}
	if err != nil {
		s.clear()
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	s.store(tok)
	s.logger.Info("logged in", "user", creds.Username)
	s.nav.Redirect(ctx, ViewHome, ReasonLoggedIn)
	return nil
}

// Refresh requests a new access token from the refresh cookie and stores it.
//
// Failure leaves the session untouched; clearing it is up to the caller. Concurrent calls share one request.
func (s *Session) Refresh(ctx context.Context) (*oauth2.Token, error) {
	tok, err := s.share(ctx, flightRefresh, func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := s.auth.Refresh(ctx)
		if err == nil && !usable(tok) {
			err = shared.ErrMissingToken
		}
		if err != nil {
			return nil, err
		}
		s.store(tok)
		return tok, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return tok, nil
}

// Logout ends the session and redirects to the login view.
//
// Unless quiet, the server is told first; its failure is logged and does not stop the local cleanup.
func (s *Session) Logout(ctx context.Context, quiet bool) {
	reason := ReasonForced
	if !quiet {
		reason = ReasonUserLogout
		if err := s.auth.Logout(ctx); err != nil {
			s.logger.Warn("server logout failed, clearing local session anyway", "err", err)
		}
	}

	s.clear()
	s.nav.Redirect(ctx, ViewLogin, reason)
}

// Expire drops the credential after a failed recovery and redirects to login as "session expired".
func (s *Session) Expire(ctx context.Context) {
	s.clear()
	s.logger.Warn("session expired")
	s.nav.Redirect(ctx, ViewLogin, ReasonSessionExpired)
}

// RequireAuth is the navigation guard for protected operations: it initializes the session once and fails with
// [shared.ErrNotAuthenticated], after redirecting to login, when no credential results.
func (s *Session) RequireAuth(ctx context.Context) error {
	tok, err := s.Init(ctx)
	if err != nil {
		return err
	}
	if tok == nil {
		s.nav.Redirect(ctx, ViewLogin, ReasonUnauthenticated)
		return shared.ErrNotAuthenticated
	}
	return nil
}

// share runs fn once per key across concurrent callers.
//
// fn gets a context detached from the first caller's cancellation so one caller giving up cannot fail the
// others; each caller still stops waiting when its own ctx ends.
func (s *Session) share(ctx context.Context, key string, fn func(context.Context) (*oauth2.Token, error)) (*oauth2.Token, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok, _ := res.Val.(*oauth2.Token)
		return cloneToken(tok), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) store(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = cloneToken(tok)
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}

func usable(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != ""
}

func cloneToken(tok *oauth2.Token) *oauth2.Token {
	if tok == nil {
		return nil
	}
	c := *tok
	return &c
}
