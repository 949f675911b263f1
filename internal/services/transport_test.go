package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/reel/internal/session"
	tu "github.com/desertthunder/reel/internal/testing"
	"golang.org/x/oauth2"
)

type transportFixture struct {
	rt     *tu.ScriptedRoundTripper
	auth   *tu.FakeAuthenticator
	nav    *session.Recorder
	sess   *session.Session
	client *http.Client
}

// newTransportFixture builds a logged-in session holding "t1" in front of a scripted backend.
func newTransportFixture(t *testing.T, responses ...tu.ScriptedResponse) *transportFixture {
	t.Helper()

	f := &transportFixture{
		rt: tu.NewScriptedRoundTripper(responses...),
		auth: &tu.FakeAuthenticator{
			LoginToken: &oauth2.Token{AccessToken: "t1", TokenType: "bearer"},
		},
		nav: &session.Recorder{},
	}
	f.sess = session.New(f.auth, f.nav, nil)
	if err := f.sess.Login(context.Background(), session.Credentials{Username: "ana", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tr := NewTransport(TransportOpts{Base: f.rt, Session: f.sess, BaseURL: "http://api.test"})
	f.client = NewHTTPClient(tr, nil, 0)
	return f
}

func (f *transportFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, "http://api.test"+path, nil)
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestTransport(t *testing.T) {
	t.Run("Attaches Bearer Token", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusOK, Body: "{}"})
		f.get(t, "/titles/42").Body.Close()

		reqs := f.rt.Requests()
		if len(reqs) != 1 || reqs[0].Authorization != "Bearer t1" {
			t.Errorf("expected one request with Bearer t1, got %+v", reqs)
		}
	})

	t.Run("No Credential Sends No Header", func(t *testing.T) {
		rt := tu.NewScriptedRoundTripper(tu.ScriptedResponse{Status: http.StatusOK})
		sess := session.New(&tu.FakeAuthenticator{}, nil, nil)
		client := NewHTTPClient(NewTransport(TransportOpts{Base: rt, Session: sess}), nil, 0)

		resp, err := client.Get("http://api.test/settings/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if got := rt.Requests()[0].Authorization; got != "" {
			t.Errorf("expected no Authorization header, got %q", got)
		}
	})

	t.Run("Does Not Mutate Caller Request", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusOK})
		req, _ := http.NewRequest(http.MethodGet, "http://api.test/titles/1", nil)
		resp, err := f.client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if req.Header.Get("Authorization") != "" {
			t.Error("expected caller's request to stay undecorated")
		}
	})

	t.Run("Recovers Protected 401 With One Refresh", func(t *testing.T) {
		f := newTransportFixture(t,
			tu.ScriptedResponse{Status: http.StatusUnauthorized, Body: `{"detail":"expired"}`},
			tu.ScriptedResponse{Status: http.StatusOK, Body: `{"title_id":42}`},
		)
		f.auth.RefreshTokens = []string{"t2"}

		resp := f.get(t, "/titles/42")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 after recovery, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != `{"title_id":42}` {
			t.Errorf("expected replay body, got %s", body)
		}

		reqs := f.rt.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected 2 dispatches, got %d", len(reqs))
		}
		if reqs[0].Authorization != "Bearer t1" || reqs[1].Authorization != "Bearer t2" {
			t.Errorf("expected t1 then t2, got %q then %q", reqs[0].Authorization, reqs[1].Authorization)
		}
		if n := f.auth.RefreshCalls.Load(); n != 1 {
			t.Errorf("expected 1 refresh, got %d", n)
		}
	})

	t.Run("Profile Endpoint Is Recoverable", func(t *testing.T) {
		f := newTransportFixture(t,
			tu.ScriptedResponse{Status: http.StatusUnauthorized},
			tu.ScriptedResponse{Status: http.StatusOK, Body: `{"id":1}`},
		)
		f.auth.RefreshTokens = []string{"t2"}

		resp := f.get(t, "/auth/me")
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected /auth/me to be retried, got %d", resp.StatusCode)
		}
		if n := f.auth.RefreshCalls.Load(); n != 1 {
			t.Errorf("expected 1 refresh, got %d", n)
		}
	})

	t.Run("Auth Endpoints Are Never Retried", func(t *testing.T) {
		for _, path := range []string{"/auth/login", "/auth/register", "/auth/refresh", "/auth/logout"} {
			t.Run(path, func(t *testing.T) {
				f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusUnauthorized})
				f.auth.RefreshTokens = []string{"t2"}

				resp := f.get(t, path)
				resp.Body.Close()

				if resp.StatusCode != http.StatusUnauthorized {
					t.Errorf("expected 401 passthrough, got %d", resp.StatusCode)
				}
				if len(f.rt.Requests()) != 1 {
					t.Errorf("expected a single dispatch, got %d", len(f.rt.Requests()))
				}
				if n := f.auth.RefreshCalls.Load(); n != 0 {
					t.Errorf("expected no refresh, got %d", n)
				}
				if got := f.sess.Credential(); got == nil || got.AccessToken != "t1" {
					t.Errorf("expected session untouched, got %+v", got)
				}
			})
		}
	})

	t.Run("Failed Refresh Expires Session And Returns Original 401", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusUnauthorized, Body: `{"detail":"token expired"}`})
		f.auth.RefreshErr = errors.New("refresh cookie revoked")

		resp := f.get(t, "/titles/42")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected original 401, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != `{"detail":"token expired"}` {
			t.Errorf("expected original body, got %s", body)
		}
		if len(f.rt.Requests()) != 1 {
			t.Errorf("expected no replay, got %d dispatches", len(f.rt.Requests()))
		}
		if f.sess.Authenticated() {
			t.Error("expected credential cleared")
		}

		last, ok := f.nav.Last()
		if !ok || last.Target != session.ViewLogin || last.Reason != session.ReasonSessionExpired {
			t.Errorf("expected redirect to login as session_expired, got %+v", last)
		}
	})

	t.Run("Cancelled Caller Leaves Expiry To Next 401", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusUnauthorized, Body: `{"detail":"token expired"}`})
		gate := make(chan struct{})
		f.auth.RefreshErr = errors.New("refresh cookie revoked")
		f.auth.RefreshGate = gate

		ctx, cancel := context.WithCancel(context.Background())
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/titles/42", nil)
		errc := make(chan error, 1)
		go func() {
			resp, err := f.client.Do(req)
			if resp != nil {
				resp.Body.Close()
			}
			errc <- err
		}()

		deadline := time.Now().Add(2 * time.Second)
		for f.auth.RefreshCalls.Load() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("refresh never started")
			}
			time.Sleep(time.Millisecond)
		}
		cancel()

		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !f.sess.Authenticated() {
			t.Error("expected credential kept while the caller alone gave up")
		}
		if last, _ := f.nav.Last(); last.Reason == session.ReasonSessionExpired {
			t.Errorf("expected no expiry redirect yet, got %+v", last)
		}

		close(gate)
		resp := f.get(t, "/titles/42")
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected original 401, got %d", resp.StatusCode)
		}
		if f.sess.Authenticated() {
			t.Error("expected the next 401 to expire the session")
		}
		if last, _ := f.nav.Last(); last.Reason != session.ReasonSessionExpired {
			t.Errorf("expected session_expired redirect, got %+v", last)
		}
	})

	t.Run("Second 401 Is Returned As Is", func(t *testing.T) {
		f := newTransportFixture(t,
			tu.ScriptedResponse{Status: http.StatusUnauthorized},
			tu.ScriptedResponse{Status: http.StatusUnauthorized, Body: `{"detail":"still no"}`},
		)
		f.auth.RefreshTokens = []string{"t2", "t3"}

		resp := f.get(t, "/titles/42")
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if len(f.rt.Requests()) != 2 {
			t.Errorf("expected exactly one replay, got %d dispatches", len(f.rt.Requests()))
		}
		if n := f.auth.RefreshCalls.Load(); n != 1 {
			t.Errorf("expected 1 refresh, got %d", n)
		}
		if got := f.sess.Credential(); got == nil || got.AccessToken != "t2" {
			t.Errorf("expected refreshed credential kept, got %+v", got)
		}
	})

	t.Run("Replays Request Body", func(t *testing.T) {
		f := newTransportFixture(t,
			tu.ScriptedResponse{Status: http.StatusUnauthorized},
			tu.ScriptedResponse{Status: http.StatusOK, Body: `{"items":[]}`},
		)
		f.auth.RefreshTokens = []string{"t2"}

		api := NewAPIService("http://api.test", f.client)
		resp, err := api.Post(context.Background(), "/titles/search", []byte(`{"query":"alien"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}

		reqs := f.rt.Requests()
		if len(reqs) != 2 || reqs[0].Body != `{"query":"alien"}` || reqs[1].Body != reqs[0].Body {
			t.Errorf("expected identical bodies on both attempts, got %+v", reqs)
		}
	})

	t.Run("Non Replayable Body Is Not Retried", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Status: http.StatusUnauthorized})
		f.auth.RefreshTokens = []string{"t2"}

		req, _ := http.NewRequest(http.MethodPost, "http://api.test/titles/", io.NopCloser(strings.NewReader(`{"tmdb_id":1}`)))
		resp, err := f.client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if n := f.auth.RefreshCalls.Load(); n != 0 {
			t.Errorf("expected no refresh, got %d", n)
		}
	})

	t.Run("Other Statuses Pass Through", func(t *testing.T) {
		for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
			f := newTransportFixture(t, tu.ScriptedResponse{Status: status})
			resp := f.get(t, "/titles/1")
			resp.Body.Close()

			if resp.StatusCode != status {
				t.Errorf("expected %d, got %d", status, resp.StatusCode)
			}
			if n := f.auth.RefreshCalls.Load(); n != 0 {
				t.Errorf("status %d: expected no refresh, got %d", status, n)
			}
		}
	})

	t.Run("Network Error Propagates", func(t *testing.T) {
		f := newTransportFixture(t, tu.ScriptedResponse{Err: errors.New("connection reset")})
		req, _ := http.NewRequest(http.MethodGet, "http://api.test/titles/1", nil)

		if _, err := f.client.Do(req); err == nil {
			t.Error("expected network error")
		}
		if n := f.auth.RefreshCalls.Load(); n != 0 {
			t.Errorf("expected no refresh, got %d", n)
		}
	})

	t.Run("Rate Limiter", func(t *testing.T) {
		t.Run("Disabled By Default", func(t *testing.T) {
			tr := NewTransport(TransportOpts{Session: session.New(nil, nil, nil)})
			if tr.limiter != nil {
				t.Error("expected no limiter")
			}
		})

		t.Run("Fractional Rate Gets Burst Of One", func(t *testing.T) {
			tr := NewTransport(TransportOpts{Session: session.New(nil, nil, nil), RequestsPerSecond: 0.5})
			if tr.limiter == nil || tr.limiter.Burst() != 1 {
				t.Errorf("expected limiter with burst 1, got %+v", tr.limiter)
			}
		})

		t.Run("Wait Honors Context", func(t *testing.T) {
			rt := tu.NewScriptedRoundTripper()
			tr := NewTransport(TransportOpts{Base: rt, Session: session.New(nil, nil, nil), RequestsPerSecond: 1})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/titles/1", nil)

			if _, err := tr.RoundTrip(req); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if len(rt.Requests()) != 0 {
				t.Error("expected nothing dispatched")
			}
		})
	})
}

func TestIsAuthEndpoint(t *testing.T) {
	tests := []struct {
		basePath string
		path     string
		want     bool
	}{
		{"", "/auth/login", true},
		{"", "/auth/register", true},
		{"", "/auth/refresh", true},
		{"", "/auth/logout", true},
		{"", "/auth/logout/", true},
		{"", "/auth/me", false},
		{"", "/auth/me/password", false},
		{"", "/titles/42", false},
		{"/api", "/api/auth/refresh", true},
		{"/api/", "/api/auth/login", true},
		{"/api", "/api/auth/me", false},
		{"/api", "/apix/auth/refresh", false},
		{"/api", "/auth/refresh", true},
	}

	for _, tt := range tests {
		t.Run(tt.basePath+tt.path, func(t *testing.T) {
			if got := IsAuthEndpoint(tt.basePath, tt.path); got != tt.want {
				t.Errorf("IsAuthEndpoint(%q, %q) = %v, want %v", tt.basePath, tt.path, got, tt.want)
			}
		})
	}
}

// TestAuthenticatedStack runs the real AuthService through the same intercepted client it refreshes for.
func TestAuthenticatedStack(t *testing.T) {
	newStack := func(t *testing.T, refreshOK bool) (*session.Session, *session.Recorder, *LibraryService, *atomic.Int32) {
		t.Helper()

		var refreshHits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/login":
				w.Write([]byte(`{"access_token":"stale","token_type":"bearer"}`))
			case "/auth/refresh":
				refreshHits.Add(1)
				if !refreshOK {
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"detail":"Refresh token missing"}`))
					return
				}
				w.Write([]byte(`{"access_token":"fresh","token_type":"bearer"}`))
			case "/titles/7":
				if r.Header.Get("Authorization") != "Bearer fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"detail":"Token expired"}`))
					return
				}
				w.Write([]byte(`{"title_id":7,"name":"Alien","type":"movie"}`))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(server.Close)

		nav := &session.Recorder{}
		client := &http.Client{}
		api := NewAPIService(server.URL, client)
		sess := session.New(NewAuthService(api), nav, nil)
		client.Transport = NewTransport(TransportOpts{Session: sess, BaseURL: server.URL})

		if err := sess.Login(context.Background(), session.Credentials{Username: "ana", Password: "pw"}); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		return sess, nav, NewLibraryService(api), &refreshHits
	}

	t.Run("Refreshes Through Same Client", func(t *testing.T) {
		sess, _, lib, hits := newStack(t, true)

		title, err := lib.Title(context.Background(), 7)
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if title.Name != "Alien" {
			t.Errorf("unexpected title %+v", title)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 refresh call, got %d", hits.Load())
		}
		if tok := sess.Credential(); tok == nil || tok.AccessToken != "fresh" {
			t.Errorf("expected fresh token stored, got %+v", tok)
		}
	})

	t.Run("Refresh 401 Is Terminal", func(t *testing.T) {
		sess, nav, lib, hits := newStack(t, false)

		_, err := lib.Title(context.Background(), 7)

		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized || se.Detail != "Token expired" {
			t.Fatalf("expected the original 401 surfaced, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected refresh attempted exactly once, got %d", hits.Load())
		}
		if sess.Authenticated() {
			t.Error("expected session cleared")
		}
		if last, _ := nav.Last(); last.Reason != session.ReasonSessionExpired {
			t.Errorf("expected session_expired redirect, got %+v", last)
		}
	})
}
