// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/reel/internal/session"
	"golang.org/x/oauth2"
)

// FakeAuthenticator is a test double for [session.Authenticator].
//
// Tokens handed out by Refresh come from RefreshTokens in order; once exhausted Refresh fails with RefreshErr
// (or a generic error). A non-nil RefreshGate holds every Refresh until it is closed.
type FakeAuthenticator struct {
	mu            sync.Mutex
	LoginToken    *oauth2.Token
	LoginErr      error
	RefreshTokens []string
	RefreshErr    error
	RefreshGate   chan struct{}
	LogoutErr     error

	LoginCalls   atomic.Int32
	RefreshCalls atomic.Int32
	LogoutCalls  atomic.Int32
}

func (f *FakeAuthenticator) Login(ctx context.Context, creds session.Credentials) (*oauth2.Token, error) {
	f.LoginCalls.Add(1)
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	return f.LoginToken, nil
}

func (f *FakeAuthenticator) Refresh(ctx context.Context) (*oauth2.Token, error) {
	f.RefreshCalls.Add(1)
	if f.RefreshGate != nil {
		<-f.RefreshGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.RefreshTokens) == 0 {
		if f.RefreshErr != nil {
			return nil, f.RefreshErr
		}
		return nil, errors.New("refresh cookie missing")
	}
	next := f.RefreshTokens[0]
	f.RefreshTokens = f.RefreshTokens[1:]
	return &oauth2.Token{AccessToken: next, TokenType: "bearer"}, nil
}

func (f *FakeAuthenticator) Logout(ctx context.Context) error {
	f.LogoutCalls.Add(1)
	return f.LogoutErr
}

// RecordedRequest is what [ScriptedRoundTripper] saw for one request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

// ScriptedRoundTripper answers requests with a fixed sequence of responses, repeating the last one.
type ScriptedRoundTripper struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	requests  []RecordedRequest
}

// ScriptedResponse is one canned answer; a non-nil Err is returned instead of a response.
type ScriptedResponse struct {
	Status int
	Body   string
	Err    error
}

func NewScriptedRoundTripper(responses ...ScriptedResponse) *ScriptedRoundTripper {
	return &ScriptedRoundTripper{responses: responses}
}

func (s *ScriptedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := RecordedRequest{
		Method:        req.Method,
		Path:          req.URL.Path,
		Authorization: req.Header.Get("Authorization"),
	}
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		req.Body.Close()
		rec.Body = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.requests)
	s.requests = append(s.requests, rec)
	if len(s.responses) == 0 {
		return NewResponse(http.StatusOK, ""), nil
	}
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}

	r := s.responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	resp := NewResponse(r.Status, r.Body)
	resp.Request = req
	return resp, nil
}

// Requests returns a copy of every request seen so far.
func (s *ScriptedRoundTripper) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// NewResponse builds a JSON response with the given status and body.
func NewResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
