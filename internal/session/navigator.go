package session

import (
	"context"
	"sync"
)

// View is a navigation target.
type View string

const (
	ViewLogin View = "login"
	ViewHome  View = "home"
)

// Reason tags why a redirect happened.
type Reason string

const (
	ReasonLoggedIn        Reason = "logged_in"
	ReasonUserLogout      Reason = "user_logout"
	ReasonForced          Reason = "forced"
	ReasonSessionExpired  Reason = "session_expired"
	ReasonUnauthenticated Reason = "unauthenticated"
)

// Navigator receives redirects produced by session transitions.
type Navigator interface {
	Redirect(ctx context.Context, target View, reason Reason)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, target View, reason Reason)

// Redirect calls f.
func (f NavigatorFunc) Redirect(ctx context.Context, target View, reason Reason) {
	f(ctx, target, reason)
}

// Redirect is one recorded navigation.
type Redirect struct {
	Target View
	Reason Reason
}

// Recorder is a [Navigator] that keeps every redirect it receives.
type Recorder struct {
	mu        sync.Mutex
	redirects []Redirect
}

// Redirect implements [Navigator].
func (r *Recorder) Redirect(_ context.Context, target View, reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, Redirect{Target: target, Reason: reason})
}

// All returns a copy of the recorded redirects in arrival order.
func (r *Recorder) All() []Redirect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Redirect(nil), r.redirects...)
}

// Last returns the most recent redirect and whether there was one.
func (r *Recorder) Last() (Redirect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.redirects) == 0 {
		return Redirect{}, false
	}
	return r.redirects[len(r.redirects)-1], true
}
