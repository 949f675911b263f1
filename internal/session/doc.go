// Package session holds the client's authentication state.
//
// A [Session] owns the short-lived access credential and the initialized flag. Its methods are the only way to
// change either. The credential is never persisted and never checked for expiry on the client: an expired token
// is discovered when a request comes back 401, at which point the transport calls [Session.Refresh].
//
// # Lifecycle
//
//   - created empty
//   - [Session.Init] runs one silent refresh (cookie based) and marks the session initialized, whatever the outcome
//   - [Session.Login] and [Session.Refresh] store a new credential
//   - [Session.Logout] and [Session.Expire] clear it and redirect to the login view
//
// Initialization happens at most once per process. Concurrent Init and Refresh calls are collapsed so only one
// refresh request reaches the server at a time.
//
// # Collaborators
//
// The session talks to the server through an [Authenticator] and reports view changes through a [Navigator].
// Neither is looked up globally; both are injected by [New].
package session
