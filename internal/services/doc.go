// Package services implements the HTTP side of the client: the authenticating [Transport] and typed clients for
// the media library backend.
//
// # Transport
//
// [Transport] is an [http.RoundTripper] placed under every client. Before dispatch it clones the request and
// attaches the session's bearer token. When a response comes back 401 it runs a one-shot recovery:
//
//  1. the request must not have been retried already and must not target an auth endpoint
//     (/auth/login, /auth/register, /auth/refresh, /auth/logout; see [IsAuthEndpoint])
//  2. the session is refreshed
//  3. on success the request is replayed once with the new token and that result is returned as is
//  4. on failure the session is expired (redirect to login, "session expired") and the original 401 is returned
//
// The retry marker lives on a private pendingRequest value, so a request is retried at most once and the
// refresh call can never recover itself.
//
// # Clients
//
//   - [APIService]: raw Get/Post/Put/Delete plus [APIService.DoJSON]
//   - [AuthService]: register, login, refresh, logout, profile; implements session.Authenticator
//   - [LibraryService]: titles, search, per-user flags, images
//   - [SettingsService]: settings schema and user overrides
//
// # Error Handling
//
// Non-2xx responses become [*StatusError], which unwraps to sentinels from the shared package:
//   - [shared.ErrUnauthorized] : 401 that survived recovery
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrAPIRequest] : anything else
package services
