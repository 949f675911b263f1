// Package repositories implements SQLite persistence for the client's local state.
//
// Only two things are kept between runs: resolved user preferences and the cookies set by the API.
// Access tokens are never written to disk; a new process recovers one through the refresh cookie.
//
// Key Implementations:
//   - [PreferenceRepository] : read-through preference cache with built-in defaults
//   - [CookieRepository] : cookie rows keyed by host, name and path
//   - [PersistentJar] : [net/http.CookieJar] backed by [CookieRepository]
package repositories
