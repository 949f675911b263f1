package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is the authenticated account as returned by /auth/me.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// TitleType distinguishes movies from series.
type TitleType string

const (
	TitleMovie TitleType = "movie"
	TitleTV    TitleType = "tv"
)

// Title is a movie or series in the library, with the current user's flags.
type Title struct {
	ID          int       `json:"title_id"`
	TMDBID      int       `json:"tmdb_id"`
	Type        TitleType `json:"type"`
	Name        string    `json:"name"`
	Overview    string    `json:"overview,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	PosterPath  string    `json:"poster_path,omitempty"`
	InLibrary   bool      `json:"in_library"`
	Watchlist   bool      `json:"in_watchlist"`
	Favourite   bool      `json:"is_favourite"`
	WatchNext   bool      `json:"in_watch_next"`
}

// Year returns the release year, or "" when the date is missing.
func (t Title) Year() string {
	if len(t.ReleaseDate) < 4 {
		return ""
	}
	return t.ReleaseDate[:4]
}

// TitleList is a page of search results.
type TitleList struct {
	Items      []Title `json:"items"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total_items"`
}

// TitleQuery is the body of a title search.
type TitleQuery struct {
	Query string    `json:"query,omitempty"`
	Type  TitleType `json:"title_type,omitempty"`
	Page  int       `json:"page,omitempty"`
	TMDB  bool      `json:"-"`
}

// Flag is a per-user marker on a title.
type Flag string

const (
	FlagLibrary   Flag = "library"
	FlagWatchlist Flag = "watchlist"
	FlagFavourite Flag = "favourite"
	FlagWatchNext Flag = "watch-next"
)

// ParseFlag validates a user-supplied flag name.
func ParseFlag(s string) (Flag, error) {
	switch f := Flag(strings.ToLower(strings.TrimSpace(s))); f {
	case FlagLibrary, FlagWatchlist, FlagFavourite, FlagWatchNext:
		return f, nil
	}
	return "", fmt.Errorf("unknown flag %q (want library, watchlist, favourite or watch-next)", s)
}

// Setting is one entry of the server's settings schema.
type Setting struct {
	Key          string          `json:"key"`
	Type         string          `json:"type,omitempty"`
	DefaultValue json.RawMessage `json:"default_value"`
	Choices      []string        `json:"choices,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// UserSetting is a per-user override of a [Setting].
type UserSetting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// PreferenceSource records where a resolved preference came from.
type PreferenceSource string

const (
	SourceDefault  PreferenceSource = "default"
	SourceServer   PreferenceSource = "server"
	SourceOverride PreferenceSource = "override"
	SourceLocal    PreferenceSource = "local"
)

// Preference is a resolved setting value held in the local cache.
type Preference struct {
	Key       string
	Value     string
	Source    PreferenceSource
	UpdatedAt time.Time
}

// RawString renders a JSON value for storage: strings lose their quotes, anything else stays JSON.
func RawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
