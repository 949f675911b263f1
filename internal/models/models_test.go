package models

import (
	"encoding/json"
	"testing"
)

func TestParseFlag(t *testing.T) {
	tt := []struct {
		in      string
		want    Flag
		wantErr bool
	}{
		{in: "watchlist", want: FlagWatchlist},
		{in: " Favourite ", want: FlagFavourite},
		{in: "watch-next", want: FlagWatchNext},
		{in: "library", want: FlagLibrary},
		{in: "watched", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFlag(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseFlag(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseFlag(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRawString(t *testing.T) {
	tt := []struct {
		name string
		raw  json.RawMessage
		want string
	}{
		{name: "string", raw: json.RawMessage(`"dark"`), want: "dark"},
		{name: "bool", raw: json.RawMessage(`true`), want: "true"},
		{name: "number", raw: json.RawMessage(`20`), want: "20"},
		{name: "empty", raw: nil, want: ""},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := RawString(tc.raw); got != tc.want {
				t.Errorf("RawString() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTitleYear(t *testing.T) {
	if got := (Title{ReleaseDate: "1999-03-31"}).Year(); got != "1999" {
		t.Errorf("Year() = %q, want 1999", got)
	}
	if got := (Title{}).Year(); got != "" {
		t.Errorf("Year() = %q, want empty", got)
	}
}
