// Package ui styles command-line output with lipgloss.
//
// A [Palette] is picked from the user's theme preference with [ForTheme] and used for headings, status lines and
// the hints printed when the session redirects (for example after it expires).
package ui
