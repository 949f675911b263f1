package main

import (
	"context"
	"fmt"
	"io"

	"github.com/desertthunder/reel/internal/session"
	"github.com/desertthunder/reel/internal/ui"
)

// Navigator turns session redirects into terminal hints and keeps a record of them.
type Navigator struct {
	session.Recorder

	out     io.Writer
	palette func() *ui.Palette
}

var _ session.Navigator = (*Navigator)(nil)

// NewNavigator creates a [Navigator] writing to out. palette is called per redirect so theme changes apply.
func NewNavigator(out io.Writer, palette func() *ui.Palette) *Navigator {
	if palette == nil {
		palette = func() *ui.Palette { return ui.ForTheme("") }
	}
	return &Navigator{out: out, palette: palette}
}

// Redirect records the redirect and prints what the user should do next.
func (n *Navigator) Redirect(ctx context.Context, target session.View, reason session.Reason) {
	n.Recorder.Redirect(ctx, target, reason)

	p := n.palette()
	loginHint := p.Help("Run `reel auth login <username>` to sign in.")

	switch reason {
	case session.ReasonUserLogout:
		fmt.Fprintln(n.out, p.OK("✓ Logged out"))
	case session.ReasonForced:
		fmt.Fprintln(n.out, p.Warn("Local session cleared"))
	case session.ReasonSessionExpired:
		fmt.Fprintln(n.out, p.Warn("Session expired."))
		fmt.Fprintln(n.out, loginHint)
	case session.ReasonUnauthenticated:
		fmt.Fprintln(n.out, p.Error("Not signed in."))
		fmt.Fprintln(n.out, loginHint)
	}
}
