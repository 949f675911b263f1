package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/reel/internal/session"
	"github.com/desertthunder/reel/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v3"
)

// authStatus is the --json shape of `auth status`.
type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	TokenType     string `json:"token_type,omitempty"`
	BaseURL       string `json:"base_url"`
}

func credentials(cmd *cli.Command) (session.Credentials, error) {
	username, err := argString(cmd, 0, "username")
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{Username: username, Password: cmd.String("password")}, nil
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	creds, err := credentials(cmd)
	if err != nil {
		return err
	}

	user, err := r.auth.Register(ctx, creds)
	if err != nil {
		return err
	}

	r.logger.Info("account created", "user", user.Username)
	r.writeOK("Registered %s", user.Username)
	return r.writePlain("Run 'reel auth login %s' to sign in\n", user.Username)
}

// AuthLogin signs in, then syncs settings on a best-effort basis.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds, err := credentials(cmd)
	if err != nil {
		return err
	}

	if err := r.session.Login(ctx, creds); err != nil {
		return err
	}
	r.writeOK("Signed in as %s", creds.Username)

	if result, err := r.settings.Sync(ctx, nil); err != nil {
		r.logger.Warn("settings sync failed", "err", err)
		r.writeWarn("Settings were not synced; run 'reel settings sync' later")
	} else {
		r.logger.Debug("settings synced after login", "count", len(result.Preferences))
	}
	return nil
}

// AuthLogout ends the session. --quiet skips the server call.
//
// The stored cookies go too, otherwise the next run would silently sign back in with the refresh cookie.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.session.Logout(ctx, cmd.Bool("quiet"))

	if err := r.jar.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored cookies: %w", err)
	}
	return nil
}

// AuthStatus reports whether the refresh cookie still yields a session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := authStatus{BaseURL: r.api.BaseURL()}
	if tok := r.session.Credential(); tok != nil {
		status.Authenticated = true
		status.TokenType = tok.Type()
		status.Subject = tokenSubject(tok.AccessToken)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	p := r.palette()
	r.writePlain("%s\n", p.Title("Session"))
	r.writePlain("Server: %s\n", status.BaseURL)
	if !status.Authenticated {
		return r.writePlain("Authentication: %s\n", p.Error("✗ Not signed in"))
	}
	r.writePlain("Authentication: %s\n", p.OK("✓ Signed in"))
	if status.Subject != "" {
		r.writePlain("Subject: %s\n", status.Subject)
	}
	return nil
}

// AuthWhoami prints the signed in account.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	user, err := r.auth.Me(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}
	return r.writePlain("%s (id %d)\n", user.Username, user.ID)
}

// AuthPasswd changes the password.
func (r *Runner) AuthPasswd(ctx context.Context, cmd *cli.Command) error {
	if err := r.auth.ChangePassword(ctx, cmd.String("current"), cmd.String("new")); err != nil {
		return err
	}
	return r.writeOK("Password changed")
}

// AuthRename changes the username.
func (r *Runner) AuthRename(ctx context.Context, cmd *cli.Command) error {
	username, err := argString(cmd, 0, "username")
	if err != nil {
		return err
	}

	user, err := r.auth.UpdateMe(ctx, username)
	if err != nil {
		return err
	}
	return r.writeOK("Username changed to %s", user.Username)
}

// AuthDelete removes the account and clears the local session without a server logout.
func (r *Runner) AuthDelete(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to delete your account", shared.ErrMissingArgument)
	}

	if err := r.auth.DeleteMe(ctx); err != nil {
		return err
	}
	r.writeOK("Account deleted")

	r.session.Logout(ctx, true)
	if err := r.jar.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored cookies: %w", err)
	}
	return nil
}

// tokenSubject reads the sub claim without verifying the signature. It is display-only: the server is the
// authority on validity and expiry.
func tokenSubject(raw string) string {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return ""
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
