package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/session"
	"github.com/desertthunder/reel/internal/shared"
	"golang.org/x/oauth2"
)

// AuthService talks to the backend's /auth endpoints.
//
// Refresh carries no credentials of its own: the long-lived refresh cookie rides in the client's cookie jar.
type AuthService struct {
	api *APIService
}

var _ session.Authenticator = (*AuthService)(nil)

// NewAuthService creates an [AuthService] on top of api.
func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// token converts the response, leaving Expiry unset: expiry is only ever learned from a 401.
func (r tokenResponse) token() (*oauth2.Token, error) {
	if r.AccessToken == "" {
		return nil, shared.ErrMissingToken
	}
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &oauth2.Token{AccessToken: r.AccessToken, TokenType: tokenType}, nil
}

type passwordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, creds session.Credentials) (*models.User, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.api.DoJSON(ctx, http.MethodPost, "/auth/register", creds, &user); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return &user, nil
}

// Login exchanges username and password for an access token; the server also sets the refresh cookie.
func (s *AuthService) Login(ctx context.Context, creds session.Credentials) (*oauth2.Token, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := s.api.DoJSON(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return resp.token()
}

// Refresh asks for a new access token using the refresh cookie.
func (s *AuthService) Refresh(ctx context.Context) (*oauth2.Token, error) {
	var resp tokenResponse
	if err := s.api.DoJSON(ctx, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return resp.token()
}

// Logout tells the server to end the session and drop the refresh cookie.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.api.DoJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.api.DoJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe renames the current user.
func (s *AuthService) UpdateMe(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	var user models.User
	body := map[string]string{"username": username}
	if err := s.api.DoJSON(ctx, http.MethodPut, "/auth/me", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteMe removes the current user's account.
func (s *AuthService) DeleteMe(ctx context.Context) error {
	return s.api.DoJSON(ctx, http.MethodDelete, "/auth/me", nil, nil)
}

// ChangePassword replaces the current user's password.
func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", shared.ErrMissingArgument)
	}
	if current == next {
		return fmt.Errorf("%w: new password must differ from the current one", shared.ErrInvalidInput)
	}
	return s.api.DoJSON(ctx, http.MethodPost, "/auth/me/password", passwordChange{current, next}, nil)
}

func validateCredentials(creds session.Credentials) error {
	if strings.TrimSpace(creds.Username) == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}
	return nil
}
