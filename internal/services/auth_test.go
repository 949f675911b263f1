package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/reel/internal/session"
	"github.com/desertthunder/reel/internal/shared"
)

func TestAuthService(t *testing.T) {
	newService := func(t *testing.T, h http.HandlerFunc) *AuthService {
		t.Helper()
		server := httptest.NewServer(h)
		t.Cleanup(server.Close)
		return NewAuthService(NewAPIService(server.URL, nil))
	}

	t.Run("Login", func(t *testing.T) {
		t.Run("Returns Token Without Expiry", func(t *testing.T) {
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				var creds session.Credentials
				json.NewDecoder(r.Body).Decode(&creds)
				if creds.Username != "ana" || creds.Password != "pw" {
					t.Errorf("unexpected credentials %+v", creds)
				}
				w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
			})

			tok, err := svc.Login(context.Background(), session.Credentials{Username: "ana", Password: "pw"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok.AccessToken != "abc" || tok.Type() != "Bearer" {
				t.Errorf("unexpected token %+v", tok)
			}
			if !tok.Expiry.IsZero() {
				t.Error("expected no client-side expiry")
			}
		})

		t.Run("Missing Fields", func(t *testing.T) {
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called")
			})

			_, err := svc.Login(context.Background(), session.Credentials{Username: " ", Password: "pw"})
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			_, err = svc.Login(context.Background(), session.Credentials{Username: "ana"})
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			})

			_, err := svc.Login(context.Background(), session.Credentials{Username: "ana", Password: "bad"})
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("Empty Token", func(t *testing.T) {
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"token_type":"bearer"}`))
			})

			_, err := svc.Login(context.Background(), session.Credentials{Username: "ana", Password: "pw"})
			if !errors.Is(err, shared.ErrMissingToken) {
				t.Errorf("expected ErrMissingToken, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/refresh" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if len(body) != 0 {
				t.Errorf("expected empty body, got %s", body)
			}
			w.Write([]byte(`{"access_token":"next"}`))
		})

		tok, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tok.AccessToken != "next" || tok.TokenType != "bearer" {
			t.Errorf("expected default bearer type, got %+v", tok)
		}
	})

	t.Run("Register", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/register" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":3,"username":"ana"}`))
		})

		user, err := svc.Register(context.Background(), session.Credentials{Username: "ana", Password: "pw"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != 3 || user.Username != "ana" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("Register Conflict", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Username already registered"}`))
		})

		_, err := svc.Register(context.Background(), session.Credentials{Username: "ana", Password: "pw"})
		var se *StatusError
		if !errors.As(err, &se) || se.Detail != "Username already registered" {
			t.Errorf("expected detail surfaced, got %v", err)
		}
	})

	t.Run("Profile", func(t *testing.T) {
		var calls []string
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, r.Method+" "+r.URL.Path)
			switch r.Method {
			case http.MethodGet:
				w.Write([]byte(`{"id":1,"username":"ana"}`))
			case http.MethodPut:
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				w.Write([]byte(`{"id":1,"username":"` + body["username"] + `"}`))
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		})
		ctx := context.Background()

		me, err := svc.Me(ctx)
		if err != nil || me.Username != "ana" {
			t.Fatalf("Me: %+v, %v", me, err)
		}
		me, err = svc.UpdateMe(ctx, " bea ")
		if err != nil || me.Username != "bea" {
			t.Fatalf("UpdateMe: %+v, %v", me, err)
		}
		if err := svc.ChangePassword(ctx, "old", "new"); err != nil {
			t.Fatalf("ChangePassword: %v", err)
		}
		if err := svc.DeleteMe(ctx); err != nil {
			t.Fatalf("DeleteMe: %v", err)
		}

		want := []string{"GET /auth/me", "PUT /auth/me", "POST /auth/me/password", "DELETE /auth/me"}
		if len(calls) != len(want) {
			t.Fatalf("expected %v, got %v", want, calls)
		}
		for i := range want {
			if calls[i] != want[i] {
				t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
			}
		}
	})

	t.Run("Profile Validation", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("server should not be called")
		})
		ctx := context.Background()

		if _, err := svc.UpdateMe(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := svc.ChangePassword(ctx, "same", "same"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := svc.ChangePassword(ctx, "", "x"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/logout" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"detail":"Logged out"}`))
		})

		if err := svc.Logout(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
