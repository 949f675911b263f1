package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/reel/internal/shared"
)

func TestSettingsService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/settings/":
			w.Write([]byte(`[{"key":"theme","type":"choice","default_value":"dark","choices":["dark","light"]},{"key":"page_size","default_value":20}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/user-settings/":
			w.Write([]byte(`[{"key":"theme","value":"light"}]`))
		case r.Method == http.MethodPut && r.URL.Path == "/user-settings/theme":
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"value":"light"}` {
				t.Errorf("unexpected body %s", body)
			}
			w.Write([]byte(`{"key":"theme","value":"light"}`))
		case r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Unknown setting"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	svc := NewSettingsService(NewAPIService(server.URL, nil))
	ctx := context.Background()

	t.Run("Schema", func(t *testing.T) {
		schema, err := svc.Schema(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(schema) != 2 || schema[0].Key != "theme" || len(schema[0].Choices) != 2 {
			t.Errorf("unexpected schema %+v", schema)
		}
		if string(schema[1].DefaultValue) != "20" {
			t.Errorf("expected raw default 20, got %s", schema[1].DefaultValue)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		overrides, err := svc.Overrides(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(overrides) != 1 || string(overrides[0].Value) != `"light"` {
			t.Errorf("unexpected overrides %+v", overrides)
		}
	})

	t.Run("PutOverride", func(t *testing.T) {
		out, err := svc.PutOverride(ctx, "theme", json.RawMessage(`"light"`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Key != "theme" {
			t.Errorf("unexpected result %+v", out)
		}
	})

	t.Run("PutOverride Unknown Key", func(t *testing.T) {
		_, err := svc.PutOverride(ctx, "nope", json.RawMessage(`1`))
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutOverride Validation", func(t *testing.T) {
		if _, err := svc.PutOverride(ctx, "", json.RawMessage(`1`)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := svc.PutOverride(ctx, "theme", json.RawMessage(`light`)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
