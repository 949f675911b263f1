package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
)

// SettingsService reads the settings schema and reads/writes the current user's overrides.
type SettingsService struct {
	api *APIService
}

// NewSettingsService creates a [SettingsService] on top of api.
func NewSettingsService(api *APIService) *SettingsService {
	return &SettingsService{api: api}
}

// Schema lists every known setting with its default.
func (s *SettingsService) Schema(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := s.api.DoJSON(ctx, http.MethodGet, "/settings/", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Overrides lists the current user's overrides.
func (s *SettingsService) Overrides(ctx context.Context) ([]models.UserSetting, error) {
	var overrides []models.UserSetting
	if err := s.api.DoJSON(ctx, http.MethodGet, "/user-settings/", nil, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// PutOverride stores value as the current user's override of key.
func (s *SettingsService) PutOverride(ctx context.Context, key string, value json.RawMessage) (*models.UserSetting, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: setting key", shared.ErrMissingArgument)
	}
	if !json.Valid(value) {
		return nil, fmt.Errorf("%w: value is not valid JSON", shared.ErrInvalidInput)
	}

	var out models.UserSetting
	body := map[string]json.RawMessage{"value": value}
	if err := s.api.DoJSON(ctx, http.MethodPut, "/user-settings/"+url.PathEscape(key), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
