// package tasks implements multi-request operations built on top of the API clients.
package tasks

import (
	"context"
	"encoding/json"

	"github.com/desertthunder/reel/internal/models"
)

// SettingsClient is the remote side of settings synchronization.
type SettingsClient interface {
	Schema(ctx context.Context) ([]models.Setting, error)
	Overrides(ctx context.Context) ([]models.UserSetting, error)
	PutOverride(ctx context.Context, key string, value json.RawMessage) (*models.UserSetting, error)
}

// PreferenceStore is the local preference cache.
type PreferenceStore interface {
	Get(key string) (*models.Preference, error)
	Set(key, value string, source models.PreferenceSource) error
	Upsert(prefs []models.Preference) error
}

// TitleFetcher loads single titles by ID.
type TitleFetcher interface {
	Title(ctx context.Context, id int) (*models.Title, error)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
