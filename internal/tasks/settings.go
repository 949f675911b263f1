package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
	"golang.org/x/sync/errgroup"
)

// SyncResult is the outcome of a [SettingsSync.Sync].
type SyncResult struct {
	Preferences []models.Preference // Resolved values, ordered by key
	Overridden  int                 // How many came from user overrides
	Ignored     []string            // Override keys absent from the schema
}

// UpdateResult is the outcome of a [SettingsSync.UpdateSetting].
//
// Warning is set when the local write succeeded but the server did not accept the override.
type UpdateResult struct {
	Preference models.Preference
	Warning    error
}

// SettingsSync keeps the local preference cache in line with the server's settings.
//
// It never touches session state: a failed sync leaves authentication exactly as it was.
type SettingsSync struct {
	client SettingsClient
	store  PreferenceStore
	logger *log.Logger
}

// NewSettingsSync creates a [SettingsSync]. A nil logger discards output.
func NewSettingsSync(client SettingsClient, store PreferenceStore, logger *log.Logger) *SettingsSync {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SettingsSync{client: client, store: store, logger: shared.WithLogger(logger, "component", "settings")}
}

// Sync fetches the schema and the user's overrides concurrently, resolves each key (override, else default) and
// writes the result to the preference cache.
func (s *SettingsSync) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	var (
		schema    []models.Setting
		overrides []models.UserSetting
	)

	sendProgress(progress, fetchSettingsUpdate())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if schema, err = s.client.Schema(gctx); err != nil {
			return fmt.Errorf("failed to fetch settings schema: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if overrides, err = s.client.Overrides(gctx); err != nil {
			return fmt.Errorf("failed to fetch user settings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sendProgress(progress, resolveSettingsUpdate(len(schema), len(overrides)))
	result := resolve(schema, overrides)
	for _, key := range result.Ignored {
		s.logger.Debug("override for unknown setting ignored", "key", key)
	}

	if err := s.store.Upsert(result.Preferences); err != nil {
		return nil, fmt.Errorf("failed to cache preferences: %w", err)
	}
	sendProgress(progress, storePreferencesUpdate(result.Preferences))

	s.logger.Info("settings synced", "count", len(result.Preferences), "overridden", result.Overridden)
	return result, nil
}

// UpdateSetting stores value locally first, then sends it to the server as an override.
//
// A remote failure is logged and reported through [UpdateResult.Warning]; the error return is reserved for the
// local write.
func (s *SettingsSync) UpdateSetting(ctx context.Context, key, value string) (*UpdateResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: setting key", shared.ErrMissingArgument)
	}

	raw := EncodeValue(value)
	pref := models.Preference{Key: key, Value: models.RawString(raw), Source: models.SourceLocal}
	if err := s.store.Set(pref.Key, pref.Value, pref.Source); err != nil {
		return nil, err
	}

	result := &UpdateResult{Preference: pref}
	if _, err := s.client.PutOverride(ctx, key, raw); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = fmt.Errorf("%w: %s: %w", shared.ErrUnknownSetting, key, err)
		}
		s.logger.Warn("setting saved locally but not on the server", "key", key, "err", err)
		result.Warning = err
		return result, nil
	}

	result.Preference.Source = models.SourceOverride
	if err := s.store.Set(key, pref.Value, models.SourceOverride); err != nil {
		s.logger.Warn("failed to mark preference as synced", "key", key, "err", err)
	}
	return result, nil
}

// EncodeValue turns command-line input into a JSON value: valid JSON (numbers, booleans, quoted strings, objects)
// is kept as is and anything else becomes a JSON string.
func EncodeValue(value string) json.RawMessage {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	b, _ := json.Marshal(value)
	return b
}

func resolve(schema []models.Setting, overrides []models.UserSetting) *SyncResult {
	byKey := make(map[string]json.RawMessage, len(overrides))
	for _, o := range overrides {
		byKey[o.Key] = o.Value
	}

	result := &SyncResult{Preferences: make([]models.Preference, 0, len(schema))}
	known := make(map[string]bool, len(schema))
	for _, setting := range schema {
		known[setting.Key] = true

		pref := models.Preference{Key: setting.Key, Value: models.RawString(setting.DefaultValue), Source: models.SourceServer}
		if v, ok := byKey[setting.Key]; ok {
			pref.Value = models.RawString(v)
			pref.Source = models.SourceOverride
			result.Overridden++
		}
		result.Preferences = append(result.Preferences, pref)
	}

	for _, o := range overrides {
		if !known[o.Key] {
			result.Ignored = append(result.Ignored, o.Key)
		}
	}

	sort.Slice(result.Preferences, func(i, j int) bool { return result.Preferences[i].Key < result.Preferences[j].Key })
	sort.Strings(result.Ignored)
	return result
}
