package main

import (
	"context"

	"github.com/desertthunder/reel/internal/formatter"
	"github.com/desertthunder/reel/internal/models"
	"github.com/urfave/cli/v3"
)

// preferenceJSON is the --json shape of a cached preference.
type preferenceJSON struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Source    string `json:"source"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toPreferenceJSON(prefs []models.Preference) []preferenceJSON {
	out := make([]preferenceJSON, 0, len(prefs))
	for _, p := range prefs {
		item := preferenceJSON{Key: p.Key, Value: p.Value, Source: string(p.Source)}
		if !p.UpdatedAt.IsZero() {
			item.UpdatedAt = p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		out = append(out, item)
	}
	return out
}

// SettingsSync pulls the settings schema and overrides into the local cache.
func (r *Runner) SettingsSync(ctx context.Context, cmd *cli.Command) error {
	result, err := r.settings.Sync(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toPreferenceJSON(result.Preferences), cmd.Bool("pretty"))
	}

	r.writeOK("Synced %d settings (%d overridden)", len(result.Preferences), result.Overridden)
	for _, key := range result.Ignored {
		r.writeWarn("Ignored override for unknown setting %s", key)
	}
	return r.writeBytes(formatter.PreferencesToText(result.Preferences))
}

// SettingsList prints the cached preferences.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	prefs, err := r.prefs.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toPreferenceJSON(prefs), cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.PreferencesToText(prefs))
}

// SettingsGet prints one cached preference value.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	key, err := argString(cmd, 0, "key")
	if err != nil {
		return err
	}

	pref, err := r.prefs.Get(key)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", pref.Value)
}

// SettingsSet writes a preference locally, then to the server. A server failure is shown as a warning.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key, err := argString(cmd, 0, "key")
	if err != nil {
		return err
	}
	value := cmd.Args().Get(1)

	result, err := r.settings.UpdateSetting(ctx, key, value)
	if err != nil {
		return err
	}

	r.writeOK("%s = %s", result.Preference.Key, result.Preference.Value)
	if result.Warning != nil {
		return r.writeWarn("Saved locally only: %v", result.Warning)
	}
	return nil
}
