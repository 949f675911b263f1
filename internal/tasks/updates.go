package tasks

import (
	"fmt"

	"github.com/desertthunder/reel/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSchema Phase = iota
	FetchOverrides
	ResolveSettings
	StorePreferences
	FetchTitles
	WriteExport
)

func (p Phase) String() string {
	switch p {
	case FetchSchema:
		return "fetch_schema"
	case FetchOverrides:
		return "fetch_overrides"
	case ResolveSettings:
		return "resolve_settings"
	case StorePreferences:
		return "store_preferences"
	case FetchTitles:
		return "fetch_titles"
	case WriteExport:
		return "write_export"
	default:
		return ""
	}
}

func fetchSettingsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSchema,
		Step:    1,
		Total:   3,
		Message: "Fetching settings schema and overrides...",
	}
}

func resolveSettingsUpdate(schema, overrides int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSettings,
		Step:    2,
		Total:   3,
		Message: fmt.Sprintf("Resolving %d settings (%d overridden)...", schema, overrides),
	}
}

func storePreferencesUpdate(prefs []models.Preference) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StorePreferences,
		Step:    3,
		Total:   3,
		Message: fmt.Sprintf("Cached %d preferences", len(prefs)),
		Data:    prefs,
	}
}

func fetchTitleUpdate(step, total int, title *models.Title) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTitles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title.Name),
		Data:    title,
	}
}

func fetchTitleFailedUpdate(step, total, id int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTitles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ title %d: %v", step, total, id, err),
	}
}

func writeExportUpdate(path string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %d titles to %s", count, path),
	}
}
