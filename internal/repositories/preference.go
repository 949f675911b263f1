package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
)

// DefaultPreferences are served by [PreferenceRepository.Get] when nothing has been cached yet.
var DefaultPreferences = map[string]string{
	"theme":    "dark",
	"language": "en",
}

// PreferenceRepository is the local read-through cache of resolved user preferences.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new [PreferenceRepository] with the given database connection
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the cached preference for key, falling back to [DefaultPreferences].
func (r *PreferenceRepository) Get(key string) (*models.Preference, error) {
	query := `SELECT key, value, source, updated_at FROM preferences WHERE key = ?`

	pref, err := scanPreference(r.db.QueryRow(query, key))
	if errors.Is(err, sql.ErrNoRows) {
		if value, ok := DefaultPreferences[key]; ok {
			return &models.Preference{Key: key, Value: value, Source: models.SourceDefault}, nil
		}
		return nil, fmt.Errorf("%w: preference %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preference: %w", err)
	}

	return pref, nil
}

// Set stores a single preference.
func (r *PreferenceRepository) Set(key, value string, source models.PreferenceSource) error {
	if key == "" {
		return fmt.Errorf("%w: preference key", shared.ErrMissingArgument)
	}

	_, err := r.db.Exec(upsertPreference, key, value, string(source), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store preference: %w", err)
	}
	return nil
}

// Upsert stores every preference in one transaction.
func (r *PreferenceRepository) Upsert(prefs []models.Preference) error {
	now := time.Now().UTC()
	return withTx(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertPreference)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range prefs {
			if _, err := stmt.Exec(p.Key, p.Value, string(p.Source), now); err != nil {
				return fmt.Errorf("failed to store preference %s: %w", p.Key, err)
			}
		}
		return nil
	})
}

// Delete removes a cached preference so reads fall back to the default again.
func (r *PreferenceRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}

// List returns cached preferences plus any default not yet cached, ordered by key.
func (r *PreferenceRepository) List() ([]models.Preference, error) {
	rows, err := r.db.Query(`SELECT key, value, source, updated_at FROM preferences ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var prefs []models.Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		seen[p.Key] = true
		prefs = append(prefs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for key, value := range DefaultPreferences {
		if !seen[key] {
			prefs = append(prefs, models.Preference{Key: key, Value: value, Source: models.SourceDefault})
		}
	}
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].Key < prefs[j].Key })

	return prefs, nil
}

const upsertPreference = `
	INSERT INTO preferences (key, value, source, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, source = excluded.source, updated_at = excluded.updated_at
`

func scanPreference(s scanner) (*models.Preference, error) {
	var (
		p         models.Preference
		source    string
		updatedAt time.Time
	)
	if err := s.Scan(&p.Key, &p.Value, &source, &updatedAt); err != nil {
		return nil, err
	}
	p.Source = models.PreferenceSource(source)
	p.UpdatedAt = updatedAt
	return &p, nil
}
