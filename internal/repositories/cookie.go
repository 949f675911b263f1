package repositories

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// StoredCookie is a cookie together with the host that set it.
type StoredCookie struct {
	Host   string
	Cookie *http.Cookie
}

// CookieRepository persists cookies received from the API.
type CookieRepository struct {
	db *sql.DB
}

// NewCookieRepository creates a new [CookieRepository] with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db}
}

// Save inserts or replaces the cookie identified by host, name and path.
func (r *CookieRepository) Save(host string, c *http.Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}

	var expires sql.NullTime
	if !c.Expires.IsZero() {
		expires = sql.NullTime{Time: c.Expires.UTC(), Valid: true}
	}

	query := `
		INSERT INTO cookies (host, name, path, value, expires_at, secure, http_only, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, name, path) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			secure = excluded.secure,
			http_only = excluded.http_only,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, host, c.Name, path, c.Value, expires, boolInt(c.Secure), boolInt(c.HttpOnly), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save cookie: %w", err)
	}
	return nil
}

// Delete removes a single cookie.
func (r *CookieRepository) Delete(host, name, path string) error {
	if path == "" {
		path = "/"
	}
	if _, err := r.db.Exec(`DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?`, host, name, path); err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return nil
}

// List returns every cookie that has not expired at now. Session cookies (no expiry) are included.
func (r *CookieRepository) List(now time.Time) ([]StoredCookie, error) {
	query := `
		SELECT host, name, path, value, expires_at, secure, http_only
		FROM cookies
		ORDER BY host, name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []StoredCookie
	for rows.Next() {
		var (
			host, name, path, value string
			expires                 sql.NullTime
			secure, httpOnly        int
		)
		if err := rows.Scan(&host, &name, &path, &value, &expires, &secure, &httpOnly); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expires.Valid && !expires.Time.After(now) {
			continue
		}

		c := &http.Cookie{Name: name, Value: value, Path: path, Secure: secure == 1, HttpOnly: httpOnly == 1}
		if expires.Valid {
			c.Expires = expires.Time
		}
		cookies = append(cookies, StoredCookie{Host: host, Cookie: c})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return cookies, nil
}

// PurgeExpired deletes cookies whose expiry is at or before now and reports how many were removed.
func (r *CookieRepository) PurgeExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM cookies WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cookies: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Clear deletes every stored cookie.
func (r *CookieRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM cookies`); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}
