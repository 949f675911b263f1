package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
)

// LibraryService covers the /titles and /media endpoints.
type LibraryService struct {
	api *APIService
}

// NewLibraryService creates a [LibraryService] on top of api.
func NewLibraryService(api *APIService) *LibraryService {
	return &LibraryService{api: api}
}

// AddTitle imports a title from TMDB into the library and returns its internal ID.
func (s *LibraryService) AddTitle(ctx context.Context, tmdbID int, kind models.TitleType) (int, error) {
	if tmdbID <= 0 {
		return 0, fmt.Errorf("%w: tmdb id must be positive", shared.ErrInvalidArgument)
	}
	if kind != models.TitleMovie && kind != models.TitleTV {
		return 0, fmt.Errorf("%w: title type %q", shared.ErrInvalidArgument, kind)
	}

	var resp struct {
		TitleID int `json:"title_id"`
	}
	body := map[string]any{"tmdb_id": tmdbID, "title_type": kind}
	if err := s.api.DoJSON(ctx, http.MethodPost, "/titles/", body, &resp); err != nil {
		return 0, err
	}
	return resp.TitleID, nil
}

// Title fetches one title with the current user's flags.
func (s *LibraryService) Title(ctx context.Context, id int) (*models.Title, error) {
	var title models.Title
	if err := s.api.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/titles/%d", id), nil, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

// RefreshTitle asks the backend to re-fetch a title's metadata from TMDB.
func (s *LibraryService) RefreshTitle(ctx context.Context, id int) (int, error) {
	var resp struct {
		TitleID int  `json:"title_id"`
		Updated bool `json:"updated"`
	}
	if err := s.api.DoJSON(ctx, http.MethodPut, fmt.Sprintf("/titles/%d", id), nil, &resp); err != nil {
		return 0, err
	}
	return resp.TitleID, nil
}

// Search runs a title search against the library, or against TMDB when q.TMDB is set.
func (s *LibraryService) Search(ctx context.Context, q models.TitleQuery) (*models.TitleList, error) {
	path := "/titles/search"
	if q.TMDB {
		path += "/tmdb"
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	var list models.TitleList
	if err := s.api.DoJSON(ctx, http.MethodPost, path, q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SetFlag marks a title (watchlist, favourite, ...).
func (s *LibraryService) SetFlag(ctx context.Context, id int, flag models.Flag) error {
	return s.api.DoJSON(ctx, http.MethodPut, flagPath(id, flag), nil, nil)
}

// ClearFlag removes a mark from a title.
func (s *LibraryService) ClearFlag(ctx context.Context, id int, flag models.Flag) error {
	return s.api.DoJSON(ctx, http.MethodDelete, flagPath(id, flag), nil, nil)
}

// Image downloads a poster or backdrop at the given size (e.g. "w342", "original").
func (s *LibraryService) Image(ctx context.Context, size, imagePath string) ([]byte, string, error) {
	size = strings.Trim(size, "/")
	imagePath = strings.TrimLeft(imagePath, "/")
	if size == "" || imagePath == "" {
		return nil, "", fmt.Errorf("%w: size and image path are required", shared.ErrMissingArgument)
	}

	path := "/media/image/" + url.PathEscape(size) + "/" + imagePath
	resp, err := s.api.Get(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return nil, "", &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Detail: detail(resp)}
	}
	return resp.Body, resp.Headers.Get("Content-Type"), nil
}

func flagPath(id int, flag models.Flag) string {
	return fmt.Sprintf("/titles/%d/%s", id, flag)
}
