// package formatter renders titles and preferences as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
)

// Format is an output format for title lists.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the format names and their short aliases (txt, md).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// TitlesToCSV converts titles to CSV with columns: ID, TMDB ID, Type, Name, Year, Library, Watchlist, Favourite, Watch Next
func TitlesToCSV(titles []models.Title) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "TMDB ID", "Type", "Name", "Year", "Library", "Watchlist", "Favourite", "Watch Next"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range titles {
		record := []string{
			strconv.Itoa(t.ID),
			strconv.Itoa(t.TMDBID),
			string(t.Type),
			t.Name,
			t.Year(),
			strconv.FormatBool(t.InLibrary),
			strconv.FormatBool(t.Watchlist),
			strconv.FormatBool(t.Favourite),
			strconv.FormatBool(t.WatchNext),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TitlesToMarkdown renders titles as a Markdown document with a heading and a numbered list
func TitlesToMarkdown(heading string, titles []models.Title) ([]byte, error) {
	var buf bytes.Buffer

	if heading == "" {
		heading = "Titles"
	}
	fmt.Fprintf(&buf, "# %s\n\n", heading)
	fmt.Fprintf(&buf, "**Titles**: %d\n\n", len(titles))

	for i, t := range titles {
		fmt.Fprintf(&buf, "%d. **%s**%s [%s]", i+1, t.Name, yearSuffix(t), t.Type)
		if marks := flags(t); marks != "" {
			fmt.Fprintf(&buf, " _%s_", marks)
		}
		buf.WriteString("\n")
		if t.Overview != "" {
			fmt.Fprintf(&buf, "   > %s\n", t.Overview)
		}
	}

	return buf.Bytes(), nil
}

// TitlesToText renders one line per title
func TitlesToText(titles []models.Title) ([]byte, error) {
	var buf bytes.Buffer

	for _, t := range titles {
		fmt.Fprintf(&buf, "%6d  %-5s %s%s", t.ID, t.Type, t.Name, yearSuffix(t))
		if marks := flags(t); marks != "" {
			fmt.Fprintf(&buf, "  [%s]", marks)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// TitleToText renders a single title with its overview and flags
func TitleToText(t models.Title) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s%s\n", t.Name, yearSuffix(t))
	fmt.Fprintf(&buf, "ID: %d  TMDB: %d  Type: %s\n", t.ID, t.TMDBID, t.Type)
	if marks := flags(t); marks != "" {
		fmt.Fprintf(&buf, "Flags: %s\n", marks)
	}
	if t.PosterPath != "" {
		fmt.Fprintf(&buf, "Poster: %s\n", t.PosterPath)
	}
	if t.Overview != "" {
		fmt.Fprintf(&buf, "\n%s\n", t.Overview)
	}

	return buf.Bytes()
}

// PreferencesToText renders key = value lines annotated with their source
func PreferencesToText(prefs []models.Preference) []byte {
	var buf bytes.Buffer

	width := 0
	for _, p := range prefs {
		width = max(width, len(p.Key))
	}
	for _, p := range prefs {
		fmt.Fprintf(&buf, "%-*s = %s (%s)\n", width, p.Key, p.Value, p.Source)
	}

	return buf.Bytes()
}

// Titles renders titles in the requested format.
func Titles(f Format, heading string, titles []models.Title) ([]byte, error) {
	switch f {
	case FormatCSV:
		return TitlesToCSV(titles)
	case FormatMarkdown:
		return TitlesToMarkdown(heading, titles)
	case FormatJSON:
		return shared.MarshalJSON(titles, true)
	default:
		return TitlesToText(titles)
	}
}

// WriteTitlesExport writes titles to path in format f, creating parent directories.
//
// An empty path defaults to titles{ext} in the working directory.
func WriteTitlesExport(titles []models.Title, f Format, path string) (string, error) {
	if path == "" {
		path = "titles" + f.Extension()
	}

	data, err := Titles(f, "Exported Titles", titles)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// WriteImage saves downloaded image bytes to path.
func WriteImage(data []byte, path string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

func yearSuffix(t models.Title) string {
	if y := t.Year(); y != "" {
		return " (" + y + ")"
	}
	return ""
}

func flags(t models.Title) string {
	var out []string
	if t.InLibrary {
		out = append(out, "library")
	}
	if t.Watchlist {
		out = append(out, "watchlist")
	}
	if t.Favourite {
		out = append(out, "favourite")
	}
	if t.WatchNext {
		out = append(out, "watch-next")
	}
	return strings.Join(out, ", ")
}
