package main

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/desertthunder/reel/internal/formatter"
	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
	"github.com/desertthunder/reel/internal/tasks"
	"github.com/urfave/cli/v3"
)

func parseTitleType(s string) (models.TitleType, error) {
	switch t := models.TitleType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return "", nil
	case models.TitleMovie, models.TitleTV:
		return t, nil
	}
	return "", fmt.Errorf("%w: type must be movie or tv, got %q", shared.ErrInvalidArgument, s)
}

func titleFlagArgs(cmd *cli.Command) (int, models.Flag, error) {
	id, err := argInt(cmd, 0, "id")
	if err != nil {
		return 0, "", err
	}
	name, err := argString(cmd, 1, "flag")
	if err != nil {
		return 0, "", err
	}
	flag, err := models.ParseFlag(name)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	return id, flag, nil
}

// TitlesGet prints one title.
func (r *Runner) TitlesGet(ctx context.Context, cmd *cli.Command) error {
	id, err := argInt(cmd, 0, "id")
	if err != nil {
		return err
	}

	title, err := r.library.Title(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(title, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.TitleToText(*title))
}

// TitlesSearch searches the library or TMDB and prints one page of results.
func (r *Runner) TitlesSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	kind, err := parseTitleType(cmd.String("type"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	q := models.TitleQuery{Query: query, Type: kind, Page: int(cmd.Int("page")), TMDB: cmd.Bool("tmdb")}
	r.logger.Debug("searching titles", "query", query, "tmdb", q.TMDB, "page", q.Page)

	list, err := r.library.Search(ctx, q)
	if err != nil {
		return err
	}

	if format == formatter.FormatJSON {
		return r.writeJSON(list, true)
	}

	out, err := formatter.Titles(format, fmt.Sprintf("Results for %q", query), list.Items)
	if err != nil {
		return err
	}
	if err := r.writeBytes(out); err != nil {
		return err
	}

	if format == formatter.FormatText {
		if len(list.Items) == 0 {
			return r.writePlain("No titles found\n")
		}
		return r.writePlain("%s\n", r.palette().Help(
			fmt.Sprintf("page %d of %d, %d titles", list.Page, max(list.TotalPages, 1), list.Total),
		))
	}
	return nil
}

// TitlesAdd adds a TMDB title to the library.
func (r *Runner) TitlesAdd(ctx context.Context, cmd *cli.Command) error {
	tmdbID, err := argInt(cmd, 0, "tmdb-id")
	if err != nil {
		return err
	}
	kind, err := parseTitleType(cmd.String("type"))
	if err != nil {
		return err
	}
	if kind == "" {
		kind = models.TitleMovie
	}

	id, err := r.library.AddTitle(ctx, tmdbID, kind)
	if err != nil {
		return err
	}
	return r.writeOK("Added %s %d as title %d", kind, tmdbID, id)
}

// TitlesRefresh re-fetches a title's metadata.
func (r *Runner) TitlesRefresh(ctx context.Context, cmd *cli.Command) error {
	id, err := argInt(cmd, 0, "id")
	if err != nil {
		return err
	}

	refreshed, err := r.library.RefreshTitle(ctx, id)
	if err != nil {
		return err
	}
	return r.writeOK("Refreshed title %d", refreshed)
}

// TitlesFlag marks a title.
func (r *Runner) TitlesFlag(ctx context.Context, cmd *cli.Command) error {
	id, flag, err := titleFlagArgs(cmd)
	if err != nil {
		return err
	}

	if err := r.library.SetFlag(ctx, id, flag); err != nil {
		return err
	}
	return r.writeOK("Title %d added to %s", id, flag)
}

// TitlesUnflag clears a mark from a title.
func (r *Runner) TitlesUnflag(ctx context.Context, cmd *cli.Command) error {
	id, flag, err := titleFlagArgs(cmd)
	if err != nil {
		return err
	}

	if err := r.library.ClearFlag(ctx, id, flag); err != nil {
		return err
	}
	return r.writeOK("Title %d removed from %s", id, flag)
}

// TitlesImage downloads an image to --output, or to its own file name.
func (r *Runner) TitlesImage(ctx context.Context, cmd *cli.Command) error {
	size, err := argString(cmd, 0, "size")
	if err != nil {
		return err
	}
	imagePath, err := argString(cmd, 1, "path")
	if err != nil {
		return err
	}

	data, contentType, err := r.library.Image(ctx, size, imagePath)
	if err != nil {
		return err
	}

	out := cmd.String("output")
	if out == "" {
		out = path.Base(imagePath)
	}
	if err := formatter.WriteImage(data, out); err != nil {
		return err
	}

	r.logger.Debug("image saved", "path", out, "content_type", contentType, "bytes", len(data))
	return r.writeOK("Saved %s (%d bytes)", out, len(data))
}

// TitlesExport fetches the given titles concurrently and writes them to one file.
func (r *Runner) TitlesExport(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return fmt.Errorf("%w: at least one title id", shared.ErrMissingArgument)
	}

	ids := make([]int, 0, cmd.NArg())
	for _, arg := range cmd.Args().Slice() {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return fmt.Errorf("%w: title id must be a positive integer, got %q", shared.ErrInvalidArgument, arg)
		}
		ids = append(ids, id)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := r.exporter.Export(ctx, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputPath: cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}, progress)
	close(progress)
	<-done

	if result != nil {
		for _, failure := range result.Failed {
			r.writeWarn("Title %d skipped: %v", failure.ID, failure.Error)
		}
	}
	if err != nil {
		return err
	}

	return r.writeOK("Exported %d of %d titles to %s", len(result.Titles), len(ids), result.Path)
}
