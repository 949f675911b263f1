package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reel/internal/formatter"
	"github.com/desertthunder/reel/internal/models"
	"github.com/desertthunder/reel/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk title exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputPath string           // Destination file (default: titles{ext})
	NumWorkers int              // Concurrent workers (default: 4, max 8)
	RateLimit  float64          // Requests per second (default: 5)
}

// TitleExportFailure records a title that could not be fetched.
type TitleExportFailure struct {
	ID    int
	Error error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	Titles []models.Title       // Exported titles in request order
	Failed []TitleExportFailure // Titles that could not be fetched
	Path   string               // File written
}

// TitleExporter fetches many titles concurrently and writes them to a single file.
type TitleExporter struct {
	fetcher TitleFetcher
	logger  *log.Logger
}

// NewTitleExporter creates a [TitleExporter]. A nil logger discards output.
func NewTitleExporter(fetcher TitleFetcher, logger *log.Logger) *TitleExporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TitleExporter{fetcher: fetcher, logger: shared.WithLogger(logger, "component", "export")}
}

type titleJob struct {
	index int
	id    int
}

type titleResult struct {
	index int
	id    int
	title *models.Title
	err   error
}

// Export fetches every title in ids with a rate-limited worker pool and writes the successful ones in order.
//
// Partial failures are reported in the result; an error is returned only when nothing could be exported, the
// context ended or the file could not be written.
func (e *TitleExporter) Export(ctx context.Context, ids []int, opts BulkExportOpts, prog chan<- ProgressUpdate) (*BulkExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no title ids", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan titleJob)
	results := make(chan titleResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, limiter, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			select {
			case jobs <- titleJob{index: i, id: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*models.Title, len(ids))
	result := &BulkExportResult{}
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			result.Failed = append(result.Failed, TitleExportFailure{ID: res.id, Error: res.err})
			sendProgress(prog, fetchTitleFailedUpdate(completed, len(ids), res.id, res.err))
			continue
		}
		ordered[res.index] = res.title
		sendProgress(prog, fetchTitleUpdate(completed, len(ids), res.title))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	for _, t := range ordered {
		if t != nil {
			result.Titles = append(result.Titles, *t)
		}
	}
	if len(result.Titles) == 0 {
		return result, fmt.Errorf("%w: none of the %d titles could be fetched", shared.ErrAPIRequest, len(ids))
	}

	path, err := formatter.WriteTitlesExport(result.Titles, opts.Format, opts.OutputPath)
	if err != nil {
		return result, err
	}
	result.Path = path
	sendProgress(prog, writeExportUpdate(path, len(result.Titles)))

	e.logger.Info("titles exported", "path", path, "count", len(result.Titles), "failed", len(result.Failed))
	return result, nil
}

func (e *TitleExporter) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan titleJob,
	results chan<- titleResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- titleResult{index: job.index, id: job.id, err: err}
			continue
		}

		title, err := e.fetcher.Title(ctx, job.id)
		results <- titleResult{index: job.index, id: job.id, title: title, err: err}
	}
}
