package tasks

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultImportWorkers bounds the number of create requests in flight during an import.
const DefaultImportWorkers = 4

// ImportOpts contains configuration for an import.
type ImportOpts struct {
	Kind     formatter.Kind
	ArtistID int    // Owning artist, required for music
	Source   string // Name of the imported file, kept in the history
	Workers  int    // Concurrent creates (default: 4)
}

// RowError is a data row that could not be imported. Line counts data rows from 1.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ImportResult contains the outcome of every row of an import.
type ImportResult struct {
	Kind    formatter.Kind
	Total   int        // Data rows read
	Created int        // Rows created through the API
	Errors  []RowError // Failed rows, ordered by line
	Run     *models.ImportRun
}

// Failed is the number of rows that were not created.
func (r *ImportResult) Failed() int { return len(r.Errors) }

type validator interface {
	Validate() error
}

// importJob creates a single row.
type importJob struct {
	line   int
	create func(ctx context.Context) error
}

// Import reads CSV rows of opts.Kind from r and creates them concurrently.
//
// A failing row never stops the batch: parse, validation and API failures are all collected in
// [ImportResult.Errors]. Only a header problem or a cancelled context is returned as an error.
func (e *Engine) Import(ctx context.Context, opts ImportOpts, r io.Reader, progress chan<- ProgressUpdate) (*ImportResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultImportWorkers
	}

	started := time.Now()
	result := &ImportResult{Kind: opts.Kind}

	var jobs []importJob
	var err error

	switch opts.Kind {
	case formatter.KindUsers:
		var rows []formatter.Row[models.RegisterInput]
		if rows, err = formatter.ParseUsersCSV(r); err == nil {
			jobs = plan(result, rows, func(ctx context.Context, in models.RegisterInput) error {
				_, err := e.client.CreateUser(ctx, in)
				return err
			})
		}
	case formatter.KindArtists:
		var rows []formatter.Row[models.ArtistInput]
		if rows, err = formatter.ParseArtistsCSV(r); err == nil {
			jobs = plan(result, rows, func(ctx context.Context, in models.ArtistInput) error {
				_, err := e.client.CreateArtist(ctx, in)
				return err
			})
		}
	case formatter.KindMusic:
		if opts.ArtistID <= 0 {
			return nil, fmt.Errorf("%w: an artist ID is required to import music", shared.ErrMissingArgument)
		}
		var rows []formatter.Row[models.MusicInput]
		if rows, err = formatter.ParseMusicCSV(r); err == nil {
			jobs = plan(result, rows, func(ctx context.Context, in models.MusicInput) error {
				_, err := e.client.CreateMusic(ctx, opts.ArtistID, in)
				return err
			})
		}
	default:
		_, err = formatter.ParseKind(string(opts.Kind))
	}
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, parsedUpdate(opts.Kind, result.Total, len(result.Errors)))

	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(opts.Workers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			mu.Lock()
			for _, skipped := range jobs[i:] {
				result.Errors = append(result.Errors, RowError{Line: skipped.line, Err: ctx.Err()})
			}
			mu.Unlock()
			break
		}

		g.Go(func() error {
			err := job.create(ctx)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				rowErr := RowError{Line: job.line, Err: err}
				result.Errors = append(result.Errors, rowErr)
				e.logger.Debug("import row failed", "kind", opts.Kind, "line", job.line, "error", err)
				e.sendProgress(progress, createFailedUpdate(done, len(jobs), rowErr))
				return nil
			}
			result.Created++
			e.sendProgress(progress, createdUpdate(done, len(jobs), job.line))
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(result.Errors, func(a, b RowError) int { return a.Line - b.Line })

	result.Run = &models.ImportRun{
		Kind:       string(opts.Kind),
		Source:     opts.Source,
		Total:      result.Total,
		Created:    result.Created,
		Failed:     result.Failed(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if e.runs != nil {
		if err := e.runs.Create(result.Run); err != nil {
			e.logger.Warn("failed to record import run", "error", err)
			e.sendProgress(progress, recordRunFailedUpdate(err))
		}
	}

	e.logger.Info("import complete", "kind", opts.Kind, "total", result.Total, "created", result.Created, "failed", result.Failed())
	return result, ctx.Err()
}

// plan validates parsed rows, recording the invalid ones on result, and returns a job per valid row.
func plan[T validator](result *ImportResult, rows []formatter.Row[T], create func(context.Context, T) error) []importJob {
	jobs := make([]importJob, 0, len(rows))
	for _, row := range rows {
		result.Total++

		err := row.Err
		if err == nil {
			err = row.Value.Validate()
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: row.Line, Err: err})
			continue
		}

		in := row.Value
		jobs = append(jobs, importJob{
			line:   row.Line,
			create: func(ctx context.Context) error { return create(ctx, in) },
		})
	}
	return jobs
}
