package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
)

// DefaultPageSize is the page size used when paging through a full export.
const DefaultPageSize = 50

// ExportOpts contains configuration for an export.
type ExportOpts struct {
	Kind     formatter.Kind
	ArtistID int    // Owning artist, required for music
	Search   string // Optional search term applied to every page
	PageSize int    // Records per request (default: 50)
	Output   string // File to write; empty keeps the CSV in memory only
}

// ExportResult describes a finished export.
type ExportResult struct {
	Kind  formatter.Kind
	Count int    // Records exported
	Pages int    // Pages fetched
	Data  []byte // CSV document
	File  string // Path written, empty when no output was requested
}

// Export pages through every record of opts.Kind and converts them to CSV.
func (e *Engine) Export(ctx context.Context, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	req := models.PageRequest{Page: 1, Limit: opts.PageSize, Search: opts.Search}

	result := &ExportResult{Kind: opts.Kind}
	var err error

	switch opts.Kind {
	case formatter.KindUsers:
		var users []models.User
		users, result.Pages, err = collect(ctx, e, progress, opts.Kind, req, func(ctx context.Context, r models.PageRequest) ([]models.User, models.Pagination, error) {
			list, err := e.client.ListUsers(ctx, r)
			if err != nil {
				return nil, models.Pagination{}, err
			}
			return list.Users, list.Pagination, nil
		})
		if err == nil {
			result.Count = len(users)
			result.Data, err = formatter.ExportUsersCSV(users)
		}
	case formatter.KindArtists:
		var artists []models.Artist
		artists, result.Pages, err = collect(ctx, e, progress, opts.Kind, req, func(ctx context.Context, r models.PageRequest) ([]models.Artist, models.Pagination, error) {
			list, err := e.client.ListArtists(ctx, r)
			if err != nil {
				return nil, models.Pagination{}, err
			}
			return list.Artists, list.Pagination, nil
		})
		if err == nil {
			result.Count = len(artists)
			result.Data, err = formatter.ExportArtistsCSV(artists)
		}
	case formatter.KindMusic:
		if opts.ArtistID <= 0 {
			return nil, fmt.Errorf("%w: an artist ID is required to export music", shared.ErrMissingArgument)
		}
		var music []models.Music
		music, result.Pages, err = collect(ctx, e, progress, opts.Kind, req, func(ctx context.Context, r models.PageRequest) ([]models.Music, models.Pagination, error) {
			list, err := e.client.ListMusic(ctx, opts.ArtistID, r)
			if err != nil {
				return nil, models.Pagination{}, err
			}
			return list.Music, list.Pagination, nil
		})
		if err == nil {
			result.Count = len(music)
			result.Data, err = formatter.ExportMusicCSV(music)
		}
	default:
		_, err = formatter.ParseKind(string(opts.Kind))
	}
	if err != nil {
		return nil, err
	}

	if opts.Output != "" {
		if dir := filepath.Dir(opts.Output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(opts.Output, result.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}
		result.File = opts.Output
	}

	e.logger.Info("export complete", "kind", opts.Kind, "count", result.Count, "pages", result.Pages)
	e.sendProgress(progress, exportedUpdate(opts.Kind, result.Count))
	return result, nil
}

type pageFetcher[T any] func(ctx context.Context, req models.PageRequest) ([]T, models.Pagination, error)

// collect requests pages from 1 until the last page reported by the API or an empty page.
func collect[T any](
	ctx context.Context,
	e *Engine,
	progress chan<- ProgressUpdate,
	kind formatter.Kind,
	req models.PageRequest,
	fetch pageFetcher[T],
) ([]T, int, error) {
	var all []T
	lastPage := 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, page - 1, err
		}

		e.sendProgress(progress, fetchPageUpdate(kind, page, lastPage))

		items, pagination, err := fetch(ctx, req.WithPage(page))
		if err != nil {
			return nil, page - 1, fmt.Errorf("failed to fetch %s page %d: %w", kind, page, err)
		}

		all = append(all, items...)
		lastPage = pagination.LastPage()
		if len(items) == 0 || page >= lastPage {
			return all, page, nil
		}
	}
}
