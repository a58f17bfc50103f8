package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/models"
)

// RecordClient is the subset of the API client the engine pages through and creates records with.
type RecordClient interface {
	ListUsers(ctx context.Context, page models.PageRequest) (*models.UserList, error)
	ListArtists(ctx context.Context, page models.PageRequest) (*models.ArtistList, error)
	ListMusic(ctx context.Context, artistID int, page models.PageRequest) (*models.MusicList, error)
	CreateUser(ctx context.Context, in models.RegisterInput) (*models.User, error)
	CreateArtist(ctx context.Context, in models.ArtistInput) (*models.Artist, error)
	CreateMusic(ctx context.Context, artistID int, in models.MusicInput) (*models.Music, error)
}

// RunRecorder keeps the history of finished imports (repositories.ImportRunRepository).
type RunRecorder interface {
	Create(run *models.ImportRun) error
}

// Engine runs exports and imports against the API.
type Engine struct {
	client RecordClient
	runs   RunRecorder
	logger *log.Logger
}

// NewEngine creates a new Engine. runs may be nil, in which case imports are not recorded.
func NewEngine(client RecordClient, runs RunRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{client: client, runs: runs, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
