package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/services"
	"github.com/desertthunder/amsctl/internal/shared"
	tu "github.com/desertthunder/amsctl/internal/testing"
)

// mockClient serves lists from memory and records creates.
type mockClient struct {
	mu       sync.Mutex
	users    []models.User
	artists  []models.Artist
	music    []models.Music
	requests []models.PageRequest
	listErr  error

	createdArtists []models.ArtistInput
	createdMusic   map[int][]models.MusicInput
	createdUsers   []models.RegisterInput
	failOn         map[string]error
	delay          time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func page[T any](items []T, req models.PageRequest) ([]T, models.Pagination) {
	req = req.Normalize()
	pages := (len(items) + req.Limit - 1) / req.Limit
	start := min((req.Page-1)*req.Limit, len(items))
	end := min(start+req.Limit, len(items))
	return items[start:end], models.Pagination{TotalPages: pages, CurrentPage: req.Page, Limit: req.Limit}
}

func (m *mockClient) record(req models.PageRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.listErr
}

func (m *mockClient) ListUsers(_ context.Context, req models.PageRequest) (*models.UserList, error) {
	if err := m.record(req); err != nil {
		return nil, err
	}
	items, p := page(m.users, req)
	p.TotalUsers = len(m.users)
	return &models.UserList{Users: items, Pagination: p}, nil
}

func (m *mockClient) ListArtists(_ context.Context, req models.PageRequest) (*models.ArtistList, error) {
	if err := m.record(req); err != nil {
		return nil, err
	}
	items, p := page(m.artists, req)
	p.TotalArtists = len(m.artists)
	return &models.ArtistList{Artists: items, Pagination: p}, nil
}

func (m *mockClient) ListMusic(_ context.Context, artistID int, req models.PageRequest) (*models.MusicList, error) {
	if err := m.record(req); err != nil {
		return nil, err
	}
	var owned []models.Music
	for _, track := range m.music {
		if track.ArtistID == artistID {
			owned = append(owned, track)
		}
	}
	items, p := page(owned, req)
	p.TotalMusic = len(owned)
	return &models.MusicList{Music: items, Pagination: p}, nil
}

func (m *mockClient) enter(ctx context.Context, key string) error {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.failOn[key]
}

func (m *mockClient) CreateUser(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := m.enter(ctx, in.Email); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdUsers = append(m.createdUsers, in)
	return &models.User{ID: len(m.createdUsers), Email: in.Email}, nil
}

func (m *mockClient) CreateArtist(ctx context.Context, in models.ArtistInput) (*models.Artist, error) {
	if err := m.enter(ctx, in.Name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdArtists = append(m.createdArtists, in)
	return &models.Artist{ID: len(m.createdArtists), Name: in.Name}, nil
}

func (m *mockClient) CreateMusic(ctx context.Context, artistID int, in models.MusicInput) (*models.Music, error) {
	if err := m.enter(ctx, in.Title); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createdMusic == nil {
		m.createdMusic = map[int][]models.MusicInput{}
	}
	m.createdMusic[artistID] = append(m.createdMusic[artistID], in)
	return &models.Music{Title: in.Title, ArtistID: artistID}, nil
}

// mockRecorder stores import runs in memory.
type mockRecorder struct {
	runs []*models.ImportRun
	err  error
}

func (m *mockRecorder) Create(run *models.ImportRun) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func artistsFixture(n int) []models.Artist {
	artists := make([]models.Artist, n)
	for i := range n {
		artists[i] = models.Artist{ID: i + 1, Name: fmt.Sprintf("Artist %02d", i+1), Gender: models.GenderOther, FirstReleaseYear: 2000}
	}
	return artists
}

const artistHeader = "name,dob,gender,address,first_release_year,no_of_albums_released\n"

func artistRow(name string) string {
	return name + ",1990-01-01,M,Somewhere,2010,1\n"
}

func TestExport(t *testing.T) {
	t.Run("Pages Through Everything", func(t *testing.T) {
		client := &mockClient{artists: artistsFixture(12)}
		engine := NewEngine(client, nil, nil)

		result, err := engine.Export(context.Background(), ExportOpts{Kind: formatter.KindArtists, PageSize: 5, Search: "artist"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Count != 12 || result.Pages != 3 {
			t.Errorf("expected 12 records over 3 pages, got %d over %d", result.Count, result.Pages)
		}

		lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
		if len(lines) != 13 {
			t.Errorf("expected header and 12 rows, got %d lines", len(lines))
		}

		for i, req := range client.requests {
			if req.Page != i+1 || req.Limit != 5 || req.Search != "artist" {
				t.Errorf("request %d: unexpected %+v", i, req)
			}
		}
	})

	t.Run("Empty List", func(t *testing.T) {
		client := &mockClient{}
		result, err := NewEngine(client, nil, nil).Export(context.Background(), ExportOpts{Kind: formatter.KindUsers}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Count != 0 || result.Pages != 1 {
			t.Errorf("expected a single empty page, got %+v", result)
		}
		if len(client.requests) != 1 || client.requests[0].Limit != DefaultPageSize {
			t.Errorf("unexpected requests %+v", client.requests)
		}
	})

	t.Run("Music By Artist", func(t *testing.T) {
		client := &mockClient{music: []models.Music{
			{ID: 1, Title: "Sinnerman", ArtistID: 3, Genre: models.GenreJazz},
			{ID: 2, Title: "Other", ArtistID: 4, Genre: models.GenreRock},
		}}
		engine := NewEngine(client, nil, nil)

		if _, err := engine.Export(context.Background(), ExportOpts{Kind: formatter.KindMusic}, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument without an artist, got %v", err)
		}

		result, err := engine.Export(context.Background(), ExportOpts{Kind: formatter.KindMusic, ArtistID: 3}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Count != 1 || !strings.Contains(string(result.Data), "Sinnerman") {
			t.Errorf("unexpected export %+v", result)
		}
	})

	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "artists.csv")
		result, err := NewEngine(&mockClient{artists: artistsFixture(2)}, nil, nil).
			Export(context.Background(), ExportOpts{Kind: formatter.KindArtists, Output: path}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.File != path {
			t.Errorf("expected file %s, got %s", path, result.File)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Artist 02") {
			t.Error("file should contain the exported rows")
		}
	})

	t.Run("List Failure", func(t *testing.T) {
		client := &mockClient{listErr: shared.ErrForbidden}
		_, err := NewEngine(client, nil, nil).Export(context.Background(), ExportOpts{Kind: formatter.KindArtists}, nil)
		if !errors.Is(err, shared.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		_, err := NewEngine(&mockClient{}, nil, nil).Export(context.Background(), ExportOpts{Kind: "songs"}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("No Client", func(t *testing.T) {
		_, err := NewEngine(nil, nil, nil).Export(context.Background(), ExportOpts{Kind: formatter.KindUsers}, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		_, err := NewEngine(&mockClient{artists: artistsFixture(6)}, nil, nil).
			Export(context.Background(), ExportOpts{Kind: formatter.KindArtists, PageSize: 5}, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		for update := range progress {
			phases = append(phases, update.Phase)
		}
		want := []Phase{FetchPage, FetchPage, WriteExport}
		if fmt.Sprint(phases) != fmt.Sprint(want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})
}

func TestImport(t *testing.T) {
	t.Run("Collects Row Errors", func(t *testing.T) {
		client := &mockClient{failOn: map[string]error{"Rejected": shared.ErrInvalidInput}}
		recorder := &mockRecorder{}
		engine := NewEngine(client, recorder, nil)

		input := artistHeader +
			artistRow("First") +
			"Invalid,not-a-date,M,Somewhere,2010,1\n" +
			artistRow("Second") +
			artistRow("Rejected")

		result, err := engine.Import(context.Background(), ImportOpts{Kind: formatter.KindArtists, Source: "artists.csv"}, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Total != 4 || result.Created != 2 || result.Failed() != 2 {
			t.Errorf("expected 4 total, 2 created, 2 failed, got %d/%d/%d", result.Total, result.Created, result.Failed())
		}
		if result.Errors[0].Line != 2 || result.Errors[1].Line != 4 {
			t.Errorf("expected failures on rows 2 and 4, got %+v", result.Errors)
		}

		var validationErr *models.ValidationError
		if !errors.As(result.Errors[0], &validationErr) || !validationErr.Has("dob") {
			t.Errorf("row 2 should fail validation on dob, got %v", result.Errors[0].Err)
		}
		if !errors.Is(result.Errors[1], shared.ErrInvalidInput) {
			t.Errorf("row 4 should carry the API error, got %v", result.Errors[1].Err)
		}

		if len(recorder.runs) != 1 {
			t.Fatalf("expected the run to be recorded, got %d", len(recorder.runs))
		}
		run := recorder.runs[0]
		if run.Kind != "artists" || run.Source != "artists.csv" || run.Total != 4 || run.Created != 2 || run.Failed != 2 {
			t.Errorf("unexpected run %+v", run)
		}
		if run.FinishedAt.Before(run.StartedAt) {
			t.Error("run should finish after it starts")
		}
	})

	t.Run("Bounded Concurrency", func(t *testing.T) {
		client := &mockClient{delay: 20 * time.Millisecond}
		var input strings.Builder
		input.WriteString(artistHeader)
		for i := range 10 {
			input.WriteString(artistRow(fmt.Sprintf("Artist %d", i)))
		}

		result, err := NewEngine(client, nil, nil).
			Import(context.Background(), ImportOpts{Kind: formatter.KindArtists, Workers: 2}, strings.NewReader(input.String()), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 10 {
			t.Errorf("expected 10 created, got %d", result.Created)
		}
		if peak := client.maxInFlight.Load(); peak > 2 {
			t.Errorf("expected at most 2 creates in flight, saw %d", peak)
		}
	})

	t.Run("Music Uses Artist", func(t *testing.T) {
		client := &mockClient{}
		engine := NewEngine(client, nil, nil)
		input := "title,album_name,genre\nSinnerman,Pastel Blues,jazz\n"

		if _, err := engine.Import(context.Background(), ImportOpts{Kind: formatter.KindMusic}, strings.NewReader(input), nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		result, err := engine.Import(context.Background(), ImportOpts{Kind: formatter.KindMusic, ArtistID: 7}, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 1 || len(client.createdMusic[7]) != 1 {
			t.Errorf("expected the track under artist 7, got %+v", client.createdMusic)
		}
	})

	t.Run("Users", func(t *testing.T) {
		client := &mockClient{}
		input := "first_name,last_name,email,phone,password,dob,address,gender\n" +
			"Ada,Lovelace,ada@example.com,555,secret1,1815-12-10,London,F\n" +
			"Bad,Password,bad@example.com,555,123,1815-12-10,London,F\n"

		result, err := NewEngine(client, nil, nil).Import(context.Background(), ImportOpts{Kind: formatter.KindUsers}, strings.NewReader(input), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 1 || result.Failed() != 1 || result.Errors[0].Line != 2 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Header Problem", func(t *testing.T) {
		recorder := &mockRecorder{}
		_, err := NewEngine(&mockClient{}, recorder, nil).
			Import(context.Background(), ImportOpts{Kind: formatter.KindArtists}, strings.NewReader("name\nA\n"), nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(recorder.runs) != 0 {
			t.Error("a rejected file should not be recorded")
		}
	})

	t.Run("Recorder Failure Is Not Fatal", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		recorder := &mockRecorder{err: errors.New("database is locked")}
		result, err := NewEngine(&mockClient{}, recorder, nil).
			Import(context.Background(), ImportOpts{Kind: formatter.KindArtists}, strings.NewReader(artistHeader+artistRow("A")), progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 1 {
			t.Errorf("expected the row to be created, got %+v", result)
		}
		close(progress)

		var sawRecordRun bool
		for update := range progress {
			if update.Phase == RecordRun {
				sawRecordRun = true
			}
		}
		if !sawRecordRun {
			t.Error("expected a record_run progress update")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := &mockClient{}
		result, err := NewEngine(client, nil, nil).
			Import(ctx, ImportOpts{Kind: formatter.KindArtists}, strings.NewReader(artistHeader+artistRow("A")+artistRow("B")), nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Created != 0 || result.Failed() != 2 {
			t.Errorf("expected every row to be skipped, got %+v", result)
		}
		if len(client.createdArtists) != 0 {
			t.Error("no create should be sent after cancellation")
		}
	})

	t.Run("Shares Session Refresh", func(t *testing.T) {
		var refreshes, created atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/v1/artist", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer T2" {
				tu.WriteMessage(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
				return
			}
			created.Add(1)
			tu.WriteJSON(w, http.StatusCreated, map[string]any{"id": created.Load(), "name": "x"})
		})
		mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			refreshes.Add(1)
			tu.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": "T2"})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		store := auth.NewMemoryStore()
		if err := store.Set(context.Background(), auth.Credentials{AccessToken: "T1", RefreshToken: "R1"}); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
		pipeline, err := auth.NewPipeline(auth.Options{
			BaseURL:    srv.URL + "/api/v1",
			Store:      store,
			Transport:  srv.Client().Transport,
			Redirector: &tu.Redirects{},
		})
		if err != nil {
			t.Fatalf("failed to create pipeline: %v", err)
		}

		var input strings.Builder
		input.WriteString(artistHeader)
		for i := range 8 {
			input.WriteString(artistRow(fmt.Sprintf("Artist %d", i)))
		}

		engine := NewEngine(services.NewClient(pipeline, services.ClientOptions{}), nil, nil)
		result, err := engine.Import(context.Background(), ImportOpts{Kind: formatter.KindArtists}, strings.NewReader(input.String()), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 8 || created.Load() != 8 {
			t.Errorf("expected all 8 rows created, got %d (server saw %d): %v", result.Created, created.Load(), result.Errors)
		}
		if n := refreshes.Load(); n < 1 || n > DefaultImportWorkers {
			t.Errorf("expected refreshes bounded by the workers in flight, got %d", n)
		}
		if creds, _ := store.Get(context.Background()); creds.AccessToken != "T2" {
			t.Errorf("expected the refreshed credential to be stored, got %q", creds.AccessToken)
		}
	})
}

func TestSendProgress(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	t.Run("Nil Channel", func(t *testing.T) {
		engine.sendProgress(nil, ProgressUpdate{})
	})

	t.Run("Full Channel Does Not Block", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 1)
		engine.sendProgress(progress, ProgressUpdate{Message: "first"})
		engine.sendProgress(progress, ProgressUpdate{Message: "dropped"})

		if got := (<-progress).Message; got != "first" {
			t.Errorf("expected first update, got %q", got)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPage:     "fetch_page",
		WriteExport:   "write_export",
		ParseRows:     "parse_rows",
		CreateRecords: "create_records",
		RecordRun:     "record_run",
		Phase(99):     "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
