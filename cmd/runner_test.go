package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
	tu "github.com/desertthunder/amsctl/internal/testing"
)

// fakeAPI serves the endpoints the CLI talks to. Only "Bearer <valid>" is accepted.
type fakeAPI struct {
	mu        sync.Mutex
	valid     string
	refreshes int
	artists   []models.Artist
	created   []models.ArtistInput
	track     models.Music
	updated   *models.MusicInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		valid: "T1",
		artists: []models.Artist{
			{ID: 1, Name: "Nina Simone", Gender: models.GenderFemale, FirstReleaseYear: 1958, NoOfAlbumsReleased: 40},
			{ID: 2, Name: "Miles Davis", Gender: models.GenderMale, FirstReleaseYear: 1951, NoOfAlbumsReleased: 60},
		},
		track: models.Music{ID: 5, Title: "Sinnerman", AlbumName: "Pastel Blues", ArtistID: 1, Genre: models.GenreJazz},
	}
}

// expire makes the current access credential stale, so the next request has to refresh.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = "T2"
}

func (f *fakeAPI) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeAPI) createdInputs() []models.ArtistInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

func (f *fakeAPI) lastUpdate() *models.MusicInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

func (f *fakeAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	valid := f.valid
	f.mu.Unlock()

	switch r.Header.Get("Authorization") {
	case "":
		tu.WriteMessage(w, http.StatusUnauthorized, "NO_ACCESS_TOKEN")
		return false
	case "Bearer " + valid:
		return true
	default:
		tu.WriteMessage(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		return false
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var in models.LoginInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret1" {
			tu.WriteMessage(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
			return
		}
		tu.WriteJSON(w, http.StatusOK, map[string]any{
			"accessToken":         "T1",
			"refreshToken":        "R1",
			"userWithoutPassword": models.User{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: in.Email},
		})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie(auth.RefreshCookie); err != nil || ck.Value != "R1" {
			tu.WriteMessage(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")
			return
		}
		f.mu.Lock()
		f.refreshes++
		f.mu.Unlock()
		tu.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": "T2"})
	})

	mux.HandleFunc("GET /artist", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		tu.WriteJSON(w, http.StatusOK, models.ArtistList{
			Artists:    f.artists,
			Pagination: models.Pagination{TotalArtists: len(f.artists), TotalPages: 1, CurrentPage: 1, Limit: 50},
		})
	})

	mux.HandleFunc("POST /artist", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var in models.ArtistInput
		_ = json.NewDecoder(r.Body).Decode(&in)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.created = append(f.created, in)
		tu.WriteJSON(w, http.StatusCreated, map[string]any{
			"artist": models.Artist{ID: 100 + len(f.created), Name: in.Name, Gender: in.Gender},
		})
	})

	mux.HandleFunc("GET /music/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "5" {
			tu.WriteMessage(w, http.StatusNotFound, "Music not found")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		tu.WriteJSON(w, http.StatusOK, map[string]any{"music": f.track})
	})

	mux.HandleFunc("PUT /music/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var in models.MusicInput
		_ = json.NewDecoder(r.Body).Decode(&in)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.updated = &in
		track := f.track
		track.Title, track.AlbumName, track.Genre = in.Title, in.AlbumName, in.Genre
		tu.WriteJSON(w, http.StatusOK, map[string]any{"music": track})
	})

	return mux
}

type testEnv struct {
	api    *fakeAPI
	runner *Runner
	store  *auth.MemoryStore
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.API.BaseURL = srv.URL
	config.API.RateLimit = 0
	config.Store.Driver = auth.DriverMemory
	config.Database.Path = filepath.Join(t.TempDir(), "amsctl.db")

	store := auth.NewMemoryStore()
	out := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  store,
		Logger: shared.NewLogger(io.Discard),
		Output: out,
	})
	return &testEnv{api: api, runner: runner, store: store, out: out}
}

func (e *testEnv) run(args ...string) error {
	e.out.Reset()
	return newApp(e.runner).Run(context.Background(), append([]string{"amsctl"}, args...))
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	if err := e.run("auth", "login", "--email", "ada@example.com", "--password", "secret1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with store keeps it", func(t *testing.T) {
			store := auth.NewMemoryStore()
			runner := NewRunner(RunnerOpts{Store: store})
			if runner.store != store || runner.ownsStore {
				t.Error("expected the given store to be used and left open")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		names := map[string]bool{}
		for _, cmd := range NewRunner(RunnerOpts{}).register() {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "users", "artists", "music", "imports", "proxy", "tui"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: out})
		if err := runner.writeJSON(map[string]int{"count": 2}, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "{\"count\":2}\n" {
			t.Errorf("unexpected output %q", out.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writeJSON("x", false); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("Login Stores Session", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if !strings.Contains(env.out.String(), "Logged in as Ada Lovelace") {
			t.Errorf("unexpected output %q", env.out.String())
		}
		creds, _ := env.store.Get(context.Background())
		if creds.AccessToken != "T1" || creds.RefreshToken != "R1" {
			t.Errorf("unexpected credentials %+v", creds)
		}
	})

	t.Run("Login Requires Password", func(t *testing.T) {
		t.Setenv("AMS_PASSWORD", "")
		env := newTestEnv(t)

		err := env.run("auth", "login", "--email", "ada@example.com")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run("auth", "login", "--email", "ada@example.com", "--password", "nope")
		if err == nil {
			t.Fatal("expected login to fail")
		}
		if env.api.refreshCount() != 0 {
			t.Errorf("a failed login must not refresh, got %d", env.api.refreshCount())
		}
	})

	t.Run("Status", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "not logged in") {
			t.Errorf("expected logged out status, got %q", env.out.String())
		}

		env.login(t)
		if err := env.run("auth", "status", "--json"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var status sessionStatus
		if err := json.Unmarshal(env.out.Bytes(), &status); err != nil {
			t.Fatalf("status is not JSON: %v", err)
		}
		if !status.Authenticated || !status.HasAccess || !status.HasRefresh || !status.Opaque {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		creds, _ := env.store.Get(context.Background())
		if !creds.Empty() {
			t.Errorf("expected store to be cleared, got %+v", creds)
		}
	})

	t.Run("Refresh And Token", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("auth", "refresh"); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if err := env.run("auth", "token"); err != nil {
			t.Fatalf("token failed: %v", err)
		}
		if strings.TrimSpace(env.out.String()) != "T2" {
			t.Errorf("expected refreshed token, got %q", env.out.String())
		}
	})

	t.Run("Import From Curl", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(t.TempDir(), "request.sh")
		curl := "curl 'http://localhost/artist' \\\n  -H 'Authorization: Bearer T1' \\\n  -b 'refreshToken=R1'\n"
		if err := os.WriteFile(path, []byte(curl), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		if err := env.run("auth", "import", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		creds, _ := env.store.Get(context.Background())
		if creds.AccessToken != "T1" || creds.RefreshToken != "R1" {
			t.Errorf("unexpected credentials %+v", creds)
		}

		if err := env.run("artists", "list", "--json"); err != nil {
			t.Errorf("imported session should be usable: %v", err)
		}
	})

	t.Run("Token Without Session", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("auth", "token"); !shared.NeedsLogin(err) {
			t.Errorf("expected a login error, got %v", err)
		}
	})
}

func TestRecordCommands(t *testing.T) {
	t.Run("Artists List JSON", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("artists", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var list models.ArtistList
		if err := json.Unmarshal(env.out.Bytes(), &list); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(list.Artists) != 2 || list.Artists[0].Name != "Nina Simone" {
			t.Errorf("unexpected list %+v", list)
		}
	})

	t.Run("Artists List Table", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("artists", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		out := env.out.String()
		for _, want := range []string{"Nina Simone", "Miles Davis", "Page 1 of 1 (2 artists)"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Transparent Refresh", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)
		env.api.expire()

		if err := env.run("artists", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if env.api.refreshCount() != 1 {
			t.Errorf("expected 1 refresh, got %d", env.api.refreshCount())
		}
		creds, _ := env.store.Get(context.Background())
		if creds.AccessToken != "T2" {
			t.Errorf("expected stored access T2, got %q", creds.AccessToken)
		}
	})

	t.Run("Not Logged In", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("artists", "list")
		if !shared.NeedsLogin(err) {
			t.Errorf("expected a login error, got %v", err)
		}
	})

	t.Run("Invalid ID", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("artists", "get", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Create Artist", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		err := env.run("artists", "create",
			"--name", "Alice Coltrane", "--dob", "1937-08-27", "--gender", "f",
			"--address", "Detroit", "--first-release-year", "1968", "--json")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		created := env.api.createdInputs()
		if len(created) != 1 || created[0].Gender != models.GenderFemale {
			t.Errorf("unexpected created %+v", created)
		}
		if !strings.Contains(env.out.String(), "Alice Coltrane") {
			t.Errorf("unexpected output %q", env.out.String())
		}
	})

	t.Run("Create Artist Validates", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		err := env.run("artists", "create",
			"--name", "Alice Coltrane", "--dob", "27/08/1937", "--gender", "f",
			"--address", "Detroit", "--first-release-year", "1968")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(env.api.createdInputs()) != 0 {
			t.Error("invalid input must not reach the API")
		}
	})

	t.Run("Music Update Keeps Unset Fields", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("music", "update", "--genre", "ROCK", "5"); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		got := env.api.lastUpdate()
		if got == nil {
			t.Fatal("expected a PUT request")
		}
		if got.Title != "Sinnerman" || got.AlbumName != "Pastel Blues" || got.Genre != models.GenreRock {
			t.Errorf("unexpected update %+v", *got)
		}
	})
}

func TestTransferCommands(t *testing.T) {
	t.Run("Export To Stdout", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		if err := env.run("artists", "export"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		out := env.out.String()
		if !strings.HasPrefix(out, "id,name,") || !strings.Contains(out, "Nina Simone") {
			t.Errorf("unexpected CSV %q", out)
		}
	})

	t.Run("Export To File", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)
		path := filepath.Join(t.TempDir(), "out", "artists.csv")

		if err := env.run("artists", "export", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Miles Davis") {
			t.Error("exported file is missing rows")
		}
		if !strings.Contains(env.out.String(), "Exported 2 artists") {
			t.Errorf("unexpected output %q", env.out.String())
		}
	})

	t.Run("Import And History", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		path := filepath.Join(t.TempDir(), "artists.csv")
		csv := "name,dob,gender,address,first_release_year,no_of_albums_released\n" +
			"Alice Coltrane,1937-08-27,F,Detroit,1968,20\n" +
			"Sun Ra,1914-05-22,M,Birmingham,someday,100\n" +
			"Pharoah Sanders,1940-10-13,M,Little Rock,1965,30\n"
		if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
			t.Fatalf("failed to write CSV: %v", err)
		}

		if err := env.run("artists", "import", "--json", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		var report importReport
		if err := json.Unmarshal(env.out.Bytes(), &report); err != nil {
			t.Fatalf("report is not JSON: %v\n%s", err, env.out.String())
		}
		if report.Total != 3 || report.Created != 2 || report.Failed != 1 {
			t.Errorf("unexpected report %+v", report)
		}
		if len(report.Errors) != 1 || report.Errors[0].Line != 2 {
			t.Errorf("expected row 2 to fail, got %+v", report.Errors)
		}

		if err := env.run("imports", "--json"); err != nil {
			t.Fatalf("imports failed: %v", err)
		}
		var runs []models.ImportRun
		if err := json.Unmarshal(env.out.Bytes(), &runs); err != nil {
			t.Fatalf("history is not JSON: %v", err)
		}
		if len(runs) != 1 || runs[0].Kind != "artists" || runs[0].Source != "artists.csv" || runs[0].Created != 2 {
			t.Errorf("unexpected history %+v", runs)
		}
	})

	t.Run("Import Missing File", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("artists", "import"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Imports Invalid Kind", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("imports", "--kind", "songs"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})

		if err := newApp(runner).Run(context.Background(), []string{"amsctl", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("written config does not load: %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("written config is invalid: %v", err)
		}
	})

	t.Run("Database", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "Database ready") {
			t.Errorf("unexpected output %q", env.out.String())
		}
	})
}
