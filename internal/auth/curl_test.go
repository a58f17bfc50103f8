package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/amsctl/internal/shared"
)

func TestParseCurl(t *testing.T) {
	tt := []struct {
		name        string
		command     string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:        "single quoted header",
			command:     `curl -H 'Authorization: Bearer token123' https://api.example.com`,
			wantHeaders: map[string]string{"Authorization": "Bearer token123"},
		},
		{
			name:        "double quoted header",
			command:     `curl -H "Authorization: Bearer token123" https://api.example.com`,
			wantHeaders: map[string]string{"Authorization": "Bearer token123"},
		},
		{
			name:        "cookie flag",
			command:     `curl -b 'refreshToken=R1' https://api.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "refreshToken=R1",
		},
		{
			name:        "long cookie flag",
			command:     `curl --cookie "refreshToken=R1" https://api.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "refreshToken=R1",
		},
		{
			name:        "cookie header is kept apart",
			command:     `curl -H 'Cookie: refreshToken=R1; theme=dark' -H 'Authorization: Bearer T1' https://api.example.com`,
			wantHeaders: map[string]string{"Authorization": "Bearer T1"},
			wantCookie:  "refreshToken=R1; theme=dark",
		},
		{
			name:        "cookie flag wins over header",
			command:     `curl -H 'Cookie: old=value' -b 'new=value' https://api.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "new=value",
		},
		{
			name: "multiline",
			command: `curl 'http://localhost:3000/artist?page=1&limit=5' \
  -H 'accept: application/json' \
  -H 'authorization: Bearer T1' \
  -b 'refreshToken=R1'`,
			wantHeaders: map[string]string{"accept": "application/json", "authorization": "Bearer T1"},
			wantCookie:  "refreshToken=R1",
		},
		{
			name:    "nothing to read",
			command: `curl https://api.example.com`,
			wantErr: true,
		},
		{
			name:    "empty",
			command: "",
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurl(tc.command)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("got %d headers, want %d", len(got.Headers), len(tc.wantHeaders))
			}
			for k, want := range tc.wantHeaders {
				if got.Headers[k] != want {
					t.Errorf("header %s = %q, want %q", k, got.Headers[k], want)
				}
			}
			if got.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
		})
	}
}

func TestCurlSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Credentials", func(t *testing.T) {
		s, err := ParseCurl(`curl -H 'authorization: bearer T1' -H 'Cookie: theme=dark; refreshToken=R1' http://x`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.AccessToken() != "T1" || s.RefreshToken() != "R1" {
			t.Fatalf("got access %q refresh %q", s.AccessToken(), s.RefreshToken())
		}

		creds, err := s.Credentials(DefaultPolicy(), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.AccessToken != "T1" || creds.RefreshToken != "R1" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		if !creds.AccessExpiresAt.Equal(now.Add(24 * time.Hour)) {
			t.Errorf("unexpected access expiry %v", creds.AccessExpiresAt)
		}
	})

	t.Run("Other Schemes Ignored", func(t *testing.T) {
		s, _ := ParseCurl(`curl -H 'Authorization: Basic dXNlcg==' http://x`)
		if s.AccessToken() != "" {
			t.Errorf("expected no bearer token, got %q", s.AccessToken())
		}
		if _, err := s.Credentials(DefaultPolicy(), now); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Refresh Only", func(t *testing.T) {
		s, _ := ParseCurl(`curl -b 'refreshToken=R1' http://x`)
		creds, err := s.Credentials(DefaultPolicy(), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.AccessToken != "" || creds.RefreshToken != "R1" {
			t.Errorf("unexpected credentials %+v", creds)
		}
	})

	t.Run("ParseCurlFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.sh")
		if err := os.WriteFile(path, []byte(`curl -H 'Authorization: Bearer T1' http://x`), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		s, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.AccessToken() != "T1" {
			t.Errorf("unexpected access token %q", s.AccessToken())
		}

		if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "missing.sh")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})
}
