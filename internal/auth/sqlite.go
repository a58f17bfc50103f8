package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/desertthunder/amsctl/internal/repositories"
)

// SQLiteStore keeps credentials in the local database, one row per profile.
type SQLiteStore struct {
	repo    *repositories.CredentialRepository
	profile string
}

// NewSQLiteStore creates a store for profile. The database must have migrations applied
// and remains owned by the caller.
func NewSQLiteStore(db *sql.DB, profile string) *SQLiteStore {
	return &SQLiteStore{repo: repositories.NewCredentialRepository(db), profile: profile}
}

func (s *SQLiteStore) Get(context.Context) (Credentials, error) {
	row, err := s.repo.Get(s.profile)
	if err != nil || row == nil {
		return Credentials{}, err
	}

	c := Credentials{
		AccessToken:      row.AccessToken,
		RefreshToken:     row.RefreshToken,
		AccessExpiresAt:  row.AccessExpiresAt,
		RefreshExpiresAt: row.RefreshExpiresAt,
	}
	return c.Live(time.Now()), nil
}

func (s *SQLiteStore) Set(_ context.Context, c Credentials) error {
	return s.repo.Save(&repositories.CredentialRow{
		Profile:          s.profile,
		AccessToken:      c.AccessToken,
		RefreshToken:     c.RefreshToken,
		AccessExpiresAt:  c.AccessExpiresAt,
		RefreshExpiresAt: c.RefreshExpiresAt,
	})
}

func (s *SQLiteStore) Clear(context.Context) error {
	return s.repo.Delete(s.profile)
}

func (s *SQLiteStore) Close() error { return nil }
