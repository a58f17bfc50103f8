package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CredentialRow is the persisted credential pair of one profile.
type CredentialRow struct {
	Profile          string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UpdatedAt        time.Time
}

// CredentialRepository persists credential pairs keyed by profile.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential pair of profile.
//
// A profile without a row yields (nil, nil): an absent session is not an error.
func (r *CredentialRepository) Get(profile string) (*CredentialRow, error) {
	query := `
		SELECT profile, access_token, refresh_token, access_expires_at, refresh_expires_at, updated_at
		FROM credentials
		WHERE profile = ?
	`

	var (
		row            CredentialRow
		accessExpires  sql.NullTime
		refreshExpires sql.NullTime
	)

	err := r.db.QueryRow(query, profile).Scan(
		&row.Profile, &row.AccessToken, &row.RefreshToken, &accessExpires, &refreshExpires, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	if accessExpires.Valid {
		row.AccessExpiresAt = accessExpires.Time
	}
	if refreshExpires.Valid {
		row.RefreshExpiresAt = refreshExpires.Time
	}

	return &row, nil
}

// Save inserts or replaces the credential pair of row.Profile.
func (r *CredentialRepository) Save(row *CredentialRow) error {
	if row.Profile == "" {
		return fmt.Errorf("validation failed: profile is required")
	}

	row.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO credentials (profile, access_token, refresh_token, access_expires_at, refresh_expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			access_expires_at = excluded.access_expires_at,
			refresh_expires_at = excluded.refresh_expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		row.Profile,
		row.AccessToken,
		row.RefreshToken,
		nullTime(row.AccessExpiresAt),
		nullTime(row.RefreshExpiresAt),
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Delete removes the credential pair of profile. Deleting a missing profile is not an error.
func (r *CredentialRepository) Delete(profile string) error {
	if _, err := r.db.Exec("DELETE FROM credentials WHERE profile = ?", profile); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Profiles lists every profile with stored credentials.
func (r *CredentialRepository) Profiles() ([]string, error) {
	rows, err := r.db.Query("SELECT profile FROM credentials ORDER BY profile ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var profile string
		if err := rows.Scan(&profile); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return profiles, nil
}
