package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/amsctl/internal/shared"
)

// Driver identifiers accepted by [NewStore].
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// CredentialStore persists the credential pair of a session.
//
// Get never fails because a session is missing or expired: it returns the live parts,
// which may be empty.
type CredentialStore interface {
	Get(ctx context.Context) (Credentials, error)
	Set(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
	Close() error
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	DB *sql.DB
}

// NewStore creates a credential store based on the provided configuration.
func NewStore(cfg shared.StoreConfig, deps Dependencies) (CredentialStore, error) {
	profile := cfg.Profile
	if profile == "" {
		profile = "default"
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		return NewFileStore(shared.ExpandHome(cfg.Path), profile)
	case DriverSQLite:
		if deps.DB == nil {
			return nil, fmt.Errorf("%w: sqlite driver requires a database handle", shared.ErrInvalidConfig)
		}
		return NewSQLiteStore(deps.DB, profile), nil
	case DriverRedis:
		return NewRedisStore(cfg.Redis, profile)
	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
