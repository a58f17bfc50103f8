// package formatter converts users, artists and music to and from CSV and renders them as terminal tables
package formatter

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
)

// Kind names a record type that can be listed, exported and imported.
type Kind string

const (
	KindUsers   Kind = "users"
	KindArtists Kind = "artists"
	KindMusic   Kind = "music"
)

// ParseKind validates a record type name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindUsers, KindArtists, KindMusic:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown record type %q (want users, artists or music)", shared.ErrInvalidArgument, s)
	}
}

// Columns of exported CSV files, in order.
var (
	UserColumns   = []string{"id", "first_name", "last_name", "email", "phone", "dob", "address", "gender", "role", "created_at"}
	ArtistColumns = []string{"id", "name", "dob", "gender", "address", "first_release_year", "no_of_albums_released", "created_at"}
	MusicColumns  = []string{"id", "title", "album_name", "artist_id", "genre", "created_at"}
)

// UserRecord flattens u in [UserColumns] order.
func UserRecord(u models.User) []string {
	return []string{
		strconv.Itoa(u.ID),
		u.FirstName,
		u.LastName,
		u.Email,
		u.Phone,
		models.DateOnly(u.DOB),
		u.Address,
		string(u.Gender),
		u.Role,
		u.CreatedAt,
	}
}

// ArtistRecord flattens a in [ArtistColumns] order.
func ArtistRecord(a models.Artist) []string {
	return []string{
		strconv.Itoa(a.ID),
		a.Name,
		models.DateOnly(a.DOB),
		string(a.Gender),
		a.Address,
		yearString(a.FirstReleaseYear),
		strconv.Itoa(a.NoOfAlbumsReleased),
		a.CreatedAt,
	}
}

// MusicRecord flattens m in [MusicColumns] order.
func MusicRecord(m models.Music) []string {
	return []string{
		strconv.Itoa(m.ID),
		m.Title,
		m.AlbumName,
		strconv.Itoa(m.ArtistID),
		string(m.Genre),
		m.CreatedAt,
	}
}

func yearString(y models.Year) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(int(y))
}
