package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gender is the gender code shared by users and artists.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Genre is the genre of a [Music] track.
type Genre string

const (
	GenreRnB     Genre = "rnb"
	GenreCountry Genre = "country"
	GenreClassic Genre = "classic"
	GenreRock    Genre = "rock"
	GenreJazz    Genre = "jazz"
)

// Genres lists every accepted [Genre] in display order.
var Genres = []Genre{GenreRnB, GenreCountry, GenreClassic, GenreRock, GenreJazz}

// User is an account holder of the API.
type User struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	DOB       string `json:"dob,omitempty"`
	Address   string `json:"address,omitempty"`
	Gender    Gender `json:"gender"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Artist is a performer whose [Music] is managed through the API.
type Artist struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	DOB                string `json:"dob,omitempty"`
	Gender             Gender `json:"gender"`
	Address            string `json:"address,omitempty"`
	FirstReleaseYear   Year   `json:"first_release_year,omitempty"`
	NoOfAlbumsReleased int    `json:"no_of_albums_released"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// Music is a single track released by an [Artist].
type Music struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	AlbumName string `json:"album_name"`
	ArtistID  int    `json:"artist_id"`
	Genre     Genre  `json:"genre"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Year is a calendar year.
//
// The API returns it either as a number or as a date string; both decode to the year.
type Year int

// UnmarshalJSON accepts 1999, "1999" and "1999-01-01T00:00:00.000Z".
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}

	if data[0] != '"' {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid year %s: %w", data, err)
		}
		*y = Year(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseYear(s)
	if err != nil {
		return err
	}
	*y = parsed
	return nil
}

// ParseYear reads a year from a bare number or the leading digits of a date.
func ParseYear(s string) (Year, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if len(s) > 4 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return Year(t.Year()), nil
		}
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return Year(t.Year()), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return Year(n), nil
}

// DateOnly trims an ISO timestamp to its YYYY-MM-DD prefix for display.
func DateOnly(s string) string {
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}

// ImportRun records the outcome of one CSV import batch.
type ImportRun struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	Total      int       `json:"total"`
	Created    int       `json:"created"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time the import took.
func (r ImportRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// LoginResult is the body returned by a successful login.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"userWithoutPassword"`
}

// UserList is a page of users.
type UserList struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// ArtistList is a page of artists.
type ArtistList struct {
	Artists    []Artist   `json:"artists"`
	Pagination Pagination `json:"pagination"`
}

// MusicList is a page of an artist's tracks.
type MusicList struct {
	Music      []Music    `json:"music"`
	Pagination Pagination `json:"pagination"`
}
