package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
)

// ExportUsersCSV converts users to CSV with a [UserColumns] header.
func ExportUsersCSV(users []models.User) ([]byte, error) {
	return exportCSV(UserColumns, users, UserRecord)
}

// ExportArtistsCSV converts artists to CSV with an [ArtistColumns] header.
func ExportArtistsCSV(artists []models.Artist) ([]byte, error) {
	return exportCSV(ArtistColumns, artists, ArtistRecord)
}

// ExportMusicCSV converts music to CSV with a [MusicColumns] header.
func ExportMusicCSV(music []models.Music) ([]byte, error) {
	return exportCSV(MusicColumns, music, MusicRecord)
}

func exportCSV[T any](headers []string, items []T, record func(T) []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		if err := writer.Write(record(item)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Row is one data row of an imported CSV file.
//
// Line counts data rows from 1, so the header is not included. Err is set when the row could
// not be converted to an input; Value is then the zero value.
type Row[T any] struct {
	Line  int
	Value T
	Err   error
}

// ParseUsersCSV reads registration inputs from r. Columns are matched by header name.
func ParseUsersCSV(r io.Reader) ([]Row[models.RegisterInput], error) {
	required := []string{"first_name", "last_name", "email", "phone", "password", "dob", "address", "gender"}
	return parseCSV(r, required, func(f fields) (models.RegisterInput, error) {
		return models.RegisterInput{
			FirstName: f.get("first_name"),
			LastName:  f.get("last_name"),
			Email:     f.get("email"),
			Phone:     f.get("phone"),
			Password:  f.raw("password"),
			DOB:       models.DateOnly(f.get("dob")),
			Address:   f.get("address"),
			Gender:    models.Gender(strings.ToUpper(f.get("gender"))),
		}, nil
	})
}

// ParseArtistsCSV reads artist inputs from r. A missing no_of_albums_released column reads as 0.
func ParseArtistsCSV(r io.Reader) ([]Row[models.ArtistInput], error) {
	required := []string{"name", "dob", "gender", "address", "first_release_year"}
	return parseCSV(r, required, func(f fields) (models.ArtistInput, error) {
		year, err := models.ParseYear(f.get("first_release_year"))
		if err != nil {
			return models.ArtistInput{}, fmt.Errorf("%w: first_release_year: %v", shared.ErrInvalidInput, err)
		}
		albums, err := f.int("no_of_albums_released")
		if err != nil {
			return models.ArtistInput{}, err
		}

		return models.ArtistInput{
			Name:               f.get("name"),
			DOB:                models.DateOnly(f.get("dob")),
			Gender:             models.Gender(strings.ToUpper(f.get("gender"))),
			Address:            f.get("address"),
			FirstReleaseYear:   int(year),
			NoOfAlbumsReleased: albums,
		}, nil
	})
}

// ParseMusicCSV reads track inputs from r. The owning artist is chosen by the caller, so an
// artist_id column is ignored.
func ParseMusicCSV(r io.Reader) ([]Row[models.MusicInput], error) {
	required := []string{"title", "album_name", "genre"}
	return parseCSV(r, required, func(f fields) (models.MusicInput, error) {
		return models.MusicInput{
			Title:     f.get("title"),
			AlbumName: f.get("album_name"),
			Genre:     models.Genre(strings.ToLower(f.get("genre"))),
		}, nil
	})
}

// fields looks up the cells of one record by normalized header name.
type fields struct {
	index  map[string]int
	record []string
}

func (f fields) raw(name string) string {
	i, ok := f.index[name]
	if !ok || i >= len(f.record) {
		return ""
	}
	return f.record[i]
}

func (f fields) get(name string) string {
	return strings.TrimSpace(f.raw(name))
}

func (f fields) int(name string) (int, error) {
	s := f.get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", shared.ErrInvalidInput, name, s)
	}
	return n, nil
}

func (f fields) blank() bool {
	for _, cell := range f.record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseCSV[T any](r io.Reader, required []string, build func(fields) (T, error)) ([]Row[T], error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeHeader(name)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: CSV header is missing %s", shared.ErrInvalidInput, strings.Join(missing, ", "))
	}

	var rows []Row[T]
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
			}
			rows = append(rows, Row[T]{Line: line, Err: fmt.Errorf("%w: %v", shared.ErrInvalidInput, parseErr.Err)})
			continue
		}

		f := fields{index: index, record: record}
		if f.blank() {
			continue
		}

		value, err := build(f)
		rows = append(rows, Row[T]{Line: line, Value: value, Err: err})
	}

	return rows, nil
}

// normalizeHeader maps "First Name", "first-name" and "FIRST_NAME" to first_name.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
