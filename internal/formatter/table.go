package formatter

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/amsctl/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// UsersTable renders users the way the dashboard lists them.
func UsersTable(users []models.User) string {
	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{strconv.Itoa(u.ID), u.FirstName, u.LastName, u.Email, models.DateOnly(u.DOB), u.Phone, u.Address}
	}
	return Table([]string{"ID", "First Name", "Last Name", "Email", "DOB", "Phone", "Address"}, rows)
}

// ArtistsTable renders artists the way the dashboard lists them.
func ArtistsTable(artists []models.Artist) string {
	rows := make([][]string, len(artists))
	for i, a := range artists {
		rows[i] = []string{
			strconv.Itoa(a.ID),
			a.Name,
			models.DateOnly(a.DOB),
			a.Address,
			yearString(a.FirstReleaseYear),
			strconv.Itoa(a.NoOfAlbumsReleased),
		}
	}
	return Table([]string{"ID", "Name", "Date of Birth", "Address", "First Released Year", "No. of Albums Released"}, rows)
}

// MusicTable renders the tracks of one artist.
func MusicTable(music []models.Music) string {
	rows := make([][]string, len(music))
	for i, m := range music {
		rows[i] = []string{strconv.Itoa(m.ID), m.Title, m.AlbumName, string(m.Genre), models.DateOnly(m.CreatedAt), models.DateOnly(m.UpdatedAt)}
	}
	return Table([]string{"ID", "Title", "Album", "Genre", "Created At", "Updated At"}, rows)
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
