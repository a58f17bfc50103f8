package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/desertthunder/amsctl/internal/models"
)

func artistColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Name", Width: 24},
		{Title: "Date of Birth", Width: 13},
		{Title: "Address", Width: 20},
		{Title: "First Release", Width: 13},
		{Title: "Albums", Width: 7},
	}
}

func musicColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Title", Width: 26},
		{Title: "Album", Width: 22},
		{Title: "Genre", Width: 9},
		{Title: "Created At", Width: 12},
		{Title: "Updated At", Width: 12},
	}
}

func artistRows(artists []models.Artist) []table.Row {
	rows := make([]table.Row, len(artists))
	for i, a := range artists {
		year := ""
		if a.FirstReleaseYear != 0 {
			year = strconv.Itoa(int(a.FirstReleaseYear))
		}
		rows[i] = table.Row{
			strconv.Itoa(a.ID),
			a.Name,
			models.DateOnly(a.DOB),
			a.Address,
			year,
			strconv.Itoa(a.NoOfAlbumsReleased),
		}
	}
	return rows
}

func musicRows(music []models.Music) []table.Row {
	rows := make([]table.Row, len(music))
	for i, m := range music {
		rows[i] = table.Row{
			strconv.Itoa(m.ID),
			m.Title,
			m.AlbumName,
			string(m.Genre),
			models.DateOnly(m.CreatedAt),
			models.DateOnly(m.UpdatedAt),
		}
	}
	return rows
}
