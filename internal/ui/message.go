package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/amsctl/internal/models"
)

var (
	_ tea.Msg = artistsLoadedMsg{}
	_ tea.Msg = musicLoadedMsg{}
	_ tea.Msg = deletedMsg{}
)

// artistsLoadedMsg carries one page of artists, or the error that prevented loading it.
type artistsLoadedMsg struct {
	req  models.PageRequest
	list *models.ArtistList
	err  error
}

// musicLoadedMsg carries one page of the tracks of artistID.
type musicLoadedMsg struct {
	artistID int
	req      models.PageRequest
	list     *models.MusicList
	err      error
}

// deletedMsg reports the outcome of a confirmed delete.
type deletedMsg struct {
	view  ViewState
	id    int
	label string
	err   error
}
