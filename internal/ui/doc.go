// Package ui implements an interactive terminal browser for artists and their music using bubbletea's
// Elm architecture.
//
// The TUI has three views:
//  1. [ArtistListView] : Page through artists, search by name, open or delete one
//  2. [MusicListView] : Page through the tracks of the opened artist
//  3. [ConfirmDeleteView] : Answer y/n before a record is deleted
//
// Every API call runs as a [tea.Cmd] against a [Browser], normally the services client, so an
// expired access token is refreshed by the same pipeline the CLI uses. When the session cannot be
// recovered the error is shown with a hint to log in again.
//
// Keyboard navigation uses vim-style bindings (j/k, n/p, /, enter, esc, d, y/n, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
