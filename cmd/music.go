package main

import (
	"context"
	"strings"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/urfave/cli/v3"
)

// MusicList prints one page of an artist's music.
func (r *Runner) MusicList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	req := pageFrom(cmd)
	list, err := client.ListMusic(ctx, cmd.Int("artist"), req)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	r.writePlain("%s\n", formatter.MusicTable(list.Music))
	return r.writePageFooter(list.Pagination, req, "tracks")
}

// MusicGet prints a single track.
func (r *Runner) MusicGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	track, err := client.GetMusic(ctx, id)
	if err != nil {
		return err
	}
	return r.writeMusic(cmd, track)
}

// MusicCreate adds a track to the artist given by --artist.
func (r *Runner) MusicCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	track, err := client.CreateMusic(ctx, cmd.Int("artist"), models.MusicInput{
		Title:     strings.TrimSpace(cmd.String("title")),
		AlbumName: strings.TrimSpace(cmd.String("album")),
		Genre:     models.Genre(strings.ToLower(strings.TrimSpace(cmd.String("genre")))),
	})
	if err != nil {
		return err
	}

	r.logger.Info("track created", "id", track.ID, "artist", track.ArtistID)
	return r.writeMusic(cmd, track)
}

// MusicUpdate changes the fields given as flags. The API replaces every field, so the current
// track is fetched first and the flags are laid over it.
func (r *Runner) MusicUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	current, err := client.GetMusic(ctx, id)
	if err != nil {
		return err
	}

	in := models.MusicInput{Title: current.Title, AlbumName: current.AlbumName, Genre: current.Genre}
	if v := optString(cmd, "title"); v != nil {
		in.Title = *v
	}
	if v := optString(cmd, "album"); v != nil {
		in.AlbumName = *v
	}
	if v := optString(cmd, "genre"); v != nil {
		in.Genre = models.Genre(strings.ToLower(*v))
	}

	track, err := client.UpdateMusic(ctx, id, in)
	if err != nil {
		return err
	}
	return r.writeMusic(cmd, track)
}

// MusicDelete removes a track.
func (r *Runner) MusicDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	if err := client.DeleteMusic(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted track %d\n", id)
}

func (r *Runner) writeMusic(cmd *cli.Command, track *models.Music) error {
	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", formatter.MusicTable([]models.Music{*track}))
}
