package main

import (
	"context"
	"strings"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/urfave/cli/v3"
)

// ArtistsList prints one page of artists.
func (r *Runner) ArtistsList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	req := pageFrom(cmd)
	list, err := client.ListArtists(ctx, req)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	r.writePlain("%s\n", formatter.ArtistsTable(list.Artists))
	return r.writePageFooter(list.Pagination, req, "artists")
}

// ArtistsGet prints a single artist.
func (r *Runner) ArtistsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	artist, err := client.GetArtist(ctx, id)
	if err != nil {
		return err
	}
	return r.writeArtist(cmd, artist)
}

// ArtistsCreate adds an artist.
func (r *Runner) ArtistsCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	artist, err := client.CreateArtist(ctx, models.ArtistInput{
		Name:               strings.TrimSpace(cmd.String("name")),
		DOB:                strings.TrimSpace(cmd.String("dob")),
		Gender:             models.Gender(strings.ToUpper(strings.TrimSpace(cmd.String("gender")))),
		Address:            strings.TrimSpace(cmd.String("address")),
		FirstReleaseYear:   cmd.Int("first-release-year"),
		NoOfAlbumsReleased: cmd.Int("albums"),
	})
	if err != nil {
		return err
	}

	r.logger.Info("artist created", "id", artist.ID)
	return r.writeArtist(cmd, artist)
}

// ArtistsUpdate changes the fields given as flags.
func (r *Runner) ArtistsUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	artist, err := client.UpdateArtist(ctx, id, models.ArtistUpdate{
		Name:               optString(cmd, "name"),
		DOB:                optString(cmd, "dob"),
		Gender:             optGender(cmd),
		Address:            optString(cmd, "address"),
		FirstReleaseYear:   optInt(cmd, "first-release-year"),
		NoOfAlbumsReleased: optInt(cmd, "albums"),
	})
	if err != nil {
		return err
	}
	return r.writeArtist(cmd, artist)
}

// ArtistsDelete removes an artist.
func (r *Runner) ArtistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	if err := client.DeleteArtist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted artist %d\n", id)
}

func (r *Runner) writeArtist(cmd *cli.Command, artist *models.Artist) error {
	if cmd.Bool("json") {
		return r.writeJSON(artist, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", formatter.ArtistsTable([]models.Artist{*artist}))
}
