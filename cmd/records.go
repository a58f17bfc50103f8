package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/urfave/cli/v3"
)

func idFrom(cmd *cli.Command) (int, error) {
	raw := strings.TrimSpace(cmd.StringArg("id"))
	if raw == "" {
		return 0, fmt.Errorf("%w: record id", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q is not a record id", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

func pageFrom(cmd *cli.Command) models.PageRequest {
	return models.PageRequest{
		Page:   cmd.Int("page"),
		Limit:  cmd.Int("limit"),
		Search: strings.TrimSpace(cmd.String("search")),
	}.Normalize()
}

// optString returns nil unless the flag was given, so partial updates only send what changed.
func optString(cmd *cli.Command, name string) *string {
	if !cmd.IsSet(name) {
		return nil
	}
	v := strings.TrimSpace(cmd.String(name))
	return &v
}

func optInt(cmd *cli.Command, name string) *int {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Int(name)
	return &v
}

func optGender(cmd *cli.Command) *models.Gender {
	if !cmd.IsSet("gender") {
		return nil
	}
	g := models.Gender(strings.ToUpper(strings.TrimSpace(cmd.String("gender"))))
	return &g
}

func (r *Runner) writePageFooter(p models.Pagination, req models.PageRequest, noun string) error {
	line := fmt.Sprintf("Page %d of %d (%d %s)", req.Page, p.LastPage(), p.Total(), noun)
	if req.Search != "" {
		line += fmt.Sprintf(", search %q", req.Search)
	}
	if p.HasNext() && p.CurrentPage > 0 {
		line += fmt.Sprintf(", next: --page %d", p.CurrentPage+1)
	}
	return r.writePlain("%s\n", line)
}

// UsersList prints one page of users.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	req := pageFrom(cmd)
	list, err := client.ListUsers(ctx, req)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	r.writePlain("%s\n", formatter.UsersTable(list.Users))
	return r.writePageFooter(list.Pagination, req, "users")
}

// UsersGet prints a single user.
func (r *Runner) UsersGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	user, err := client.GetUser(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", formatter.UsersTable([]models.User{*user}))
}

// UsersUpdate changes the fields given as flags.
func (r *Runner) UsersUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	update := models.UserUpdate{
		FirstName: optString(cmd, "first-name"),
		LastName:  optString(cmd, "last-name"),
		Email:     optString(cmd, "email"),
		Phone:     optString(cmd, "phone"),
		DOB:       optString(cmd, "dob"),
		Address:   optString(cmd, "address"),
		Gender:    optGender(cmd),
	}
	if cmd.IsSet("password") {
		password := cmd.String("password")
		update.Password = &password
	}

	user, err := client.UpdateUser(ctx, id, update)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated user %d (%s)\n", user.ID, user.Email)
}

// UsersDelete removes a user.
func (r *Runner) UsersDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.connect()
	if err != nil {
		return err
	}

	if err := client.DeleteUser(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted user %d\n", id)
}
