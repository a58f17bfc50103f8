package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionStatus is the output of `auth status`.
type sessionStatus struct {
	API              string    `json:"api"`
	Authenticated    bool      `json:"authenticated"`
	HasAccess        bool      `json:"has_access"`
	HasRefresh       bool      `json:"has_refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at,omitzero"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
	TokenExpiresAt   time.Time `json:"token_expires_at,omitzero"`
	Subject          string    `json:"subject,omitempty"`
	Opaque           bool      `json:"opaque"`
}

// AuthLogin exchanges an email and password for a credential pair.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or AMS_PASSWORD is required", shared.ErrMissingArgument)
	}

	result, err := client.Login(ctx, models.LoginInput{Email: cmd.String("email"), Password: password})
	if err != nil {
		return err
	}

	name := result.User.FullName()
	if name == "" {
		name = result.User.Email
	}
	return r.writePlain("✓ Logged in as %s\n", name)
}

// AuthRegister creates an account. It does not log in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	user, err := client.Register(ctx, models.RegisterInput{
		FirstName: cmd.String("first-name"),
		LastName:  cmd.String("last-name"),
		Email:     cmd.String("email"),
		Phone:     cmd.String("phone"),
		Password:  cmd.String("password"),
		DOB:       cmd.String("dob"),
		Address:   cmd.String("address"),
		Gender:    models.Gender(strings.ToUpper(cmd.String("gender"))),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Registered %s (id %d)\n", user.Email, user.ID)
	return r.writePlain("Run 'amsctl auth login --email %s' to start a session\n", user.Email)
}

// AuthImport stores the credentials carried by a saved cURL command.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	path := strings.TrimSpace(cmd.StringArg("file"))
	if path == "" {
		return fmt.Errorf("%w: cURL file path", shared.ErrMissingArgument)
	}

	session, err := auth.ParseCurlFile(path)
	if err != nil {
		return err
	}

	client, err := r.connect()
	if err != nil {
		return err
	}

	pipeline := client.Pipeline()
	creds, err := session.Credentials(pipeline.Policy(), time.Now())
	if err != nil {
		return err
	}
	if err := pipeline.Store().Set(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.logger.Info("session imported", "access", creds.AccessToken != "", "refresh", creds.RefreshToken != "")
	return r.writePlain("✓ Session imported from %s\n", path)
}

// AuthLogout clears the stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}
	if err := client.Pipeline().Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	r.logger.Info("logged out")
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports what the credential store holds and what the access credential claims.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	pipeline := client.Pipeline()
	creds, err := pipeline.Store().Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	status := sessionStatus{
		API:              pipeline.BaseURL(),
		Authenticated:    !creds.Empty(),
		HasAccess:        creds.AccessToken != "",
		HasRefresh:       creds.RefreshToken != "",
		AccessExpiresAt:  creds.AccessExpiresAt,
		RefreshExpiresAt: creds.RefreshExpiresAt,
	}
	if creds.AccessToken != "" {
		info := auth.Inspect(creds.AccessToken)
		status.Subject = info.Subject
		status.TokenExpiresAt = info.ExpiresAt
		status.Opaque = info.Opaque
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Session")
	r.writePlain("API:      %s\n", status.API)
	if !status.Authenticated {
		r.writePlain("Status:   ✗ not logged in\n")
		return r.writePlain("Hint:     %s\n", loginHint)
	}

	r.writePlain("Status:   ✓ logged in\n")
	if status.Subject != "" {
		r.writePlain("Subject:  %s\n", status.Subject)
	}
	r.writePlain("Access:   %s\n", describeCredential(status.HasAccess, status.AccessExpiresAt))
	if !status.TokenExpiresAt.IsZero() {
		state := "valid"
		if !time.Now().Before(status.TokenExpiresAt) {
			state = "expired, the next request refreshes it"
		}
		r.writePlain("Token:    exp %s (%s)\n", status.TokenExpiresAt.Local().Format(time.DateTime), state)
	}
	r.writePlain("Refresh:  %s\n", describeCredential(status.HasRefresh, status.RefreshExpiresAt))
	if !status.HasAccess {
		r.writePlain("The access credential is gone; run `amsctl auth refresh` to renew it.\n")
	}
	return nil
}

func describeCredential(present bool, expires time.Time) string {
	switch {
	case !present:
		return "missing"
	case expires.IsZero():
		return "present, no expiry"
	default:
		return fmt.Sprintf("expires %s (in %s)", expires.Format(time.RFC3339), time.Until(expires).Round(time.Minute))
	}
}

// AuthRefresh renews the access credential now instead of on the next 401.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}
	if err := client.Pipeline().Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Access credential refreshed\n")
}

// AuthToken prints the stored access credential for use with other tools.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	token, err := client.Pipeline().Token()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(token, true)
	}
	return r.writePlain("%s\n", token.AccessToken)
}
