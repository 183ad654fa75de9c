package main

import (
	"context"
	"time"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v3"
)

// AuthStatusReport is what `auth status --json` prints.
type AuthStatusReport struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Subject       string       `json:"subject,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Expired       bool         `json:"expired"`
}

// AuthLogin exchanges credentials for a session and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	email, err := r.valueOrPrompt(cmd, "email", "Email")
	if err != nil {
		return err
	}
	password, err := r.valueOrPrompt(cmd, "password", "Password")
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email)
	if _, err := r.session.Login(ctx, models.Credentials{Email: email, Password: password}); err != nil {
		return err
	}
	loc := r.router.Location().Get()
	r.logger.Debug("landed", "location", loc.String())
	return nil
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	reg := models.Registration{}
	var err error
	if reg.UserName, err = r.valueOrPrompt(cmd, "name", "User name"); err != nil {
		return err
	}
	if reg.Email, err = r.valueOrPrompt(cmd, "email", "Email"); err != nil {
		return err
	}
	if reg.Password, err = r.valueOrPrompt(cmd, "password", "Password"); err != nil {
		return err
	}
	if reg.Confirm, err = r.valueOrPrompt(cmd, "confirm", "Confirm password"); err != nil {
		return err
	}

	_, err = r.session.Register(ctx, reg)
	return err
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	r.session.Logout()
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus shows the stored session. Token claims are decoded without verification; only the
// backend can tell whether the token is still accepted.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	report := AuthStatusReport{
		Authenticated: r.session.Authenticated().Get(),
		User:          r.session.CurrentUser().Get(),
	}
	if token, ok := r.session.Token(); ok {
		claims := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			r.logger.Debug("token is not a JWT", "error", err)
		} else {
			report.Subject = claims.Subject
			if claims.ExpiresAt != nil {
				exp := claims.ExpiresAt.Time
				report.ExpiresAt = &exp
				report.Expired = time.Now().After(exp)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	if !report.Authenticated || report.User == nil {
		return r.writePlain("✗ Not signed in. Run 'vcms auth login'.\n")
	}
	r.writePlain("✓ Signed in as %s <%s>\n", displayName(*report.User), report.User.Email)
	if report.ExpiresAt != nil {
		state := "expires"
		if report.Expired {
			state = "expired"
		}
		r.writePlain("Token %s: %s\n", state, report.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func displayName(u models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
