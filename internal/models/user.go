package models

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/desertthunder/vcms/internal/shared"
)

// User is the authenticated account as the client sees it. Replaced wholesale on re-login.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Session is the token and user pair; both are set or cleared together.
type Session struct {
	Token string
	User  *User
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return s.Token != "" && s.User != nil
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"userEmail"`
	Password string `json:"userPassword"`
}

// Validate checks required fields before any network call.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", shared.ErrValidation, strings.Join(missing, " and "))
	}
	return nil
}

// Registration is the register payload. Confirm never leaves the client.
type Registration struct {
	UserName string `json:"userName"`
	Email    string `json:"userEmail"`
	Password string `json:"userPassword"`
	Confirm  string `json:"-"`
}

// Validate applies the registration form rules.
func (r Registration) Validate() error {
	switch {
	case len(strings.TrimSpace(r.UserName)) < 3:
		return fmt.Errorf("%w: user name must be at least 3 characters", shared.ErrValidation)
	case !validEmail(r.Email):
		return fmt.Errorf("%w: %q is not a valid email address", shared.ErrValidation, r.Email)
	case len(r.Password) < 6:
		return fmt.Errorf("%w: password must be at least 6 characters", shared.ErrValidation)
	case r.Password != r.Confirm:
		return fmt.Errorf("%w: passwords do not match", shared.ErrValidation)
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}
