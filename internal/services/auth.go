package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

// AuthResult is a successful login: the bearer token and the user it belongs to.
type AuthResult struct {
	Token string
	User  models.User
}

// wireUser is the backend's user shape. Login nests the token inside it.
type wireUser struct {
	UserID    models.ID `json:"userId"`
	ID        models.ID `json:"id"`
	UserName  string    `json:"userName"`
	Username  string    `json:"username"`
	UserEmail string    `json:"userEmail"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
}

func (w wireUser) user() models.User {
	u := models.User{ID: w.UserID.String(), DisplayName: w.UserName, Email: w.UserEmail}
	if u.ID == "" {
		u.ID = w.ID.String()
	}
	if u.DisplayName == "" {
		u.DisplayName = w.Username
	}
	if u.Email == "" {
		u.Email = w.Email
	}
	return u
}

// loginResponse accepts both {token, user} and {user: {..., token}}.
type loginResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

func (r loginResponse) result() (*AuthResult, error) {
	token := r.Token
	if token == "" {
		token = r.User.Token
	}
	if token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", shared.ErrAuthFailed)
	}
	u := r.User.user()
	if u.ID == "" && u.Email == "" {
		return nil, fmt.Errorf("%w: login response carried no user", shared.ErrAuthFailed)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// AuthService calls the /Users endpoints.
type AuthService struct {
	api *APIService
}

// NewAuthService creates an [AuthService].
func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

// Login exchanges credentials for a token and user.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*AuthResult, error) {
	resp, err := s.api.Post(ctx, "/Users/login", creds, RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	body, err := Decode[loginResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return body.result()
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	resp, err := s.api.Post(ctx, "/Users/register", reg, RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRegistrationFailed, err)
	}

	var raw json.RawMessage
	if raw, err = Decode[json.RawMessage](resp); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRegistrationFailed, err)
	}

	u := models.User{DisplayName: reg.UserName, Email: reg.Email}
	if len(raw) > 0 {
		var w struct {
			wireUser
			User *wireUser `json:"user"`
		}
		if err := json.Unmarshal(raw, &w); err == nil {
			created := w.wireUser
			if w.User != nil {
				created = *w.User
			}
			if cu := created.user(); cu.ID != "" || cu.Email != "" {
				u = cu
			}
		}
	}
	return &u, nil
}
