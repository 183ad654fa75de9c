package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/router"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
)

// Locations the facade and guards send the user to.
const (
	LoginPath    = "/login"
	RegisterPath = "/register"
	LandingPath  = "/dashboard"
)

// Navigator moves the application to another location.
type Navigator interface {
	Navigate(target string) error
}

// FacadeOpts configures a [Facade].
type FacadeOpts struct {
	Store     Store
	Auth      services.Authenticator
	Navigator Navigator
	Bus       *notify.Bus
	Logger    *log.Logger
}

// Facade is the single owner of authentication state.
//
// [Facade.Authenticated] and [Facade.CurrentUser] replay their current value to every new
// subscriber, so guards and views never need to poll.
type Facade struct {
	store         Store
	auth          services.Authenticator
	nav           Navigator
	bus           *notify.Bus
	logger        *log.Logger
	authenticated *shared.Cell[bool]
	currentUser   *shared.Cell[*models.User]
}

// NewFacade creates a facade and restores any stored session without calling the backend.
func NewFacade(opts FacadeOpts) *Facade {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}

	f := &Facade{
		store:         opts.Store,
		auth:          opts.Auth,
		nav:           opts.Navigator,
		bus:           opts.Bus,
		logger:        opts.Logger,
		authenticated: shared.NewCell(false),
		currentUser:   shared.NewCell[*models.User](nil),
	}

	_, hasToken := f.store.Token()
	user, hasUser := f.store.User()
	if hasToken && hasUser {
		f.currentUser.Set(user)
		f.authenticated.Set(true)
		f.logger.Debug("restored session", "user", user.Email)
	}
	return f
}

// Authenticated is true while a token and user are held.
func (f *Facade) Authenticated() *shared.Cell[bool] { return f.authenticated }

// CurrentUser is the signed-in user, or nil.
func (f *Facade) CurrentUser() *shared.Cell[*models.User] { return f.currentUser }

// Token returns the stored bearer token.
func (f *Facade) Token() (string, bool) { return f.store.Token() }

// Session returns the stored token and user as one value.
func (f *Facade) Session() models.Session {
	tok, _ := f.store.Token()
	return models.Session{Token: tok, User: f.currentUser.Get()}
}

// Login exchanges credentials for a session, persists it and moves to the landing page.
// On failure nothing changes and the error is both returned and notified.
func (f *Facade) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		f.bus.Error("Please enter your email and password.")
		return nil, err
	}

	res, err := f.auth.Login(ctx, creds)
	if err != nil {
		f.logger.Warn("login failed", "email", creds.Email, "error", err)
		f.bus.Error(loginMessage(err))
		return nil, err
	}

	if err := f.store.SaveSession(res.Token, res.User); err != nil {
		f.bus.Error("Signed in, but the session could not be saved.")
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	user := res.User
	f.currentUser.Set(&user)
	f.authenticated.Set(true)
	f.logger.Info("logged in", "user", user.Email)

	f.bus.Success(fmt.Sprintf("Welcome back, %s!", displayName(user)))
	f.navigate(LandingPath)
	return &user, nil
}

// Register creates an account and moves to the login page. It does not sign in.
func (f *Facade) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := reg.Validate(); err != nil {
		f.bus.Error(unwrapMessage(err))
		return nil, err
	}

	user, err := f.auth.Register(ctx, reg)
	if err != nil {
		f.logger.Warn("registration failed", "email", reg.Email, "error", err)
		f.bus.Error("Registration failed. Please try again.")
		return nil, err
	}

	f.bus.Success("Registration successful. Please log in.")
	f.navigate(LoginPath)
	return user, nil
}

// Logout clears the session and moves to the login page. It cannot fail; storage errors are logged.
func (f *Facade) Logout() {
	if err := f.store.Clear(); err != nil {
		f.logger.Error("could not clear stored session", "error", err)
	}
	f.authenticated.Set(false)
	f.currentUser.Set(nil)
	f.navigate(LoginPath)
}

// HandleUnauthorized is the gateway's 401/403 hook. It only ends the session whose token the
// rejected request carried; responses to anonymous or superseded requests are ignored.
func (f *Facade) HandleUnauthorized(status int, token string) {
	current, ok := f.store.Token()
	if token == "" || !ok || current != token {
		f.logger.Debug("ignoring rejection of a stale request", "status", status)
		return
	}

	f.logger.Warn("backend rejected session", "error", fmt.Errorf("%w: status %d", shared.ErrSessionExpired, status))
	f.Logout()
	f.bus.Warning("Your session has expired. Please log in again.")
}

func (f *Facade) navigate(target string) {
	if f.nav == nil {
		return
	}
	if err := f.nav.Navigate(target); err != nil {
		f.logger.Warn("navigation failed", "target", target, "error", err)
	}
}

// RequireAuth redirects unauthenticated navigation to the login page.
func RequireAuth(f *Facade) router.Guard {
	return func(next router.Handler) router.Handler {
		return router.HandlerFunc(func(loc *url.URL) router.Outcome {
			if !f.Authenticated().Get() {
				return router.Redirect(LoginPath)
			}
			return next.Resolve(loc)
		})
	}
}

// RequirePublic redirects signed-in users away from the login and register pages.
func RequirePublic(f *Facade) router.Guard {
	return func(next router.Handler) router.Handler {
		return router.HandlerFunc(func(loc *url.URL) router.Outcome {
			if f.Authenticated().Get() {
				return router.Redirect(LandingPath)
			}
			return next.Resolve(loc)
		})
	}
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrForbidden):
		return "Invalid email or password."
	case services.StatusOf(err) == 0 && errors.Is(err, shared.ErrAPIRequest):
		return "Could not reach the server. Please try again."
	default:
		return "Login failed. Please try again."
	}
}

func unwrapMessage(err error) string {
	return strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": ")
}

func displayName(u models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
