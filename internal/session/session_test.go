package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/repositories"
	"github.com/desertthunder/vcms/internal/router"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
	tu "github.com/desertthunder/vcms/internal/testing"
)

type fakeAuth struct {
	mu       sync.Mutex
	result   *services.AuthResult
	err      error
	regErr   error
	logins   int
	register int
}

func (f *fakeAuth) Login(ctx context.Context, creds models.Credentials) (*services.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.result, f.err
}

func (f *fakeAuth) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.register++
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{DisplayName: reg.UserName, Email: reg.Email}, nil
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewSQLStore(repositories.NewKVRepository(db), nil)
}

func collect(bus *notify.Bus) *[]notify.Notification {
	var got []notify.Notification
	var mu sync.Mutex
	bus.Subscribe(func(n notify.Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	return &got
}

func TestStore(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"Memory": func(*testing.T) Store { return NewMemoryStore() },
		"SQL":    func(t *testing.T) Store { return newSQLStore(t) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("Empty", func(t *testing.T) {
				s := newStore(t)
				if _, ok := s.Token(); ok {
					t.Error("expected no token")
				}
				if _, ok := s.User(); ok {
					t.Error("expected no user")
				}
			})

			t.Run("Save And Read", func(t *testing.T) {
				s := newStore(t)
				if err := s.SaveToken("tok"); err != nil {
					t.Fatalf("failed to save token: %v", err)
				}
				if err := s.SaveUser(models.User{ID: "1", DisplayName: "Ana", Email: "a@b.co"}); err != nil {
					t.Fatalf("failed to save user: %v", err)
				}

				tok, ok := s.Token()
				if !ok || tok != "tok" {
					t.Errorf("expected tok, got %q", tok)
				}
				u, ok := s.User()
				if !ok || u.Email != "a@b.co" {
					t.Errorf("unexpected user %+v", u)
				}
			})

			t.Run("SaveSession And Clear", func(t *testing.T) {
				s := newStore(t)
				s.SaveSession("tok", models.User{ID: "1"})
				if err := s.Clear(); err != nil {
					t.Fatalf("failed to clear: %v", err)
				}
				if _, ok := s.Token(); ok {
					t.Error("expected token cleared")
				}
				if _, ok := s.User(); ok {
					t.Error("expected user cleared")
				}
			})
		})
	}

	t.Run("Corrupt User Clears Both Keys", func(t *testing.T) {
		s := NewMemoryStore()
		s.SaveToken("tok")
		s.kv.(memKV)[UserKey] = "{not json"

		if u, ok := s.User(); ok || u != nil {
			t.Errorf("expected absent user, got %+v", u)
		}
		if _, ok := s.Token(); ok {
			t.Error("expected token cleared with corrupt user")
		}
	})

	t.Run("SQL Store Survives Reopen", func(t *testing.T) {
		path := t.TempDir() + "/vcms.db"
		open := func() *SQLStore {
			db, err := shared.OpenMigrated(context.Background(), shared.DatabaseConfig{Path: path})
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			return NewSQLStore(repositories.NewKVRepository(db), nil)
		}

		open().SaveSession("durable", models.User{ID: "9", Email: "d@e.co"})

		tok, ok := open().Token()
		if !ok || tok != "durable" {
			t.Errorf("expected durable token, got %q", tok)
		}
	})
}

func TestFacade(t *testing.T) {
	ok := &services.AuthResult{Token: "T1", User: models.User{ID: "1", DisplayName: "Ana", Email: "a@b.co"}}
	creds := models.Credentials{Email: "a@b.co", Password: "pw"}

	t.Run("Bootstrap", func(t *testing.T) {
		t.Run("Restores Stored Session", func(t *testing.T) {
			store := NewMemoryStore()
			store.SaveSession("T0", models.User{ID: "1"})
			auth := &fakeAuth{}

			f := NewFacade(FacadeOpts{Store: store, Auth: auth})
			if !f.Authenticated().Get() || f.CurrentUser().Get() == nil {
				t.Error("expected restored session")
			}
			if auth.logins != 0 {
				t.Error("expected no backend call on bootstrap")
			}
		})

		t.Run("Token Without User Is Not A Session", func(t *testing.T) {
			store := NewMemoryStore()
			store.SaveToken("T0")

			f := NewFacade(FacadeOpts{Store: store})
			if f.Authenticated().Get() {
				t.Error("expected unauthenticated")
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			store := NewMemoryStore()
			nav := &tu.RecordingNavigator{}
			bus := notify.NewBus()
			notes := collect(bus)
			f := NewFacade(FacadeOpts{Store: store, Auth: &fakeAuth{result: ok}, Navigator: nav, Bus: bus})

			var states []bool
			f.Authenticated().Subscribe(func(v bool) { states = append(states, v) })

			u, err := f.Login(context.Background(), creds)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if u.DisplayName != "Ana" {
				t.Errorf("unexpected user %+v", u)
			}
			if tok, _ := store.Token(); tok != "T1" {
				t.Errorf("expected token persisted, got %q", tok)
			}
			if len(states) != 2 || states[0] || !states[1] {
				t.Errorf("expected false then true, got %v", states)
			}
			if nav.Last() != LandingPath {
				t.Errorf("expected navigation to %s, got %s", LandingPath, nav.Last())
			}
			if len(*notes) != 1 || (*notes)[0].Kind != notify.Success {
				t.Errorf("expected one success notification, got %v", *notes)
			}
		})

		t.Run("Validation Happens Before Network", func(t *testing.T) {
			auth := &fakeAuth{result: ok}
			f := NewFacade(FacadeOpts{Auth: auth})

			_, err := f.Login(context.Background(), models.Credentials{Email: "a@b.co"})
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if auth.logins != 0 {
				t.Error("expected no backend call")
			}
		})

		t.Run("Failure Leaves State Untouched", func(t *testing.T) {
			store := NewMemoryStore()
			nav := &tu.RecordingNavigator{}
			bus := notify.NewBus()
			notes := collect(bus)
			apiErr := &services.APIError{Status: http.StatusUnauthorized}
			f := NewFacade(FacadeOpts{Store: store, Auth: &fakeAuth{err: apiErr}, Navigator: nav, Bus: bus})

			if _, err := f.Login(context.Background(), creds); err == nil {
				t.Fatal("expected error")
			}
			if f.Authenticated().Get() {
				t.Error("expected unauthenticated")
			}
			if _, ok := store.Token(); ok {
				t.Error("expected nothing stored")
			}
			if len(nav.Targets()) != 0 {
				t.Errorf("expected no navigation, got %v", nav.Targets())
			}
			if len(*notes) != 1 || (*notes)[0].Message != "Invalid email or password." {
				t.Errorf("unexpected notifications %v", *notes)
			}
		})
	})

	t.Run("Register", func(t *testing.T) {
		reg := models.Registration{UserName: "ana", Email: "a@b.co", Password: "secret", Confirm: "secret"}

		t.Run("Navigates To Login Without Signing In", func(t *testing.T) {
			nav := &tu.RecordingNavigator{}
			f := NewFacade(FacadeOpts{Auth: &fakeAuth{}, Navigator: nav})

			if _, err := f.Register(context.Background(), reg); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if f.Authenticated().Get() {
				t.Error("expected register not to authenticate")
			}
			if nav.Last() != LoginPath {
				t.Errorf("expected %s, got %s", LoginPath, nav.Last())
			}
		})

		t.Run("Mismatched Confirmation", func(t *testing.T) {
			auth := &fakeAuth{}
			bus := notify.NewBus()
			notes := collect(bus)
			f := NewFacade(FacadeOpts{Auth: auth, Bus: bus})

			bad := reg
			bad.Confirm = "other"
			if _, err := f.Register(context.Background(), bad); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if auth.register != 0 {
				t.Error("expected no backend call")
			}
			if len(*notes) != 1 || (*notes)[0].Message != "passwords do not match" {
				t.Errorf("unexpected notifications %v", *notes)
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		store := NewMemoryStore()
		store.SaveSession("T1", models.User{ID: "1"})
		nav := &tu.RecordingNavigator{Err: errors.New("navigation blocked")}
		f := NewFacade(FacadeOpts{Store: store, Navigator: nav})

		f.Logout()

		if f.Authenticated().Get() || f.CurrentUser().Get() != nil {
			t.Error("expected signed out state")
		}
		if _, ok := store.Token(); ok {
			t.Error("expected store cleared")
		}
		if nav.Last() != LoginPath {
			t.Errorf("expected %s, got %s", LoginPath, nav.Last())
		}
	})

	t.Run("HandleUnauthorized", func(t *testing.T) {
		t.Run("Current Token Logs Out", func(t *testing.T) {
			store := NewMemoryStore()
			store.SaveSession("T1", models.User{ID: "1"})
			bus := notify.NewBus()
			notes := collect(bus)
			f := NewFacade(FacadeOpts{Store: store, Bus: bus})

			f.HandleUnauthorized(http.StatusUnauthorized, "T1")
			if f.Authenticated().Get() {
				t.Error("expected logout")
			}
			if len(*notes) != 1 || (*notes)[0].Kind != notify.Warning {
				t.Errorf("expected session expired warning, got %v", *notes)
			}
		})

		t.Run("Logs Session Expired", func(t *testing.T) {
			var out strings.Builder
			store := NewMemoryStore()
			store.SaveSession("T1", models.User{ID: "1"})
			f := NewFacade(FacadeOpts{Store: store, Logger: shared.NewLogger(&out)})

			f.HandleUnauthorized(http.StatusForbidden, "T1")
			if got := out.String(); !strings.Contains(got, shared.ErrSessionExpired.Error()) || !strings.Contains(got, "403") {
				t.Errorf("expected session expired in log, got %q", got)
			}
		})

		t.Run("Stale Token Is Ignored", func(t *testing.T) {
			store := NewMemoryStore()
			store.SaveSession("T2", models.User{ID: "1"})
			f := NewFacade(FacadeOpts{Store: store})

			f.HandleUnauthorized(http.StatusUnauthorized, "T1")
			f.HandleUnauthorized(http.StatusUnauthorized, "")
			if !f.Authenticated().Get() {
				t.Error("expected newer session to survive")
			}
		})

		t.Run("Through The Gateway", func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer T1" {
					t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer backend.Close()

			store := NewMemoryStore()
			store.SaveSession("T1", models.User{ID: "1"})
			f := NewFacade(FacadeOpts{Store: store})

			gw, _ := services.NewGateway(services.GatewayOpts{BaseURL: backend.URL, Tokens: store, OnUnauthorized: f.HandleUnauthorized})
			_, err := services.NewAPIService(backend.URL, gw.Client()).Get(context.Background(), "/videoMetadata/1", services.RequestOptions{})

			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected caller to see 401, got %v", err)
			}
			if f.Authenticated().Get() {
				t.Error("expected forced logout")
			}
		})
	})

	t.Run("Guards", func(t *testing.T) {
		store := NewMemoryStore()
		f := NewFacade(FacadeOpts{Store: store, Auth: &fakeAuth{result: ok}})

		r := router.New(router.Opts{Fallback: LoginPath})
		r.Handle(LoginPath, RequirePublic(f))
		r.Handle(LandingPath, RequireAuth(f))
		r.Handle("/search", RequireAuth(f))

		if err := r.Navigate("/search?searchTerm=cat"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Location().Get().Path != LoginPath {
			t.Errorf("expected redirect to login, got %s", r.Location().Get().Path)
		}

		f.Login(context.Background(), creds)

		r.Navigate(LoginPath)
		if r.Location().Get().Path != LandingPath {
			t.Errorf("expected redirect to landing, got %s", r.Location().Get().Path)
		}

		r.Navigate("/search?searchTerm=cat")
		if loc := r.Location().Get(); loc.Path != "/search" || !strings.Contains(loc.RawQuery, "cat") {
			t.Errorf("expected search allowed, got %s", loc.String())
		}
	})
}
