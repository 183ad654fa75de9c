package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/vcms/internal/shared"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *staticTokens) set(tok string) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

func TestGateway(t *testing.T) {
	t.Run("NewGateway", func(t *testing.T) {
		t.Run("Rejects Relative Base URL", func(t *testing.T) {
			_, err := NewGateway(GatewayOpts{BaseURL: "/api"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Defaults Base Transport", func(t *testing.T) {
			g, err := NewGateway(GatewayOpts{BaseURL: "http://localhost:5000/api"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if g.base != http.DefaultTransport {
				t.Error("expected http.DefaultTransport")
			}
		})
	})

	t.Run("Attaches Bearer Token To Backend Requests", func(t *testing.T) {
		var got string
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
		}))
		defer backend.Close()

		tokens := &staticTokens{token: "abc123"}
		g, _ := NewGateway(GatewayOpts{BaseURL: backend.URL + "/api", Tokens: tokens})
		api := NewAPIService(backend.URL+"/api", g.Client())

		if _, err := api.Get(context.Background(), "/Categories/Tree", RequestOptions{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "Bearer abc123" {
			t.Errorf("expected bearer header, got %q", got)
		}

		t.Run("Reads Token On Every Request", func(t *testing.T) {
			tokens.set("rotated")
			api.Get(context.Background(), "/Categories/Tree", RequestOptions{})
			if got != "Bearer rotated" {
				t.Errorf("expected rotated token, got %q", got)
			}
		})

		t.Run("No Header Without Token", func(t *testing.T) {
			tokens.set("")
			api.Get(context.Background(), "/Categories/Tree", RequestOptions{})
			if got != "" {
				t.Errorf("expected no Authorization header, got %q", got)
			}
		})
	})

	t.Run("Never Sends Token To Foreign Origins", func(t *testing.T) {
		var got []string
		var mu sync.Mutex
		foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			got = append(got, r.Header.Get("Authorization"))
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		}))
		defer foreign.Close()

		g, _ := NewGateway(GatewayOpts{BaseURL: "http://backend.invalid/api", Tokens: &staticTokens{token: "secret"}})
		client := g.Client()

		req, _ := http.NewRequest(http.MethodPut, foreign.URL+"/videos/clip.mp4?sig=x", strings.NewReader("data"))
		req.Header.Set("Authorization", "Bearer leaked")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()

		if len(got) != 1 || got[0] != "" {
			t.Errorf("expected foreign origin to see no Authorization header, got %v", got)
		}
		if req.Header.Get("Authorization") != "Bearer leaked" {
			t.Error("expected caller's request to be left unmodified")
		}
	})

	t.Run("Unauthorized Hook", func(t *testing.T) {
		t.Run("Runs After The Caller Closes The Body", func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "expired", http.StatusUnauthorized)
			}))
			defer backend.Close()

			var calls []string
			var status int
			var carried string
			g, _ := NewGateway(GatewayOpts{
				BaseURL: backend.URL,
				Tokens:  &staticTokens{token: "old"},
				OnUnauthorized: func(s int, tok string) {
					calls = append(calls, "hook")
					status, carried = s, tok
				},
			})

			resp, err := g.Client().Get(backend.URL + "/videoMetadata/1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(calls) != 0 {
				t.Fatal("expected hook to wait for Close")
			}

			body, _ := io.ReadAll(resp.Body)
			calls = append(calls, "caller saw "+strings.TrimSpace(string(body)))
			resp.Body.Close()
			resp.Body.Close()

			if strings.Join(calls, ",") != "caller saw expired,hook" {
				t.Errorf("unexpected order %v", calls)
			}
			if status != http.StatusUnauthorized || carried != "old" {
				t.Errorf("expected (401, old), got (%d, %s)", status, carried)
			}
		})

		t.Run("Fires Through APIService On 403", func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer backend.Close()

			fired := 0
			g, _ := NewGateway(GatewayOpts{BaseURL: backend.URL, Tokens: &staticTokens{}})
			g.SetUnauthorizedHandler(func(s int, tok string) {
				fired++
				if tok != "" {
					t.Errorf("expected empty carried token, got %q", tok)
				}
			})

			_, err := NewAPIService(backend.URL, g.Client()).Get(context.Background(), "/x", RequestOptions{})
			if !errors.Is(err, shared.ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
			if fired != 1 {
				t.Errorf("expected hook once, got %d", fired)
			}
		})

		t.Run("Ignores Other Statuses", func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer backend.Close()

			fired := false
			g, _ := NewGateway(GatewayOpts{BaseURL: backend.URL, OnUnauthorized: func(int, string) { fired = true }})
			NewAPIService(backend.URL, g.Client()).Get(context.Background(), "/x", RequestOptions{})
			if fired {
				t.Error("expected hook not to fire on 500")
			}
		})
	})

	t.Run("Origin Match Is Case Insensitive", func(t *testing.T) {
		g, _ := NewGateway(GatewayOpts{BaseURL: "HTTP://Example.COM/api"})
		req, _ := http.NewRequest(http.MethodGet, "http://example.com/other", nil)
		if !g.isBackend(req.URL) {
			t.Error("expected same origin")
		}
		req, _ = http.NewRequest(http.MethodGet, "https://example.com/api", nil)
		if g.isBackend(req.URL) {
			t.Error("expected scheme mismatch to be foreign")
		}
	})
}
