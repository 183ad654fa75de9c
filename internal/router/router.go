package router

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/shared"
)

// maxRedirects bounds guard redirect chains.
const maxRedirects = 8

// Outcome is what resolving a location produced: allow it, or go somewhere else.
type Outcome struct {
	Redirect string
}

// Allow lets the navigation through.
func Allow() Outcome { return Outcome{} }

// Redirect replaces the navigation with target.
func Redirect(target string) Outcome { return Outcome{Redirect: target} }

// Allowed reports whether the outcome lets the navigation through.
func (o Outcome) Allowed() bool { return o.Redirect == "" }

// Handler resolves a navigation to a location.
type Handler interface {
	Resolve(loc *url.URL) Outcome
}

// HandlerFunc adapts a func to [Handler].
type HandlerFunc func(loc *url.URL) Outcome

func (f HandlerFunc) Resolve(loc *url.URL) Outcome { return f(loc) }

// Guard wraps a [Handler] and may short-circuit it with a redirect.
type Guard func(Handler) Handler

// Router is an in-process navigator. Its current location is the single source of truth for
// view state such as search parameters, and is replayed to late subscribers.
//
// Guards registered with [Router.Use] wrap every route; guards passed to [Router.Handle] wrap only that route.
type Router struct {
	mu       sync.Mutex
	guards   []Guard
	routes   []route
	fallback string
	history  []url.URL
	location *shared.Cell[url.URL]
	logger   *log.Logger
}

type route struct {
	pattern string
	parts   []string
	handler Handler
}

// Opts configures a [Router].
type Opts struct {
	// Fallback is where unknown paths redirect. Empty means unknown paths are an error.
	Fallback string
	Logger   *log.Logger
}

// New creates a [Router] positioned at "/".
func New(opts Opts) *Router {
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}
	return &Router{
		fallback: opts.Fallback,
		location: shared.NewCell(url.URL{Path: "/"}),
		logger:   opts.Logger,
	}
}

// Use adds guards to the router-wide stack, applied in the order they're added.
func (r *Router) Use(guards ...Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, guards...)
}

// Handle registers pattern with its own guards. Segments written as {name} match any single segment.
func (r *Router) Handle(pattern string, guards ...Guard) {
	var h Handler = HandlerFunc(func(*url.URL) Outcome { return Allow() })
	h = chain(h, guards)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{pattern: pattern, parts: split(pattern), handler: h})
}

// Apply wraps a handler with all router-wide guards.
//
// Guards are applied in reverse order (last added wraps first).
func (r *Router) Apply(h Handler) Handler {
	r.mu.Lock()
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()
	return chain(h, guards)
}

func chain(h Handler, guards []Guard) Handler {
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	return h
}

// Routes returns the registered patterns in registration order.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.pattern
	}
	return out
}

// Match returns the pattern serving path and the values of its {name} segments.
func (r *Router) Match(path string) (pattern string, params map[string]string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, params, ok := r.match(path)
	if !ok {
		return "", nil, false
	}
	return rt.pattern, params, true
}

// Location is the current location, replayed to new subscribers.
func (r *Router) Location() *shared.Cell[url.URL] { return r.location }

// Navigate resolves target through the guards, following redirects, and publishes where it lands.
func (r *Router) Navigate(target string) error {
	u, err := r.resolve(target)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.history = append(r.history, r.location.Get())
	r.mu.Unlock()

	r.logger.Debug("navigate", "target", target, "location", u.String())
	r.location.Set(*u)
	return nil
}

// Back returns to the previous location, re-running its guards. It is a no-op with no history.
func (r *Router) Back() error {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return nil
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()

	u, err := r.resolve(prev.String())
	if err != nil {
		return err
	}
	r.location.Set(*u)
	return nil
}

func (r *Router) resolve(target string) (*url.URL, error) {
	current := r.location.Get()
	for hops := 0; hops <= maxRedirects; hops++ {
		u, err := current.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", shared.ErrInvalidArgument, target, err)
		}

		r.mu.Lock()
		rt, _, ok := r.match(u.Path)
		fallback := r.fallback
		r.mu.Unlock()

		if !ok {
			if fallback == "" || fallback == u.Path {
				return nil, fmt.Errorf("%w: no route for %s", shared.ErrNotFound, u.Path)
			}
			target = fallback
			continue
		}

		outcome := r.Apply(rt.handler).Resolve(u)
		if outcome.Allowed() {
			return u, nil
		}
		r.logger.Debug("redirect", "from", u.Path, "to", outcome.Redirect)
		target = outcome.Redirect
	}
	return nil, fmt.Errorf("%w: too many redirects navigating to %q", shared.ErrInvalidArgument, target)
}

func (r *Router) match(path string) (route, map[string]string, bool) {
	parts := split(path)
	for _, rt := range r.routes {
		if len(rt.parts) != len(parts) {
			continue
		}
		params := map[string]string{}
		matched := true
		for i, p := range rt.parts {
			if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
				params[p[1:len(p)-1]] = parts[i]
				continue
			}
			if p != parts[i] {
				matched = false
				break
			}
		}
		if matched {
			return rt, params, true
		}
	}
	return route{}, nil, false
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
