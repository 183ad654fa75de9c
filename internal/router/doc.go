// Package router provides the in-process navigator behind the CLI and TUI views.
//
// # Locations
//
// A location is a [net/url.URL]. Its query string carries shareable view state (search term and
// category), so every view derives its state from [Router.Location] instead of keeping a private copy.
//
// # Guards
//
// A [Guard] wraps a [Handler] the same way HTTP middleware wraps an http.Handler. Router-wide guards
// are applied in reverse order (last added wraps first) around per-route guards. A guard either
// calls the next handler or returns [Redirect]; redirects are followed up to a fixed bound.
//
// Unknown paths redirect to [Opts.Fallback] when one is set.
package router
