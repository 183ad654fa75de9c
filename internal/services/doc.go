// Package services talks to the video CMS backend over HTTP.
//
// # Layers
//
// Every request flows through three layers:
//
//  1. A typed service ([AuthService], [CategoryService], [VideoService], [TagService]) builds the
//     path and payload and decodes the result into [models] types.
//  2. [APIService] prefixes the configured base URL, merges headers, applies optional client-side
//     pacing and turns transport failures and non-2xx responses into an [*APIError].
//  3. [Gateway], the [http.RoundTripper] underneath, attaches the bearer token to backend requests
//     through [oauth2.Transport] and reports 401/403 responses to the session layer.
//
// # Response Types
//
// Callers pick how a body is decoded with [RequestOptions.Response]: [JSON] (default), [Text],
// [Blob] or [Bytes]. Decoding is never guessed from the payload; asking a [JSON] response for its
// [APIResponse.Text] is an error.
//
// # Error Handling
//
// [*APIError] unwraps to [shared.ErrAPIRequest] and, where the status maps to one, to:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrForbidden] : 403
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 502, 503, 504
//
// Use [StatusOf] to read the status back out of a wrapped error.
package services
