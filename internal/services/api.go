package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is used when no backend base URL is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// ResponseType selects how a response body is decoded. Callers choose it explicitly; it is never
// inferred from the payload.
type ResponseType int

const (
	JSON ResponseType = iota
	Text
	Blob
	Bytes
)

func (r ResponseType) String() string {
	switch r {
	case JSON:
		return "json"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// RequestOptions carries per-call query parameters, extra headers and the response type.
type RequestOptions struct {
	Query    url.Values
	Headers  http.Header
	Response ResponseType
}

// APIResponse is a successful (2xx) response, tagged with the [ResponseType] it was requested as.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Type       ResponseType
	Body       []byte
}

// BlobData is the payload of a [Blob] response.
type BlobData struct {
	ContentType string
	Data        []byte
}

var errWrongType = errors.New("response was requested as a different type")

// Text returns the body of a [Text] response.
func (r *APIResponse) Text() (string, error) {
	if r.Type != Text {
		return "", fmt.Errorf("%w: have %s, want text", errWrongType, r.Type)
	}
	return string(r.Body), nil
}

// Blob returns the body and content type of a [Blob] response.
func (r *APIResponse) Blob() (BlobData, error) {
	if r.Type != Blob {
		return BlobData{}, fmt.Errorf("%w: have %s, want blob", errWrongType, r.Type)
	}
	return BlobData{ContentType: r.Headers.Get("Content-Type"), Data: r.Body}, nil
}

// Bytes returns the raw body of a [Bytes] response.
func (r *APIResponse) Bytes() ([]byte, error) {
	if r.Type != Bytes {
		return nil, fmt.Errorf("%w: have %s, want bytes", errWrongType, r.Type)
	}
	return r.Body, nil
}

// Decode unmarshals a [JSON] response into T. An empty body yields the zero value.
func Decode[T any](r *APIResponse) (T, error) {
	var out T
	if r.Type != JSON {
		return out, fmt.Errorf("%w: have %s, want json", errWrongType, r.Type)
	}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	return out, nil
}

// APIError is the uniform failure of every call: a transport error (Status 0) or a non-2xx response.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 200 {
		msg = msg[:200] + "…"
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, msg)
}

// Unwrap exposes [shared.ErrAPIRequest], a status sentinel where one applies and the transport cause.
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch e.Status {
	case http.StatusUnauthorized:
		errs = append(errs, shared.ErrNotAuthenticated)
	case http.StatusForbidden:
		errs = append(errs, shared.ErrForbidden)
	case http.StatusNotFound:
		errs = append(errs, shared.ErrNotFound)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// APIService is the thin HTTP client every backend service goes through.
//
// Paths are appended to the configured base URL. Authentication is the transport's job (see [Gateway]).
// There are no retries; resilience is left to callers.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures an [APIService].
type Option func(*APIService)

// WithRateLimit paces outgoing requests to rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(a *APIService) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(a *APIService) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPIService creates a new API client for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client, opts ...Option) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     shared.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BaseURL returns the backend base URL without a trailing slash.
func (a *APIService) BaseURL() string { return a.baseURL }

// Get performs a GET request.
func (a *APIService) Get(ctx context.Context, path string, opts RequestOptions) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil, opts)
}

// Post performs a POST request with body.
func (a *APIService) Post(ctx context.Context, path string, body any, opts RequestOptions) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, body, opts)
}

// Put performs a PUT request with body.
func (a *APIService) Put(ctx context.Context, path string, body any, opts RequestOptions) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, body, opts)
}

// Delete performs a DELETE request.
func (a *APIService) Delete(ctx context.Context, path string, opts RequestOptions) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, nil, opts)
}

// Do sends method to path. A []byte or [io.Reader] body is sent as is; anything else non-nil is JSON encoded.
func (a *APIService) Do(ctx context.Context, method, path string, body any, opts RequestOptions) (*APIResponse, error) {
	fullURL := a.resolve(path, opts.Query)

	reader, isJSON, err := encodeBody(body)
	if err != nil {
		return nil, &APIError{Method: method, URL: fullURL, Err: fmt.Errorf("failed to encode body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, &APIError{Method: method, URL: fullURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", acceptFor(opts.Response))
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Method: method, URL: fullURL, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	a.logger.Debug("api request", "method", method, "url", fullURL, "response", opts.Response)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Method: method, URL: fullURL, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Method: method, URL: fullURL, Status: 0, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Debug("api error", "method", method, "url", fullURL, "status", resp.StatusCode)
		return nil, &APIError{Method: method, URL: fullURL, Status: resp.StatusCode, Body: data}
	}

	if opts.Response == JSON && len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return nil, &APIError{Method: method, URL: fullURL, Status: resp.StatusCode, Body: data, Err: shared.ErrDecode}
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Type:       opts.Response,
		Body:       data,
	}, nil
}

func (a *APIService) resolve(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := a.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

func encodeBody(body any) (io.Reader, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return bytes.NewReader(b), false, nil
	case io.Reader:
		return b, false, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, err
		}
		return bytes.NewReader(data), true, nil
	}
}

func acceptFor(t ResponseType) string {
	switch t {
	case JSON:
		return "application/json"
	case Text:
		return "text/plain, */*"
	default:
		return "*/*"
	}
}
