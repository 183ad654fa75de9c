package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
)

const (
	// Path is the location search results live at.
	Path = "/search"
	// AllCategories is the picker label that means no category filter.
	AllCategories = "All Categories"

	DefaultDebounce  = 300 * time.Millisecond
	DefaultMinLength = 2
)

// Navigator moves the application to another location.
type Navigator interface {
	Navigate(target string) error
}

// ResultSet is the outcome of the search for Query.
type ResultSet struct {
	Query   models.SearchQuery
	Videos  []models.VideoMetadata
	Loading bool
	Err     error
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Client    services.SearchClient
	Navigator Navigator
	// Location is the navigator's current location; [Controller.Bind] derives every search from it.
	Location  *shared.Cell[url.URL]
	Bus       *notify.Bus
	Debounce  time.Duration
	MinLength int
	Logger    *log.Logger
}

// Controller drives autocomplete and the search results view.
//
// The location is the single source of truth for the executed query: [Controller.Submit] only
// navigates, and [Controller.Bind] runs a search for every location on [Path].
type Controller struct {
	client    services.SearchClient
	nav       Navigator
	location  *shared.Cell[url.URL]
	bus       *notify.Bus
	logger    *log.Logger
	minLength int
	debounce  *shared.Debouncer

	mu            sync.Mutex
	term          string
	category      string
	lastSuggested *string
	suggestSeq    uint64
	searchSeq     uint64
	closed        bool

	suggestions *shared.Cell[[]string]
	results     *shared.Cell[ResultSet]
}

// NewController creates a [Controller].
func NewController(opts ControllerOpts) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}
	return &Controller{
		client:      opts.Client,
		nav:         opts.Navigator,
		location:    opts.Location,
		bus:         opts.Bus,
		logger:      opts.Logger,
		minLength:   opts.MinLength,
		debounce:    shared.NewDebouncer(opts.Debounce),
		suggestions: shared.NewCell[[]string](nil),
		results:     shared.NewCell(ResultSet{}),
	}
}

// Suggestions holds autocomplete candidates for the latest input.
func (c *Controller) Suggestions() *shared.Cell[[]string] { return c.suggestions }

// Results holds the latest search outcome.
func (c *Controller) Results() *shared.Cell[ResultSet] { return c.results }

// Query returns the term and category as currently entered.
func (c *Controller) Query() models.SearchQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.SearchQuery{Term: c.term, CategoryName: c.category}
}

// Input records the search box text and schedules a suggestion lookup.
func (c *Controller) Input(ctx context.Context, text string) {
	c.mu.Lock()
	c.term = text
	c.mu.Unlock()

	c.debounce.Trigger(func() { c.suggest(ctx, text) })
}

func (c *Controller) suggest(ctx context.Context, text string) {
	c.mu.Lock()
	if c.closed || (c.lastSuggested != nil && *c.lastSuggested == text) {
		c.mu.Unlock()
		return
	}
	c.lastSuggested = &text
	c.suggestSeq++
	seq := c.suggestSeq
	c.mu.Unlock()

	query := strings.TrimSpace(text)
	if len([]rune(query)) < c.minLength {
		c.suggestions.Set(nil)
		return
	}

	got, err := c.client.Suggestions(ctx, query)
	if err != nil {
		c.logger.Debug("suggestions failed", "query", query, "error", err)
		got = nil
	}

	c.mu.Lock()
	stale := seq != c.suggestSeq || c.closed
	c.mu.Unlock()
	if stale {
		return
	}
	c.suggestions.Set(got)
}

// SelectCategory sets the category filter. Empty or [AllCategories] clears it.
func (c *Controller) SelectCategory(name string) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, AllCategories) {
		name = ""
	}
	c.mu.Lock()
	c.category = name
	c.mu.Unlock()
}

// SubmitURL is the location [Controller.Submit] navigates to. Search parameters from the current
// location are replaced, other parameters are kept, and empty values are left out.
func (c *Controller) SubmitURL() string {
	q := c.Query()

	existing := url.Values{}
	if c.location != nil {
		if loc := c.location.Get(); loc.Path == Path {
			existing = loc.Query()
		}
	}

	values := q.Merge(existing)
	if len(values) == 0 {
		return Path
	}
	return Path + "?" + values.Encode()
}

// Submit cancels pending suggestions and navigates to the search location. The next input is
// looked up again even when its text matches the submitted term.
func (c *Controller) Submit() error {
	c.debounce.Cancel()
	c.mu.Lock()
	c.lastSuggested = nil
	c.suggestSeq++
	c.mu.Unlock()
	c.suggestions.Set(nil)

	if c.nav == nil {
		return fmt.Errorf("%w: search controller has no navigator", shared.ErrInvalidConfig)
	}
	return c.nav.Navigate(c.SubmitURL())
}

// Bind runs a search for every location on [Path] until the returned cancel func is called.
// The entered term and category follow the location, so deep links fill in the search box.
func (c *Controller) Bind(ctx context.Context) (cancel func()) {
	if c.location == nil {
		return func() {}
	}

	ctx, stop := context.WithCancel(ctx)
	unsubscribe := c.location.Subscribe(func(loc url.URL) {
		if loc.Path != Path {
			return
		}
		q := models.QueryFromValues(loc.Query())

		c.mu.Lock()
		c.term = q.Term
		c.category = q.CategoryName
		c.searchSeq++
		seq := c.searchSeq
		c.mu.Unlock()

		c.results.Set(ResultSet{Query: q, Loading: true})
		go c.run(ctx, seq, q)
	})

	return func() {
		unsubscribe()
		stop()
	}
}

// Search runs q directly and returns its result set. Used by callers without a navigator.
func (c *Controller) Search(ctx context.Context, q models.SearchQuery) ResultSet {
	c.mu.Lock()
	c.searchSeq++
	seq := c.searchSeq
	c.mu.Unlock()

	c.results.Set(ResultSet{Query: q, Loading: true})
	c.run(ctx, seq, q)
	return c.results.Get()
}

func (c *Controller) run(ctx context.Context, seq uint64, q models.SearchQuery) {
	videos, err := c.client.Search(ctx, q)

	c.mu.Lock()
	stale := seq != c.searchSeq || c.closed
	c.mu.Unlock()
	if stale || ctx.Err() != nil {
		c.logger.Debug("discarding stale search results", "term", q.Term, "category", q.CategoryName)
		return
	}

	if err != nil {
		c.logger.Warn("search failed", "term", q.Term, "category", q.CategoryName, "error", err)
		c.bus.Error(fmt.Sprintf("Failed to search videos. Details: %v", err))
		c.results.Set(ResultSet{Query: q, Err: err})
		return
	}
	c.results.Set(ResultSet{Query: q, Videos: videos})
}

// Close stops pending suggestion work and ignores in-flight responses.
func (c *Controller) Close() {
	c.debounce.Stop()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
