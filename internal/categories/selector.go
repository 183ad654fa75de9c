package categories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
)

const (
	// DefaultDebounce is the quiet period before typed text is searched.
	DefaultDebounce = 300 * time.Millisecond
	// MinSearchLength is the shortest trimmed text sent to the backend. Shorter text filters the
	// current level locally.
	MinSearchLength = 2
)

// Mode is the state of the picker.
type Mode int

const (
	Browsing Mode = iota
	Searching
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browsing"
	case Searching:
		return "searching"
	default:
		return "unknown"
	}
}

// HistoryEntry is what a drill-down replaced, restored by [Selector.NavigateUp].
type HistoryEntry struct {
	Selected *models.Category
	Level    []models.Category
}

// Snapshot is the picker's observable state. Slices are shared and must not be modified.
type Snapshot struct {
	Mode Mode
	// Selected is the node drilled into while browsing.
	Selected *models.Category
	Level    []models.Category
	History  []HistoryEntry
	Query    string
	Results  []models.Category
	Input    string
	Related  string
	Open     bool
	Loading  bool
	// CanCreate is set when the searched name matches no result and nothing is selected.
	CanCreate bool
}

// SelectorOpts configures a [Selector].
type SelectorOpts struct {
	Client   services.CategoryClient
	Debounce time.Duration
	Logger   *log.Logger
}

// Selector is the category picker state machine: drill-down browsing over the tree plus a
// free-text search mode over the same categories.
//
// Final choices are published on [Selector.Selections]; nil means "all categories".
type Selector struct {
	client   services.CategoryClient
	logger   *log.Logger
	debounce *shared.Debouncer

	mu        sync.Mutex
	state     Snapshot
	root      []models.Category
	loaded    bool
	final     *models.Category
	lastInput *string
	seq       uint64
	closed    bool

	changes    *shared.Cell[Snapshot]
	selections *shared.Cell[*models.Category]
}

// NewSelector creates a closed picker. Call [Selector.Open] to load the tree.
func NewSelector(opts SelectorOpts) *Selector {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}
	return &Selector{
		client:     opts.Client,
		logger:     opts.Logger,
		debounce:   shared.NewDebouncer(opts.Debounce),
		changes:    shared.NewCell(Snapshot{}),
		selections: shared.NewCell[*models.Category](nil),
	}
}

// State returns the current snapshot.
func (s *Selector) State() Snapshot { return s.changes.Get() }

// Changes publishes every state transition.
func (s *Selector) Changes() *shared.Cell[Snapshot] { return s.changes }

// Selections publishes finalized choices, including nil when a choice is cleared.
func (s *Selector) Selections() *shared.Cell[*models.Category] { return s.selections }

// Open loads the tree on first use and shows the last browsed level with an empty input.
func (s *Selector) Open(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		if err := s.reload(ctx); err != nil {
			return err
		}
	}

	s.debounce.Cancel()
	s.mutate(func(st *Snapshot) {
		s.forgetInput()
		st.Mode = Browsing
		st.Results = nil
		st.Query = ""
		st.Input = ""
		st.CanCreate = false
		st.Open = true
		if st.Level == nil {
			st.Level = s.root
		}
	})
	return nil
}

// Type records input text. A choice whose name no longer matches the text is cleared at once;
// the search itself runs after the debounce, and only if the text changed since the last search.
func (s *Selector) Type(ctx context.Context, text string) {
	var cleared bool
	s.mutate(func(st *Snapshot) {
		st.Input = text
		if s.final != nil && !s.final.Matches(text) {
			s.final = nil
			cleared = true
		}
	})
	if cleared {
		s.logger.Debug("selection invalidated by edit", "input", text)
		s.selections.Set(nil)
	}

	s.debounce.Trigger(func() { s.search(ctx, text) })
}

func (s *Selector) search(ctx context.Context, text string) {
	s.mu.Lock()
	if s.closed || (s.lastInput != nil && *s.lastInput == text) {
		s.mu.Unlock()
		return
	}
	s.lastInput = &text
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	query := strings.TrimSpace(text)
	switch {
	case query == "":
		s.mutate(func(st *Snapshot) {
			st.Mode = Browsing
			st.Query = ""
			st.Results = nil
			st.Loading = false
			st.CanCreate = false
		})
		return
	case len([]rune(query)) < MinSearchLength:
		s.mutate(func(st *Snapshot) {
			st.Mode = Searching
			st.Query = query
			st.Results = filterPrefix(st.Level, query)
			st.Loading = false
			st.CanCreate = s.final == nil && !containsName(st.Results, query)
		})
		return
	}

	s.mutate(func(st *Snapshot) { st.Loading = true })

	results, err := s.client.Search(ctx, query)
	if err != nil {
		s.logger.Debug("category search failed", "query", query, "error", err)
		results = nil
	}

	s.mu.Lock()
	stale := seq != s.seq || s.closed
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding stale category results", "query", query)
		return
	}

	s.mutate(func(st *Snapshot) {
		st.Mode = Searching
		st.Query = query
		st.Results = results
		st.Loading = false
		st.CanCreate = s.final == nil && !containsName(results, query)
	})
}

// Click handles a node chosen from the list. While browsing, a node with children is drilled
// into and a leaf is chosen. While searching, the node is chosen and the typed text is kept.
func (s *Selector) Click(node models.Category) {
	s.mu.Lock()
	mode := s.state.Mode
	s.mu.Unlock()

	if mode == Browsing && !node.IsLeaf() {
		s.mutate(func(st *Snapshot) {
			st.History = append(append([]HistoryEntry(nil), st.History...), HistoryEntry{Selected: st.Selected, Level: st.Level})
			n := node
			st.Selected = &n
			st.Level = node.Children
		})
		return
	}

	keepText := mode == Searching
	s.finalize(&node, func(st *Snapshot) {
		if !keepText {
			st.Input = ""
		}
	})
}

// NavigateUp undoes the last drill-down. With no history it resets to the root level.
func (s *Selector) NavigateUp() {
	s.mutate(func(st *Snapshot) {
		if len(st.History) == 0 {
			st.Selected = nil
			st.Level = s.root
			return
		}
		last := st.History[len(st.History)-1]
		st.History = append([]HistoryEntry(nil), st.History[:len(st.History)-1]...)
		st.Selected = last.Selected
		st.Level = last.Level
	})
}

// SelectNone chooses "all categories".
func (s *Selector) SelectNone() {
	s.finalize(nil, func(st *Snapshot) { st.Input = "" })
}

// SetRelated records the related (parent) category text used by [Selector.Create].
func (s *Selector) SetRelated(text string) {
	s.mutate(func(st *Snapshot) { st.Related = text })
}

// Create makes a category, optionally under the category named related, chooses it and reloads the tree.
func (s *Selector) Create(ctx context.Context, name, related string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: new category name cannot be empty", shared.ErrValidation)
	}

	s.mutate(func(st *Snapshot) { st.Loading = true })
	created, err := s.client.Create(ctx, name, related)
	if err != nil {
		s.mutate(func(st *Snapshot) { st.Loading = false })
		return nil, err
	}

	if err := s.reload(ctx); err != nil {
		s.logger.Warn("could not reload categories after create", "error", err)
	}

	s.finalize(created, func(st *Snapshot) {
		st.Input = created.Name
		st.Related = ""
		st.Loading = false
		st.Mode = Browsing
		st.Results = nil
		st.Selected = nil
		st.History = nil
		st.Level = s.root
	})
	return created, nil
}

// Dismiss closes the picker from outside: the input is cleared and the view returns to the
// current browsing level. The choice is kept.
func (s *Selector) Dismiss() {
	s.debounce.Cancel()
	s.mutate(func(st *Snapshot) {
		s.forgetInput()
		st.Mode = Browsing
		st.Input = ""
		st.Query = ""
		st.Results = nil
		st.Loading = false
		st.CanCreate = false
		st.Open = false
	})
}

// Close stops pending work. Nothing scheduled before Close changes state afterwards.
func (s *Selector) Close() {
	s.debounce.Stop()
	s.mu.Lock()
	s.closed = true
	s.seq++
	s.mu.Unlock()
}

// Tree returns the loaded forest.
func (s *Selector) Tree() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

func (s *Selector) reload(ctx context.Context) error {
	tree, err := s.client.Tree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if err := ValidateForest(tree); err != nil {
		s.logger.Warn("category tree is inconsistent", "error", err)
	}

	s.mu.Lock()
	s.root = tree
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Selector) finalize(node *models.Category, fn func(*Snapshot)) {
	s.debounce.Cancel()
	s.mutate(func(st *Snapshot) {
		s.forgetInput()
		s.final = node
		st.Open = false
		st.CanCreate = false
		fn(st)
	})
	s.selections.Set(node)
}

// forgetInput makes the next typed text search again and drops in-flight results. Callers hold mu.
func (s *Selector) forgetInput() {
	s.lastInput = nil
	s.seq++
}

// mutate applies fn to the state under the lock and publishes the result.
func (s *Selector) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()

	s.changes.Set(snap)
}

func filterPrefix(level []models.Category, prefix string) []models.Category {
	prefix = strings.ToLower(prefix)
	var out []models.Category
	for _, c := range level {
		if strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			out = append(out, c)
		}
	}
	return out
}

func containsName(nodes []models.Category, name string) bool {
	for _, n := range nodes {
		if n.Matches(name) {
			return true
		}
	}
	return false
}
