package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vcms/internal/categories"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/search"
	"github.com/desertthunder/vcms/internal/tasks"
)

type fakeSearch struct {
	mu     sync.Mutex
	videos []models.VideoMetadata
}

func (f *fakeSearch) Search(ctx context.Context, q models.SearchQuery) ([]models.VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videos, nil
}

func (f *fakeSearch) Suggestions(ctx context.Context, query string) ([]string, error) {
	return nil, nil
}

type fakeCategories struct{}

func (fakeCategories) Search(ctx context.Context, name string) ([]models.Category, error) {
	return nil, nil
}

func (fakeCategories) Tree(ctx context.Context) ([]models.Category, error) {
	return []models.Category{{ID: "1", Name: "Animals"}}, nil
}

func (fakeCategories) Create(ctx context.Context, name, parent string) (*models.Category, error) {
	return &models.Category{ID: "2", Name: name}, nil
}

func newModel(t *testing.T, opts ModelOpts) *Model {
	t.Helper()
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Search == nil {
		opts.Search = search.NewController(search.ControllerOpts{Client: &fakeSearch{}, Bus: opts.Bus})
	}
	if opts.Selector == nil {
		opts.Selector = categories.NewSelector(categories.SelectorOpts{Client: fakeCategories{}})
	}
	m := NewModel(context.Background(), opts)
	t.Cleanup(m.Close)
	return m
}

func keyPress(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func TestRenderNotification(t *testing.T) {
	tests := []struct {
		kind notify.Kind
		icon string
	}{
		{notify.Success, "✓"},
		{notify.Error, "✗"},
		{notify.Warning, "!"},
		{notify.Info, "•"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := RenderNotification(notify.Notification{Kind: tt.kind, Message: "Saved"})
			if !strings.Contains(got, tt.icon+" Saved") {
				t.Errorf("RenderNotification() = %q, want icon %q", got, tt.icon)
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"cats", []string{"cats"}},
		{" cats , dogs ,, ", []string{"cats", "dogs"}},
		{"Cats, cats, CATS", []string{"Cats"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SplitTags(tt.in)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("SplitTags(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModel(t *testing.T) {
	t.Run("typing updates the search term", func(t *testing.T) {
		m := newModel(t, ModelOpts{})
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ca")})

		if got := m.search.Query().Term; got != "ca" {
			t.Errorf("term = %q, want %q", got, "ca")
		}
	})

	t.Run("refresh copies search results into the list", func(t *testing.T) {
		client := &fakeSearch{videos: []models.VideoMetadata{{ID: "1", Name: "Cat video"}, {ID: "2", Name: "Cat nap"}}}
		ctrl := search.NewController(search.ControllerOpts{Client: client})
		m := newModel(t, ModelOpts{Search: ctrl})

		ctrl.Search(context.Background(), models.SearchQuery{Term: "cat"})
		m.Update(refreshMsg())

		if got := len(m.resultSet.Videos); got != 2 {
			t.Fatalf("result videos = %d, want 2", got)
		}
		if got := len(m.results.Items()); got != 2 {
			t.Errorf("list items = %d, want 2", got)
		}
	})

	t.Run("picker opens and esc returns", func(t *testing.T) {
		m := newModel(t, ModelOpts{})
		m.Update(keyPress(tea.KeyCtrlK))
		if m.view != CategoryView {
			t.Fatalf("view = %v, want CategoryView", m.view)
		}

		m.Update(keyPress(tea.KeyEsc))
		if m.view != SearchView {
			t.Errorf("view = %v, want SearchView", m.view)
		}
	})

	t.Run("picker load failure notifies and returns", func(t *testing.T) {
		m := newModel(t, ModelOpts{})
		m.Update(keyPress(tea.KeyCtrlU))
		m.Update(keyPress(tea.KeyCtrlK))
		m.Update(categoriesOpenedMsg(errors.New("down")))
		m.refresh()

		if m.view != UploadView {
			t.Errorf("view = %v, want UploadView", m.view)
		}
		if len(m.notices) != 1 || m.notices[0].Message != "Failed to load categories." {
			t.Errorf("notices = %+v", m.notices)
		}
	})

	t.Run("dismiss removes the oldest notice", func(t *testing.T) {
		bus := notify.NewBus()
		m := newModel(t, ModelOpts{Bus: bus})
		bus.Info("first")
		bus.Info("second")
		m.refresh()

		m.Update(keyPress(tea.KeyCtrlX))
		m.refresh()

		if len(m.notices) != 1 || m.notices[0].Message != "second" {
			t.Errorf("notices = %+v", m.notices)
		}
	})

	t.Run("publishing a missing file reports an error", func(t *testing.T) {
		bus := notify.NewBus()
		m := newModel(t, ModelOpts{Bus: bus, Publisher: tasks.NewPublisher(tasks.PublisherOpts{Bus: bus})})
		m.Update(keyPress(tea.KeyCtrlU))
		m.form[fieldPath].SetValue("/no/such/file.mp4")

		_, cmd := m.Update(keyPress(tea.KeyCtrlS))
		m.refresh()

		if cmd != nil {
			t.Error("expected no command")
		}
		if m.publishing {
			t.Error("publishing started")
		}
		if len(m.notices) != 1 || m.notices[0].Kind != notify.Error {
			t.Errorf("notices = %+v", m.notices)
		}
	})

	t.Run("commit failure is handed off", func(t *testing.T) {
		var handed *tasks.CommitError
		m := newModel(t, ModelOpts{OnCommitError: func(e *tasks.CommitError) { handed = e }})

		cerr := &tasks.CommitError{URL: "https://store/videos/a.mp4", Err: errors.New("boom")}
		m.Update(publishCompleteMsg(&tasks.PublishResult{URL: cerr.URL}, cerr))

		if handed != cerr {
			t.Errorf("OnCommitError got %v, want %v", handed, cerr)
		}
		if m.view != ResultView {
			t.Errorf("view = %v, want ResultView", m.view)
		}
		if !strings.Contains(m.View(), "vcms upload pending") {
			t.Errorf("View() does not mention the pending command:\n%s", m.View())
		}

		m.Update(keyPress(tea.KeyEnter))
		if m.view != SearchView {
			t.Errorf("view = %v, want SearchView", m.view)
		}
	})

	t.Run("progress channel drains into messages", func(t *testing.T) {
		m := newModel(t, ModelOpts{})
		m.progressChan = make(chan tasks.ProgressUpdate, 1)
		m.outcome = make(chan publishOutcome, 1)

		m.progressChan <- tasks.ProgressUpdate{Phase: tasks.Transferring, Loaded: 5, Size: 10}
		msg, ok := m.waitForProgress()().(Msg)
		if !ok || msg.kind != MsgProgressUpdate {
			t.Fatalf("got %+v, want progress update", msg)
		}

		m.outcome <- publishOutcome{result: &tasks.PublishResult{URL: "u"}}
		close(m.progressChan)
		msg, ok = m.waitForProgress()().(Msg)
		if !ok || msg.kind != MsgPublishComplete {
			t.Fatalf("got %+v, want publish complete", msg)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := newModel(t, ModelOpts{})
		_, cmd := m.Update(keyPress(tea.KeyCtrlC))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
