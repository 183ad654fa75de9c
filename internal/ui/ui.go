package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/categories"
	"github.com/desertthunder/vcms/internal/formatter"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/search"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/tasks"
	"github.com/desertthunder/vcms/internal/upload"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	CategoryView
	UploadView
	ResultView
)

const (
	fieldPath = iota
	fieldName
	fieldDescription
	fieldTags
	fieldCount
)

const maxSuggestions = 5

// ModelOpts carries the TUI's dependencies.
type ModelOpts struct {
	Search    *search.Controller
	Selector  *categories.Selector
	Publisher *tasks.Publisher
	Bus       *notify.Bus
	Container string
	Prefix    string
	// OnCommitError is called when a file was stored but its metadata was not saved.
	OnCommitError func(*tasks.CommitError)
	Logger        *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	returnTo ViewState
	opts     ModelOpts
	logger   *log.Logger
	width    int
	height   int

	search    *search.Controller
	selector  *categories.Selector
	publisher *tasks.Publisher
	bus       *notify.Bus
	tray      *notify.Tray
	changed   chan struct{}
	cancels   []func()

	query       textinput.Model
	results     list.Model
	resultSet   search.ResultSet
	suggestions []string

	picker   textinput.Model
	levels   list.Model
	snapshot categories.Snapshot
	category *models.Category

	form         []textinput.Model
	focus        int
	publishing   bool
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	outcome      chan publishOutcome
	progress     tasks.ProgressUpdate
	result       *tasks.PublishResult
	err          error

	notices []notify.Notification
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model and starts observing its controllers. Call [Model.Close] when done.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}

	m := &Model{
		ctx:       ctx,
		view:      SearchView,
		opts:      opts,
		logger:    opts.Logger,
		search:    opts.Search,
		selector:  opts.Selector,
		publisher: opts.Publisher,
		bus:       opts.Bus,
		changed:   make(chan struct{}, 1),
		query:     newInput("Search videos…"),
		picker:    newInput("Type to search categories…"),
		results:   newList("Results"),
		levels:    newList("Categories"),
		bar:       progress.New(progress.WithDefaultGradient()),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.query.Focus()

	m.form = make([]textinput.Model, fieldCount)
	m.form[fieldPath] = newInput("Path to video file")
	m.form[fieldName] = newInput("Video name")
	m.form[fieldDescription] = newInput("Description")
	m.form[fieldTags] = newInput("Tags, comma separated (empty to generate)")

	m.tray = notify.NewTray(m.bus, func([]notify.Notification) { m.signal() })
	m.cancels = append(m.cancels,
		m.search.Results().Subscribe(func(search.ResultSet) { m.signal() }),
		m.search.Suggestions().Subscribe(func([]string) { m.signal() }),
		m.selector.Changes().Subscribe(func(categories.Snapshot) { m.signal() }),
		m.selector.Selections().Subscribe(func(c *models.Category) {
			name := ""
			if c != nil {
				name = c.Name
			}
			m.search.SelectCategory(name)
			m.signal()
		}),
		m.search.Bind(ctx),
	)
	return m
}

// Close stops observing controllers.
func (m *Model) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
	m.tray.Close()
	m.search.Close()
	m.selector.Close()
}

// Init starts the cursor, the spinner and the state watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(msg.Width-4, msg.Height-12)
		m.levels.SetSize(msg.Width-4, msg.Height-12)
		m.bar.Width = min(msg.Width-4, 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.dismiss):
			if len(m.notices) > 0 {
				m.tray.Dismiss(m.notices[0].ID)
			}
			return m, nil
		}

		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case CategoryView:
			return m.handleCategoryKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgRefresh:
		m.refresh()
		return m, m.waitForChange()

	case MsgCategoriesOpened:
		if err := msg.err(); err != nil {
			m.logger.Warn("could not open category picker", "error", err)
			m.bus.Error("Failed to load categories.")
			m.view = m.returnTo
		}
		return m, nil

	case MsgCategoryCreated:
		if err := msg.err(); err != nil {
			m.logger.Warn("could not create category", "error", err)
			m.bus.Error("Failed to create new category.")
			return m, nil
		}
		m.closePicker()
		return m, nil

	case MsgProgressUpdate:
		m.progress, _ = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgPublishComplete:
		out, _ := msg.data.(publishOutcome)
		m.result, m.err = out.result, out.err
		m.publishing = false
		m.progressChan, m.outcome = nil, nil
		m.view = ResultView

		var cerr *tasks.CommitError
		if errors.As(out.err, &cerr) && m.opts.OnCommitError != nil {
			m.opts.OnCommitError(cerr)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if err := m.search.Submit(); err != nil {
			m.bus.Error(fmt.Sprintf("Failed to search videos. Details: %v", err))
		}
		return m, nil
	case key.Matches(msg, m.keys.accept):
		if len(m.suggestions) > 0 {
			m.query.SetValue(m.suggestions[0])
			m.query.CursorEnd()
			m.search.Input(m.ctx, m.query.Value())
		}
		return m, nil
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.categories):
		return m, m.openPicker(SearchView)
	case key.Matches(msg, m.keys.upload):
		m.view = UploadView
		m.focusField(fieldPath)
		return m, textinput.Blink
	}

	before := m.query.Value()
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	if after := m.query.Value(); after != before {
		m.search.Input(m.ctx, after)
	}
	return m, cmd
}

func (m *Model) handleCategoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.selector.Dismiss()
		m.closePicker()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.levels.SelectedItem().(categoryItem); ok {
			m.selector.Click(item.category)
			if !m.selector.State().Open {
				m.closePicker()
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.parent):
		m.selector.NavigateUp()
		return m, nil
	case key.Matches(msg, m.keys.all):
		m.selector.SelectNone()
		m.closePicker()
		return m, nil
	case key.Matches(msg, m.keys.create):
		return m, m.createCategory()
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		var cmd tea.Cmd
		m.levels, cmd = m.levels.Update(msg)
		return m, cmd
	}

	before := m.picker.Value()
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if after := m.picker.Value(); after != before {
		m.selector.Type(m.ctx, after)
	}
	return m, cmd
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.publishing {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = SearchView
		m.form[m.focus].Blur()
		m.query.Focus()
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.focusField((m.focus + 1) % fieldCount)
		return m, nil
	case key.Matches(msg, m.keys.categories):
		return m, m.openPicker(UploadView)
	case key.Matches(msg, m.keys.start):
		return m, m.startPublish()
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.result, m.err = nil, nil
		m.progress = tasks.ProgressUpdate{}
		for i := range m.form {
			m.form[i].SetValue("")
		}
		m.view = SearchView
		m.query.Focus()
	}
	return m, nil
}

func (m *Model) openPicker(from ViewState) tea.Cmd {
	m.returnTo = from
	m.view = CategoryView
	m.query.Blur()
	m.form[m.focus].Blur()
	m.picker.SetValue("")
	m.picker.Focus()

	sel, ctx := m.selector, m.ctx
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return categoriesOpenedMsg(sel.Open(ctx))
	})
}

func (m *Model) closePicker() {
	m.picker.Blur()
	m.view = m.returnTo
	if m.view == UploadView {
		m.form[m.focus].Focus()
	} else {
		m.query.Focus()
	}
}

func (m *Model) createCategory() tea.Cmd {
	name := strings.TrimSpace(m.picker.Value())
	if name == "" {
		m.bus.Warning("Type a name for the new category first.")
		return nil
	}
	related := ""
	if m.snapshot.Selected != nil {
		related = m.snapshot.Selected.Name
	}

	sel, ctx := m.selector, m.ctx
	return func() tea.Msg {
		_, err := sel.Create(ctx, name, related)
		return categoryCreatedMsg(err)
	}
}

func (m *Model) focusField(i int) {
	m.form[m.focus].Blur()
	m.query.Blur()
	m.focus = i
	m.form[i].Focus()
}

func (m *Model) startPublish() tea.Cmd {
	if m.publisher == nil {
		m.bus.Error("Publishing is not available.")
		return nil
	}

	path := strings.TrimSpace(m.form[fieldPath].Value())
	file, closer, err := upload.OpenFile(path)
	if err != nil {
		m.bus.Error("Please select a video file to upload.")
		m.logger.Warn("could not open upload", "path", path, "error", err)
		return nil
	}

	req := tasks.PublishRequest{
		File:      file,
		Container: m.opts.Container,
		Prefix:    m.opts.Prefix,
		Metadata: models.VideoMetadataRequest{
			Name:        m.form[fieldName].Value(),
			Description: m.form[fieldDescription].Value(),
			Tags:        SplitTags(m.form[fieldTags].Value()),
		},
	}
	req.GenerateTags = len(req.Metadata.Tags) == 0
	if m.category != nil {
		req.Metadata.CategoryName = m.category.Name
	}

	m.publishing = true
	m.progress = tasks.ProgressUpdate{Phase: tasks.Idle, File: file.Name, Size: file.Size}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.outcome = make(chan publishOutcome, 1)

	go func(ctx context.Context, pub *tasks.Publisher, progress chan tasks.ProgressUpdate, outcome chan<- publishOutcome) {
		defer closer.Close()
		res, err := pub.Publish(ctx, progress, req)
		outcome <- publishOutcome{res, err}
		close(progress)
	}(m.ctx, m.publisher, m.progressChan, m.outcome)

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, outcome := m.progressChan, m.outcome
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			out := <-outcome
			return publishCompleteMsg(out.result, out.err)
		}
		return progressUpdateMsg(update)
	}
}

// signal marks observed state as changed. Bursts collapse into one refresh.
func (m *Model) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	changed, done := m.changed, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changed:
			return refreshMsg()
		case <-done:
			return nil
		}
	}
}

// refresh copies the latest controller state into the view.
func (m *Model) refresh() {
	m.resultSet = m.search.Results().Get()
	m.suggestions = m.search.Suggestions().Get()
	m.results.SetItems(videoItems(m.resultSet.Videos, m.resultSet.Query.Term))

	m.snapshot = m.selector.State()
	nodes := m.snapshot.Level
	if m.snapshot.Mode == categories.Searching {
		nodes = m.snapshot.Results
	}
	m.levels.SetItems(categoryItems(nodes))
	m.category = m.selector.Selections().Get()

	m.notices = m.tray.Items()
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case SearchView:
		body = m.renderSearch()
	case CategoryView:
		body = m.renderCategories()
	case UploadView:
		body = m.renderUpload()
	case ResultView:
		body = m.renderResult()
	}
	return body + "\n" + m.renderStatus()
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Video Search") + "\n")
	b.WriteString(m.query.View() + "\n")
	b.WriteString(styles.help.Render("Category: "+m.categoryName()) + "\n")

	if len(m.suggestions) > 0 {
		shown := m.suggestions[:min(len(m.suggestions), maxSuggestions)]
		b.WriteString(styles.help.Render("  "+strings.Join(shown, " · ")) + "\n")
	}
	b.WriteString("\n")

	rs := m.resultSet
	switch {
	case rs.Loading:
		b.WriteString(m.spinner.View() + " Searching...\n")
	case rs.Err != nil:
		b.WriteString(styles.err.Render("Search failed. Press enter to try again.") + "\n")
	case len(rs.Videos) == 0 && !rs.Query.IsEmpty():
		b.WriteString("No videos found.\n")
	case len(rs.Videos) > 0:
		b.WriteString(m.results.View() + "\n")
	}

	keys := []key.Binding{m.keys.enter, m.keys.accept, m.keys.categories, m.keys.upload, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderCategories() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Choose a category") + "\n")
	b.WriteString(styles.help.Render(m.breadcrumb()) + "\n")
	b.WriteString(m.picker.View() + "\n\n")

	snap := m.snapshot
	switch {
	case snap.Loading:
		b.WriteString(m.spinner.View() + " Loading...\n")
	case snap.Mode == categories.Searching && len(snap.Results) == 0:
		b.WriteString(fmt.Sprintf("No categories match %q.\n", snap.Query))
	default:
		b.WriteString(m.levels.View() + "\n")
	}
	if snap.CanCreate {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Press ctrl+n to create %q", strings.TrimSpace(snap.Input))) + "\n")
	}

	keys := []key.Binding{m.keys.enter, m.keys.parent, m.keys.create, m.keys.all, m.keys.back}
	b.WriteString("\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderUpload() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Upload a video") + "\n")

	if m.publishing {
		p := m.progress
		b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), phaseLabel(p.Phase)))
		b.WriteString(m.bar.ViewAs(p.Percent()/100) + "\n")
		b.WriteString(fmt.Sprintf("%s / %s\n", shared.FormatBytes(p.Loaded), shared.FormatBytes(p.Size)))
		if p.Message != "" {
			b.WriteString(styles.help.Render(p.Message) + "\n")
		}
		return b.String()
	}

	labels := []string{"File", "Name", "Description", "Tags"}
	for i, in := range m.form {
		b.WriteString(fmt.Sprintf("%-12s %s\n", labels[i], in.View()))
	}
	b.WriteString(fmt.Sprintf("%-12s %s\n", "Category", m.categoryName()))

	keys := []key.Binding{m.keys.next, m.keys.categories, m.keys.start, m.keys.back}
	b.WriteString("\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})

	var cerr *tasks.CommitError
	switch {
	case errors.As(m.err, &cerr):
		msg := fmt.Sprintf("File stored at %s but its details were not saved.\nRun `vcms upload pending` to retry.", cerr.URL)
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render(msg), helpView)
	case m.err != nil:
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Upload failed: %v", m.err)), helpView)
	case m.result == nil:
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Video published!")
	info := fmt.Sprintf("\nURL: %s\nSize: %s", m.result.URL, shared.FormatBytes(m.result.Bytes))
	if m.result.Video != nil {
		info += fmt.Sprintf("\nID: %s", m.result.Video.ID)
	}
	if len(m.result.Tags) > 0 {
		info += fmt.Sprintf("\nTags: %s", strings.Join(m.result.Tags, ", "))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderStatus() string {
	if len(m.notices) == 0 {
		return ""
	}
	last := m.notices[len(m.notices)-1]
	status := RenderNotification(last)
	if n := len(m.notices); n > 1 {
		status += styles.help.Render(fmt.Sprintf("  (+%d more, ctrl+x to dismiss)", n-1))
	}
	return status
}

func (m *Model) categoryName() string {
	if m.category == nil {
		return search.AllCategories
	}
	return m.category.Name
}

func (m *Model) breadcrumb() string {
	crumbs := []string{search.AllCategories}
	if sel := m.snapshot.Selected; sel != nil {
		if path, ok := categories.Path(m.selector.Tree(), sel.ID); ok {
			for _, c := range path {
				crumbs = append(crumbs, c.Name)
			}
		} else {
			crumbs = append(crumbs, sel.Name)
		}
	}
	return strings.Join(crumbs, " › ")
}

// SplitTags parses a comma separated tag list, dropping blanks and repeats.
func SplitTags(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

func phaseLabel(p tasks.Phase) string {
	switch p {
	case tasks.Idle, tasks.RequestingCredential:
		return "Requesting upload authorization..."
	case tasks.Transferring:
		return "Uploading..."
	case tasks.CommittingMetadata:
		return "Saving video details..."
	case tasks.Done:
		return "Done"
	case tasks.Failed:
		return "Failed"
	default:
		return "Processing..."
	}
}

func highlight(text, term string) string {
	return formatter.Highlight(text, term, func(s string) string { return styles.mark.Render(s) })
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 60
	return in
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}
