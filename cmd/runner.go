package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/categories"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/repositories"
	"github.com/desertthunder/vcms/internal/router"
	"github.com/desertthunder/vcms/internal/search"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/session"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/tasks"
	"github.com/desertthunder/vcms/internal/ui"
	"github.com/desertthunder/vcms/internal/upload"
	"github.com/urfave/cli/v3"
)

// Locations registered on the runner's router besides the session pages.
const (
	SearchPath    = search.Path
	UploadPath    = "/upload"
	VideoPath     = "/videos/{id}"
	ChangeLogPath = "/videos/{id}/changelog"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Backend clients are built on first use so that commands like "setup" work without a reachable
// backend or a valid config.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader
	bus        *notify.Bus
	quiet      func()

	db         *sql.DB
	store      session.Store
	router     *router.Router
	session    *session.Facade
	api        *services.APIService
	videos     *services.VideoService
	categories *services.CategoryService
	tags       *services.TagService
	pending    *repositories.PendingUploadRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	// Store overrides the session store selected by config.
	Store session.Store
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
		bus:        notify.NewBus(),
		store:      opts.Store,
	}
	r.quiet = r.bus.Subscribe(r.printNotification)
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, uploadCommand, searchCommand, categoriesCommand, videoCommand, tagsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used for commands run after the call.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// connect builds the backend clients, the session and the router.
func (r *Runner) connect(ctx context.Context) error {
	if r.api != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.store == nil {
		store, err := r.sessionStore(ctx)
		if err != nil {
			return err
		}
		r.store = store
	}

	gateway, err := services.NewGateway(services.GatewayOpts{
		BaseURL: r.config.API.BaseURL,
		Tokens:  r.store,
		Base:    r.httpClient.Transport,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}
	client := gateway.Client()
	client.Timeout = r.config.API.Timeout()

	apiOpts := []services.Option{services.WithLogger(r.logger)}
	if rps := r.config.API.RateLimit; rps > 0 {
		apiOpts = append(apiOpts, services.WithRateLimit(rps))
	}
	r.api = services.NewAPIService(r.config.API.BaseURL, client, apiOpts...)
	r.videos = services.NewVideoService(r.api, r.logger)
	r.categories = services.NewCategoryService(r.api)
	r.tags = services.NewTagService(r.api)

	r.router = router.New(router.Opts{Fallback: session.LoginPath, Logger: r.logger})
	r.session = session.NewFacade(session.FacadeOpts{
		Store:     r.store,
		Auth:      services.NewAuthService(r.api),
		Navigator: r.router,
		Bus:       r.bus,
		Logger:    r.logger,
	})
	gateway.SetUnauthorizedHandler(r.session.HandleUnauthorized)

	public := session.RequirePublic(r.session)
	private := session.RequireAuth(r.session)
	r.router.Handle(session.LoginPath, public)
	r.router.Handle(session.RegisterPath, public)
	for _, p := range []string{session.LandingPath, SearchPath, UploadPath, VideoPath, ChangeLogPath} {
		r.router.Handle(p, private)
	}
	return nil
}

func (r *Runner) sessionStore(ctx context.Context) (session.Store, error) {
	switch strings.ToLower(r.config.Session.Store) {
	case "memory":
		return session.NewMemoryStore(), nil
	case "", "sqlite":
		db, err := r.database(ctx)
		if err != nil {
			return nil, err
		}
		return session.NewSQLStore(repositories.NewKVRepository(db), r.logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", shared.ErrInvalidConfig, r.config.Session.Store)
	}
}

func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenMigrated(ctx, r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) pendingUploads(ctx context.Context) (*repositories.PendingUploadRepository, error) {
	if r.pending != nil {
		return r.pending, nil
	}
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	r.pending = repositories.NewPendingUploadRepository(db)
	return r.pending, nil
}

// visit navigates to target and fails unless the session guards let the user in.
func (r *Runner) visit(ctx context.Context, target string) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if err := r.router.Navigate(target); err != nil {
		return err
	}
	if r.router.Location().Get().Path == session.LoginPath {
		return fmt.Errorf("%w: run `vcms auth login` first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (r *Runner) publisher() *tasks.Publisher {
	uploader := upload.NewUploader(upload.UploaderOpts{
		Credentials: r.videos,
		HTTPClient:  r.httpClient,
		BlockSize:   r.config.Upload.BlockSize(),
		Logger:      r.logger,
	})
	return tasks.NewPublisher(tasks.PublisherOpts{
		Uploader: uploader,
		Videos:   r.videos,
		Tags:     r.tags,
		Bus:      r.bus,
		Logger:   r.logger,
	})
}

func (r *Runner) selector() *categories.Selector {
	return categories.NewSelector(categories.SelectorOpts{
		Client:   r.categories,
		Debounce: r.config.UI.Debounce(),
		Logger:   r.logger,
	})
}

// savePending records a stored-but-uncommitted upload for `vcms upload retry`.
func (r *Runner) savePending(ctx context.Context, cerr *tasks.CommitError) (int, error) {
	repo, err := r.pendingUploads(ctx)
	if err != nil {
		return 0, err
	}
	p := newPendingUpload(cerr)
	if err := repo.Create(p); err != nil {
		return 0, err
	}
	r.logger.Info("saved pending upload", "id", p.ID(), "sequence", p.Sequence(), "url", p.URL())
	return p.Sequence(), nil
}

func (r *Runner) printNotification(n notify.Notification) {
	if n.IsClearAll() {
		return
	}
	fmt.Fprintln(r.output, ui.RenderNotification(n))
}

// prompt reads one line of input, showing label first.
func (r *Runner) prompt(label string) (string, error) {
	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimSpace(line), nil
}

// valueOrPrompt returns the flag value, or asks for it when empty.
func (r *Runner) valueOrPrompt(cmd *cli.Command, flag, label string) (string, error) {
	if v := cmd.String(flag); v != "" {
		return v, nil
	}
	return r.prompt(label)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
