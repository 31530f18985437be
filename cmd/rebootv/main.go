package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/mmcdole/rebootv/internal/backend"
	"github.com/mmcdole/rebootv/internal/bridge"
	"github.com/mmcdole/rebootv/internal/config"
	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/mmcdole/rebootv/internal/log"
	"github.com/mmcdole/rebootv/internal/notify"
	"github.com/mmcdole/rebootv/internal/settings"
	"github.com/mmcdole/rebootv/internal/store"
	"github.com/mmcdole/rebootv/internal/tui"
	"github.com/mmcdole/rebootv/internal/tui/styles"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "rebootv",
		Short:         "Browse IPTV playlists from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBrowse,
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive browser",
		RunE:  runBrowse,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rebootv %s\n", Version)
		},
	}

	root.AddCommand(browseCmd, versionCmd, playlistsCommand(), channelsCommand(), exportCommand(), importCommand())

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}

// app holds the wired components of one run
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	storage  *backend.Storage
	backend  *backend.Backend
	bridge   *bridge.Bridge
	settings *settings.Service
	store    *store.Store

	closeLog func() error

	// failed reports the last error notification of a CLI command
	failed func() error
}

// openApp wires storage, backend, bridge and settings. The store is
// created by newStore once the notification sink is known.
func openApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := log.Setup(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closeLog = log.Null(), func() error { return nil }
	}
	slog.SetDefault(logger)

	storage, err := backend.OpenStorage(cfg.Backend.DataDir)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	be, err := backend.New(storage, backend.Options{
		Seed:         cfg.Backend.Seed,
		RefreshDelay: cfg.Backend.RefreshDelay(),
	}, log.Component(logger, "backend"))
	if err != nil {
		_ = storage.Close()
		_ = closeLog()
		return nil, fmt.Errorf("failed to start backend: %w", err)
	}

	br := bridge.New(cfg.Backend.Latency(), log.Component(logger, "bridge"))
	be.Register(br)

	return &app{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		backend:  be,
		bridge:   br,
		settings: settings.NewService(br, log.Component(logger, "settings")),
		closeLog: closeLog,
	}, nil
}

func (a *app) newStore(notifier domain.Notifier) *store.Store {
	a.store = store.New(a.bridge, notifier, a.settings, store.Options{
		PageSize:    a.cfg.Store.PageSize,
		DefaultView: domain.View(a.cfg.UI.DefaultView),
	}, log.Component(a.logger, "store"))
	return a.store
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	a.backend.Close()
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
	_ = a.closeLog()
}

// subscribeOnce returns a channel that is closed the first time event
// is emitted
func (a *app) subscribeOnce(event string) (<-chan struct{}, func()) {
	done := make(chan struct{})
	var once sync.Once
	unsubscribe := a.bridge.Subscribe(event, func(json.RawMessage) {
		once.Do(func() { close(done) })
	})
	return done, unsubscribe
}

// printNotifier writes store notifications as styled lines. Errors
// are kept for the command to return instead. Show is called from
// backend event goroutines as well as the command's own.
type printNotifier struct {
	w io.Writer

	mu      sync.Mutex
	lastErr error
}

func (p *printNotifier) Show(message string, level domain.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch level {
	case domain.LevelError:
		p.lastErr = errors.New(message)
	case domain.LevelSuccess:
		fmt.Fprintln(p.w, styles.SuccessStyle.Render(message))
	default:
		fmt.Fprintln(p.w, styles.InfoStyle.Render(message))
	}
}

// Err returns the last error notification, if any
func (p *printNotifier) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	notes := notify.NewCenter(a.cfg.Notifications.Duration(), log.Component(a.logger, "notify"))
	s := a.newStore(notes)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	observer := tui.NewChannelObserver()
	detach := observer.Attach(s, notes)
	defer detach()

	view := domain.View(a.cfg.UI.DefaultView)
	if err := a.settings.Load(ctx); err == nil {
		if v := a.settings.Get().DefaultView; v != "" {
			view = v
		}
	}

	model := tui.NewModel(ctx, s, notes, observer, view)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI", "version", Version)
	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	a.logger.Info("shutting down")
	return nil
}
