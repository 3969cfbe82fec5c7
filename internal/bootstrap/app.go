package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"pdf-to-word/internal/config"
	"pdf-to-word/internal/diagnostics"
	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/history"
	"pdf-to-word/internal/jobs"
	"pdf-to-word/internal/present"
	"pdf-to-word/internal/validate"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	eventJob  = "job:event"
	eventView = "job:view"
)

var pdfDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "PDF documents",
		Pattern:     "*.pdf",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// ErrNoDownload is returned by SaveResult when no converted file is on offer.
var ErrNoDownload = errors.New("no converted file to save")

// ledger is the history store surface the app needs.
type ledger interface {
	jobs.Recorder
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Close() error
}

// App wires configuration, the job controller and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Controller  *jobs.Controller
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	service     *service
	history     ledger
	log         *zap.Logger

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New(log *zap.Logger) (*App, error) {
	return NewWithAssets(nil, log)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store := config.NewStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var hist ledger
	if sqlite, err := history.NewSQLiteStore(settings.HistoryPath); err != nil {
		log.Warn("conversion history disabled", zap.String("path", settings.HistoryPath), zap.Error(err))
	} else {
		hist = sqlite
	}

	app, err := newApp(store, settings, hist, log)
	if err != nil {
		if hist != nil {
			_ = hist.Close()
		}
		return nil, err
	}
	app.assets = assets
	app.checker = diagnostics.NewChecker()
	app.Diagnostics = app.checker.Run(context.Background(), settings)
	return app, nil
}

// newApp assembles the controller around settings. hist may be nil.
func newApp(store config.Store, settings domain.Settings, hist ledger, log *zap.Logger) (*App, error) {
	settings = config.Normalize(settings)
	svc, err := newService(settings, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings: settings,
		Store:    store,
		service:  svc,
		history:  hist,
		log:      log,
		events:   jobs.NewEventBus(1000),
	}

	opts := []jobs.Option{
		jobs.WithNotifier(svc),
		jobs.WithValidator(a.validateUpload),
		jobs.WithEventBus(a.events),
		jobs.WithEventHook(a.emitEvent),
		jobs.WithLogger(log),
	}
	if hist != nil {
		opts = append(opts, jobs.WithRecorder(hist))
	}
	a.Controller = jobs.NewController(svc, present.New(svc, present.WithLogger(log)), opts...)
	a.Controller.OnChange(a.emitView)
	return a, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "PDF to Word Converter",
		Width:       720,
		Height:      640,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context and starts the controller.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	if err := a.Controller.Start(ctx); err != nil {
		a.log.Error("start controller", zap.Error(err))
	}
}

// Shutdown stops the controller and releases the history database.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	a.runtimeCtx = nil
	a.mu.Unlock()

	a.Controller.Close()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("close history", zap.Error(err))
		}
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then points the controller at
// the new service and refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.service.reconfigure(normalized); err != nil {
		return domain.Settings{}, err
	}
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	checker := a.checker
	a.mu.Unlock()

	if checker != nil {
		report := checker.Run(context.Background(), normalized)
		a.mu.Lock()
		a.Diagnostics = report
		a.mu.Unlock()
	}
	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns service and path checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	if a.checker == nil {
		return domain.DiagnosticReport{}, errors.New("diagnostics are not configured")
	}

	report := a.checker.Run(context.Background(), settings)
	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// SelectFile opens a native file dialog and selects the chosen PDF.
// A cancelled dialog leaves the selection unchanged.
func (a *App) SelectFile() (domain.View, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.View{}, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select PDF file",
		Filters: pdfDialogFilter,
	})
	if err != nil {
		return domain.View{}, err
	}
	if strings.TrimSpace(path) == "" {
		return a.Controller.Snapshot(), nil
	}
	return a.SelectPath(path)
}

// SelectPath selects a file by path, as used by drag and drop.
func (a *App) SelectPath(path string) (domain.View, error) {
	file, err := domain.FileFromPath(path)
	if err != nil {
		return a.Controller.Snapshot(), err
	}
	return a.Controller.Select(&file)
}

// ClearFile removes the current selection.
func (a *App) ClearFile() (domain.View, error) {
	return a.Controller.Select(nil)
}

// Convert submits the selected file.
func (a *App) Convert() (domain.View, error) {
	return a.Controller.Submit()
}

// Reset returns a finished job to the idle screen.
func (a *App) Reset() (domain.View, error) {
	return a.Controller.Reset()
}

// CurrentView returns the latest render model.
func (a *App) CurrentView() domain.View {
	return a.Controller.Snapshot()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// SaveResult downloads the converted document into the output directory.
func (a *App) SaveResult() (string, error) {
	view := a.Controller.Snapshot()
	if view.Status != domain.JobStatusSucceeded || view.Result == nil || !view.Result.DownloadVisible {
		return "", ErrNoDownload
	}

	a.mu.Lock()
	outputDir := a.Settings.OutputDir
	a.mu.Unlock()

	path, err := a.service.Download(context.Background(), domain.DownloadRef{
		URL:      view.Result.DownloadURL,
		Filename: view.Result.DownloadName,
	}, outputDir)
	if err != nil {
		a.log.Warn("save converted file", zap.String("job_id", view.JobID), zap.Error(err))
		return "", fmt.Errorf("save converted file: %w", err)
	}
	a.log.Info("converted file saved", zap.String("job_id", view.JobID), zap.String("path", path))
	return path, nil
}

// RecentConversions lists the newest recorded conversion attempts.
func (a *App) RecentConversions(limit int) ([]history.Entry, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.Recent(context.Background(), limit)
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}
	return openInFileManager(openPath)
}

// validateUpload applies the currently configured size limit.
func (a *App) validateUpload(candidate *domain.FileRef) (domain.FileRef, error) {
	a.mu.Lock()
	limit := int64(a.Settings.MaxUploadSize)
	a.mu.Unlock()
	return validate.WithLimit(candidate, limit)
}

// emitEvent pushes a published job event to the UI.
func (a *App) emitEvent(event jobs.Event) {
	if ctx := a.currentRuntime(); ctx != nil {
		wailsruntime.EventsEmit(ctx, eventJob, event)
	}
}

// emitView pushes a new render model to the UI.
func (a *App) emitView(view domain.View) {
	if ctx := a.currentRuntime(); ctx != nil {
		wailsruntime.EventsEmit(ctx, eventView, view)
	}
}

func (a *App) currentRuntime() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runtimeCtx
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	ctx := a.currentRuntime()
	if ctx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return ctx, nil
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
