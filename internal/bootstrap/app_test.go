package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/history"
	"pdf-to-word/internal/jobs"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
	saved    int
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the settings.
func (s *fakeStore) Save(settings domain.Settings) error {
	s.settings = settings
	s.saved++
	return nil
}

// fakeService emulates the conversion service endpoints.
type fakeService struct {
	server   *httptest.Server
	converts atomic.Int32
	cleanups atomic.Int32
	reply    map[string]any
}

func newFakeService(t *testing.T, reply map[string]any) *fakeService {
	t.Helper()
	svc := &fakeService{reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", func(w http.ResponseWriter, r *http.Request) {
		svc.converts.Add(1)
		if _, _, err := r.FormFile("pdf_file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(svc.reply)
	})
	mux.HandleFunc("POST /cleanup", func(w http.ResponseWriter, r *http.Request) {
		svc.cleanups.Add(1)
		_, _ = w.Write([]byte(`{"success":true,"message":"Cleanup completed"}`))
	})
	mux.HandleFunc("GET /download/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("converted:" + r.PathValue("name")))
	})
	svc.server = httptest.NewServer(mux)
	t.Cleanup(svc.server.Close)
	return svc
}

// newTestApp builds a started app against svc with a temp history database.
func newTestApp(t *testing.T, svc *fakeService) (*App, *fakeStore) {
	t.Helper()
	root := t.TempDir()
	store := &fakeStore{settings: domain.Settings{
		ServiceURL:            svc.server.URL,
		OutputDir:             filepath.Join(root, "out"),
		RequestTimeoutSeconds: 10,
		MaxUploadSize:         50 << 20,
		HistoryPath:           filepath.Join(root, "history.db"),
	}}

	hist, err := history.NewSQLiteStore(store.settings.HistoryPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	app, err := newApp(store, store.settings, hist, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if err := app.Controller.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app, store
}

// writePDF creates an input file of size bytes.
func writePDF(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	data := make([]byte, size)
	copy(data, "%PDF-1.4")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

// TestConvertSuccessSavesResultAndRecordsHistory checks the desktop happy path.
func TestConvertSuccessSavesResultAndRecordsHistory(t *testing.T) {
	svc := newFakeService(t, map[string]any{
		"success":      true,
		"message":      "PDF converted successfully!",
		"download_url": "/download/report.docx",
		"filename":     "report.docx",
	})
	app, store := newTestApp(t, svc)

	if _, err := app.SelectPath(writePDF(t, 2048)); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := app.Convert(); err != nil {
		t.Fatalf("convert: %v", err)
	}
	view := waitForStatus(t, app, domain.JobStatusSucceeded)
	if view.Result == nil || view.Result.DownloadURL != "/download/report.docx" {
		t.Fatalf("result = %+v", view.Result)
	}

	path, err := app.SaveResult()
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if path != filepath.Join(store.settings.OutputDir, "report.docx") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "converted:report.docx" {
		t.Fatalf("saved = %q err=%v", data, err)
	}

	entries, err := app.RecentConversions(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != domain.JobStatusSucceeded || entries[0].FileName != "report.pdf" {
		t.Fatalf("entries = %+v", entries)
	}

	events := app.JobEvents(0)
	assertEventTypeExists(t, events, jobs.EventTypeStatus)
	assertEventTypeExists(t, events, jobs.EventTypeResult)

	deadline := time.Now().Add(2 * time.Second)
	for svc.cleanups.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := svc.cleanups.Load(); got != 2 {
		t.Fatalf("cleanup calls = %d, want activation + success", got)
	}
}

// TestConvertServerFailure checks service-reported failures reach the view.
func TestConvertServerFailure(t *testing.T) {
	svc := newFakeService(t, map[string]any{"success": false, "message": "Corrupt PDF"})
	app, _ := newTestApp(t, svc)

	if _, err := app.SelectPath(writePDF(t, 64)); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, _ = app.Convert()
	view := waitForStatus(t, app, domain.JobStatusFailed)
	if view.Result == nil || view.Result.Message != "Corrupt PDF" || !view.TriggerEnabled {
		t.Fatalf("view = %+v", view)
	}
	if _, err := app.SaveResult(); !errors.Is(err, ErrNoDownload) {
		t.Fatalf("save result err = %v, want ErrNoDownload", err)
	}

	view, err := app.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if view.Status != domain.JobStatusIdle || view.FileName != "" || view.Result != nil {
		t.Fatalf("reset view = %+v", view)
	}
}

// TestConvertRespectsConfiguredLimit checks the settings-driven size limit.
func TestConvertRespectsConfiguredLimit(t *testing.T) {
	svc := newFakeService(t, map[string]any{"success": true, "message": "ok", "download_url": "/download/x.docx", "filename": "x.docx"})
	app, store := newTestApp(t, svc)

	settings := store.settings
	settings.MaxUploadSize = 1024
	if _, err := app.SaveSettings(settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	if _, err := app.SelectPath(writePDF(t, 4096)); err != nil {
		t.Fatalf("select: %v", err)
	}
	view, err := app.Convert()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if view.Status != domain.JobStatusIdle || view.Error == "" {
		t.Fatalf("view = %+v", view)
	}
	if svc.converts.Load() != 0 {
		t.Fatalf("convert calls = %d, want 0", svc.converts.Load())
	}
}

// TestSaveSettingsSwitchesService checks a new service URL applies to the next job.
func TestSaveSettingsSwitchesService(t *testing.T) {
	first := newFakeService(t, map[string]any{"success": false, "message": "first"})
	second := newFakeService(t, map[string]any{"success": false, "message": "second"})
	app, store := newTestApp(t, first)

	settings := store.settings
	settings.ServiceURL = second.server.URL + "/"
	saved, err := app.SaveSettings(settings)
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if saved.ServiceURL != second.server.URL || store.saved != 1 {
		t.Fatalf("saved = %+v (saves=%d)", saved, store.saved)
	}

	_, _ = app.SelectPath(writePDF(t, 64))
	_, _ = app.Convert()
	view := waitForStatus(t, app, domain.JobStatusFailed)
	if view.Result == nil || view.Result.Message != "second" {
		t.Fatalf("result = %+v", view.Result)
	}
	if first.converts.Load() != 0 {
		t.Fatal("old service should not be used")
	}
}

// TestSaveSettingsRejectsInvalidURL checks bad settings are not persisted.
func TestSaveSettingsRejectsInvalidURL(t *testing.T) {
	svc := newFakeService(t, map[string]any{"success": false, "message": "x"})
	app, store := newTestApp(t, svc)

	settings := store.settings
	settings.ServiceURL = "ftp://nowhere"
	if _, err := app.SaveSettings(settings); err == nil {
		t.Fatal("expected error")
	}
	if store.saved != 0 {
		t.Fatalf("saves = %d, want 0", store.saved)
	}
}

// TestSelectPathMissingFile checks selection errors leave state untouched.
func TestSelectPathMissingFile(t *testing.T) {
	svc := newFakeService(t, map[string]any{"success": false, "message": "x"})
	app, _ := newTestApp(t, svc)

	view, err := app.SelectPath(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected error")
	}
	if view.FileName != "" || view.Status != domain.JobStatusIdle {
		t.Fatalf("view = %+v", view)
	}
	if _, err := app.SelectFile(); err == nil {
		t.Fatal("expected runtime context error without Wails")
	}
}

// waitForStatus polls the current view until it reaches want.
func waitForStatus(t *testing.T, app *App, want domain.JobStatus) domain.View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if view := app.CurrentView(); view.Status == want {
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", app.CurrentView().Status, want)
	return domain.View{}
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []jobs.Event, want jobs.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
