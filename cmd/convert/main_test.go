package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newService starts a conversion service stub replying with reply.
func newService(t *testing.T, reply map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(reply)
	})
	mux.HandleFunc("POST /cleanup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	})
	mux.HandleFunc("GET /download/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("docx"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// writeProfile writes a YAML settings profile pointing at serviceURL.
func writeProfile(t *testing.T, dir, serviceURL, maxUpload string) string {
	t.Helper()
	path := filepath.Join(dir, "profile.yaml")
	body := "serviceUrl: " + serviceURL + "\n" +
		"outputDir: " + filepath.Join(dir, "out") + "\n" +
		"historyPath: " + filepath.Join(dir, "history.db") + "\n" +
		"maxUploadSize: " + maxUpload + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func writeInput(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// TestRunSuccessSavesDocument verifies exit code 0 and the saved artifact.
func TestRunSuccessSavesDocument(t *testing.T) {
	dir := t.TempDir()
	ts := newService(t, map[string]any{
		"success":      true,
		"message":      "PDF converted successfully!",
		"download_url": "/download/report.docx",
		"filename":     "report.docx",
	})
	profile := writeProfile(t, dir, ts.URL, "50Mi")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", profile, "-plain", writeInput(t, dir, 128)}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}

	saved := filepath.Join(dir, "out", "report.docx")
	if data, err := os.ReadFile(saved); err != nil || string(data) != "docx" {
		t.Fatalf("saved = %q err=%v", data, err)
	}
	out := stdout.String()
	if !strings.Contains(out, "Conversion Successful!") || !strings.Contains(out, "saved: "+saved) {
		t.Fatalf("stdout = %s", out)
	}
}

// TestRunServerFailure verifies exit code 1 and the service message.
func TestRunServerFailure(t *testing.T) {
	dir := t.TempDir()
	ts := newService(t, map[string]any{"success": false, "message": "Corrupt PDF"})
	profile := writeProfile(t, dir, ts.URL, "50Mi")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", profile, "-plain", writeInput(t, dir, 16)}, &stdout, &stderr)
	if code != exitFailed {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "Corrupt PDF") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

// TestRunValidationAndUsageErrors verifies exit code 2 paths.
func TestRunValidationAndUsageErrors(t *testing.T) {
	dir := t.TempDir()
	ts := newService(t, map[string]any{"success": false, "message": "unused"})
	profile := writeProfile(t, dir, ts.URL, "1Ki")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != exitUsage {
		t.Fatalf("no args exit = %d", code)
	}
	if code := run(context.Background(), []string{"-config", profile, filepath.Join(dir, "missing.pdf")}, &stdout, &stderr); code != exitUsage {
		t.Fatalf("missing file exit = %d", code)
	}

	stdout.Reset()
	code := run(context.Background(), []string{"-config", profile, "-plain", writeInput(t, dir, 4096)}, &stdout, &stderr)
	if code != exitUsage {
		t.Fatalf("too large exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "error: File size exceeds") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}
