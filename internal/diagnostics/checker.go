package diagnostics

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/submit"
)

// DefaultProbeTimeout bounds the service health request.
const DefaultProbeTimeout = 5 * time.Second

// Checker validates the conversion service and required filesystem paths.
type Checker struct {
	probe      func(ctx context.Context, serviceURL string) error
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	timeout    time.Duration
	now        func() time.Time
}

// NewChecker builds a checker using real OS and network dependencies.
func NewChecker() *Checker {
	return &Checker{
		probe:      probeHealth,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		timeout:    DefaultProbeTimeout,
		now:        time.Now,
	}
}

// probeHealth calls GET /health on the service.
func probeHealth(ctx context.Context, serviceURL string) error {
	client, err := submit.New(serviceURL, submit.WithTimeout(DefaultProbeTimeout))
	if err != nil {
		return err
	}
	return client.Health(ctx)
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{c.checkServiceURL(settings.ServiceURL)}
	if items[0].Status == domain.DiagnosticStatusPass {
		items = append(items, c.checkServiceHealth(ctx, settings.ServiceURL))
	}
	items = append(items, c.checkOutputDir(settings.OutputDir))

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: c.now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkServiceURL validates the configured service address.
func (c *Checker) checkServiceURL(serviceURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticServiceURL,
		Name: "Service URL",
	}

	trimmed := strings.TrimSpace(serviceURL)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Service URL is empty."
		item.Hint = "Set the address of the conversion service, for example http://localhost:5000."
		return item
	}

	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Service URL is not a valid http(s) address: %s", trimmed)
		item.Hint = "Use a full URL including scheme and host."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using %s", trimmed)
	return item
}

// checkServiceHealth verifies the service answers its health endpoint.
func (c *Checker) checkServiceHealth(ctx context.Context, serviceURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticServiceHealth,
		Name: "Conversion service",
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.probe(probeCtx, strings.TrimSpace(serviceURL)); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Service is not reachable: %v", err)
		item.Hint = "Start the conversion service or correct the service URL in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Service reports healthy."
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticOutputDir,
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where converted documents can be saved."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for saved documents."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	probe func(ctx context.Context, serviceURL string) error,
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		probe:      probe,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		timeout:    time.Second,
		now:        time.Now,
	}
}
