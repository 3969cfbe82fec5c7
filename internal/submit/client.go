package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"pdf-to-word/internal/domain"
)

const (
	// FieldName is the multipart field the service reads the upload from.
	FieldName = "pdf_file"

	PathConvert = "/convert"
	PathCleanup = "/cleanup"
	PathHealth  = "/health"

	// DefaultTimeout bounds one conversion request end to end.
	DefaultTimeout = 5 * time.Minute

	maxResponseBytes  = 1 << 20
	errorSnippetLimit = 200
	userAgent         = "pdf-to-word"
)

// Client talks to the remote conversion service.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	log        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("service url is required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    u,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type convertResponse struct {
	Success     *bool   `json:"success"`
	Message     *string `json:"message"`
	DownloadURL string  `json:"download_url"`
	Filename    string  `json:"filename"`
}

// Submit uploads file to /convert and decodes the service verdict.
//
// A decoded success:false is returned as a failed Outcome with a nil error.
// Transport failures and undecodable responses are returned as *Error.
func (c *Client) Submit(ctx context.Context, file domain.FileRef) (domain.Outcome, error) {
	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return domain.Outcome{}, &Error{Kind: domain.FailureNetwork, Op: "encode upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathConvert), body)
	if err != nil {
		return domain.Outcome{}, &Error{Kind: domain.FailureNetwork, Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Outcome{}, &Error{Kind: domain.FailureNetwork, Op: "post " + PathConvert, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Outcome{}, &Error{Kind: domain.FailureNetwork, Op: "read response", Err: err}
	}

	outcome, err := decodeOutcome(raw)
	if err != nil {
		c.log.Warn("undecodable conversion response",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(raw), errorSnippetLimit)),
			zap.Error(err),
		)
		return domain.Outcome{}, &Error{Kind: domain.FailureProtocol, Op: "decode response", Status: resp.StatusCode, Err: err}
	}
	return outcome, nil
}

func decodeOutcome(raw []byte) (domain.Outcome, error) {
	var decoded convertResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decoded.Success == nil {
		return domain.Outcome{}, fmt.Errorf("%w: missing success", ErrMalformedResponse)
	}
	if decoded.Message == nil {
		return domain.Outcome{}, fmt.Errorf("%w: missing message", ErrMalformedResponse)
	}

	if !*decoded.Success {
		return domain.Outcome{
			Succeeded: false,
			Message:   *decoded.Message,
			Kind:      domain.FailureServer,
		}, nil
	}

	if strings.TrimSpace(decoded.DownloadURL) == "" || strings.TrimSpace(decoded.Filename) == "" {
		return domain.Outcome{}, fmt.Errorf("%w: success without download_url/filename", ErrMalformedResponse)
	}
	return domain.Outcome{
		Succeeded: true,
		Message:   *decoded.Message,
		Download: &domain.DownloadRef{
			URL:      decoded.DownloadURL,
			Filename: decoded.Filename,
		},
	}, nil
}

func encodeMultipart(file domain.FileRef) (*bytes.Buffer, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open input file: %w", err)
	}
	defer func() { _ = src.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(FieldName, filepath.Base(file.Name))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copy input file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// Cleanup asks the service to reclaim stale artifacts. Callers treat it as
// best effort; the error only feeds logs.
func (c *Client) Cleanup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathCleanup), nil)
	if err != nil {
		return fmt.Errorf("build cleanup request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", PathCleanup, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("cleanup status %d", resp.StatusCode)
	}
	return nil
}

// Health checks that the service reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(PathHealth), nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", PathHealth, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d: %s", resp.StatusCode, truncate(string(raw), errorSnippetLimit))
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("parse health response: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("service status %q", body.Status)
	}
	return nil
}

// Download saves the artifact at locator into dir and returns the final path.
func (c *Client) Download(ctx context.Context, ref domain.DownloadRef, dir string) (string, error) {
	name := filepath.Base(strings.TrimSpace(ref.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.New("download filename is empty")
	}
	target, err := c.resolve(ref.URL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare destination directory: %w", err)
	}
	destinationPath := filepath.Join(dir, name)
	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close destination file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("move downloaded file into place: %w", err)
	}
	return destinationPath, nil
}

// resolve turns a possibly relative locator into an absolute service URL.
func (c *Client) resolve(locator string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	if ref.String() == "" {
		return "", errors.New("download url is empty")
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
