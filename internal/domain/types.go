package domain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// JobStatus tracks each controller state for a single conversion job.
type JobStatus string

const (
	JobStatusIdle           JobStatus = "idle"
	JobStatusValidating     JobStatus = "validating"
	JobStatusSubmitting     JobStatus = "submitting"
	JobStatusAwaitingResult JobStatus = "awaiting_result"
	JobStatusSucceeded      JobStatus = "succeeded"
	JobStatusFailed         JobStatus = "failed"
)

// IsActive reports whether the status belongs to an in-flight job.
func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusValidating, JobStatusSubmitting, JobStatusAwaitingResult:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a finished job outcome.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// FailureKind classifies why a job ended in the failed state.
type FailureKind string

const (
	FailureNone     FailureKind = ""
	FailureServer   FailureKind = "server"
	FailureNetwork  FailureKind = "network"
	FailureProtocol FailureKind = "protocol"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ServiceURL            string   `json:"serviceUrl" yaml:"serviceUrl"`
	OutputDir             string   `json:"outputDir" yaml:"outputDir"`
	RequestTimeoutSeconds int      `json:"requestTimeoutSeconds" yaml:"requestTimeoutSeconds"`
	MaxUploadSize         ByteSize `json:"maxUploadSize" yaml:"maxUploadSize"`
	HistoryPath           string   `json:"historyPath" yaml:"historyPath"`
}

// RequestTimeout returns the configured HTTP timeout for a conversion request.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// FileRef references one candidate input file.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path,omitempty"`

	open func() (io.ReadCloser, error)
}

// NewFileRef builds a file reference backed by an arbitrary content opener.
func NewFileRef(name string, size int64, open func() (io.ReadCloser, error)) FileRef {
	return FileRef{Name: name, Size: size, open: open}
}

// FileFromPath stats a local file and returns a reference that opens it lazily.
func FileFromPath(path string) (FileRef, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return FileRef{}, errors.New("file path is empty")
	}

	info, err := os.Stat(clean)
	if err != nil {
		return FileRef{}, fmt.Errorf("stat input file: %w", err)
	}
	if info.IsDir() {
		return FileRef{}, fmt.Errorf("input path is a directory: %s", clean)
	}

	return FileRef{
		Name: filepath.Base(clean),
		Size: info.Size(),
		Path: clean,
		open: func() (io.ReadCloser, error) {
			return os.Open(clean)
		},
	}, nil
}

// Open returns a reader over the file content.
func (f FileRef) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %q has no content handle", f.Name)
	}
	return f.open()
}

// DownloadRef locates a converted artifact on the conversion service.
type DownloadRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Outcome is the authoritative terminal result of one conversion job.
type Outcome struct {
	Succeeded bool         `json:"succeeded"`
	Message   string       `json:"message"`
	Download  *DownloadRef `json:"download,omitempty"`
	Kind      FailureKind  `json:"kind,omitempty"`
}

// Job stores the current job identity, input and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	File   *FileRef  `json:"file,omitempty"`
	Status JobStatus `json:"status"`
}
