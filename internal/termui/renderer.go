package termui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"pdf-to-word/internal/domain"
)

const barWidth = 40

// Renderer draws controller views to a terminal.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	bar    bubblesprogress.Model
	frames []string
	frame  int
	plain  bool

	last       domain.JobStatus
	lastError  string
	lineActive bool
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithPlain disables in-place redraws, for output that is not a terminal.
func WithPlain(plain bool) Option {
	return func(r *Renderer) { r.plain = plain }
}

// New creates a renderer writing to out.
func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out: out,
		bar: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(barWidth),
			bubblesprogress.WithoutPercentage(),
		),
		frames: spinner.Dot.Frames,
		last:   domain.JobStatusIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws one view. Safe to register as a controller change hook.
func (r *Renderer) Render(view domain.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if view.Error != "" && view.Error != r.lastError {
		r.endLine()
		fmt.Fprintf(r.out, "error: %s\n", view.Error)
	}
	r.lastError = view.Error

	switch {
	case view.ProgressVisible:
		r.drawProgress(view)
	case view.Status.IsTerminal() && r.last != view.Status:
		r.endLine()
		r.drawResult(view)
	}
	r.last = view.Status
}

func (r *Renderer) drawProgress(view domain.View) {
	if r.plain {
		if r.last != view.Status {
			fmt.Fprintf(r.out, "%s %s\n", view.ProgressText, describeFile(view))
		}
		return
	}

	frame := r.frames[r.frame%len(r.frames)]
	r.frame++
	fmt.Fprintf(r.out, "\r%s %s %s %3.0f%%", frame, describeFile(view), r.bar.ViewAs(view.Progress/100), view.Progress)
	r.lineActive = true
}

func (r *Renderer) drawResult(view domain.View) {
	if view.Result == nil {
		fmt.Fprintf(r.out, "%s\n", view.Status)
		return
	}

	mark := "x"
	if view.Result.Indicator == domain.IndicatorSuccess {
		mark = "✓"
		if !r.plain {
			fmt.Fprintf(r.out, "%s 100%%\n", r.bar.ViewAs(1))
		}
	}
	fmt.Fprintf(r.out, "%s %s\n", mark, view.Result.Title)
	fmt.Fprintf(r.out, "  %s\n", view.Result.Message)
	if view.Result.DownloadVisible {
		fmt.Fprintf(r.out, "  download: %s (%s)\n", view.Result.DownloadURL, view.Result.DownloadName)
	}
}

// endLine terminates an in-place progress line before other output.
func (r *Renderer) endLine() {
	if r.lineActive {
		fmt.Fprintln(r.out)
		r.lineActive = false
	}
}

func describeFile(view domain.View) string {
	parts := []string{view.FileName}
	if view.FileSize != "" {
		parts = append(parts, "("+view.FileSize+")")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
