package present

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pdf-to-word/internal/domain"
)

const (
	TitleSuccess  = "Conversion Successful!"
	TitleFailure  = "Conversion Failed"
	successSuffix = " Your file is ready to download."

	// DefaultCleanupTimeout bounds the fire-and-forget cleanup request.
	DefaultCleanupTimeout = 30 * time.Second
)

// Notifier sends the best-effort housekeeping request after a success.
type Notifier interface {
	Cleanup(ctx context.Context) error
}

// Presenter maps terminal outcomes to result views.
type Presenter struct {
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
}

// Option customizes a Presenter.
type Option func(*Presenter)

// WithLogger attaches a logger for cleanup failures.
func WithLogger(log *zap.Logger) Option {
	return func(p *Presenter) {
		if log != nil {
			p.log = log
		}
	}
}

// WithCleanupTimeout overrides DefaultCleanupTimeout.
func WithCleanupTimeout(d time.Duration) Option {
	return func(p *Presenter) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a presenter. notifier may be nil to disable cleanup.
func New(notifier Notifier, opts ...Option) *Presenter {
	p := &Presenter{
		notifier: notifier,
		log:      zap.NewNop(),
		timeout:  DefaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present renders outcome and, on success only, fires the cleanup
// notification without waiting for it.
func (p *Presenter) Present(outcome domain.Outcome) domain.ResultView {
	if !outcome.Succeeded {
		return domain.ResultView{
			Indicator:            domain.IndicatorFailure,
			Title:                TitleFailure,
			Message:              outcome.Message,
			NewConversionVisible: true,
		}
	}

	view := domain.ResultView{
		Indicator:            domain.IndicatorSuccess,
		Title:                TitleSuccess,
		Message:              outcome.Message + successSuffix,
		NewConversionVisible: true,
	}
	if outcome.Download != nil {
		view.DownloadVisible = true
		view.DownloadURL = outcome.Download.URL
		view.DownloadName = outcome.Download.Filename
	}
	p.Notify()
	return view
}

// Notify fires one cleanup request on a detached goroutine.
func (p *Presenter) Notify() {
	if p.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.notifier.Cleanup(ctx); err != nil {
			p.log.Warn("cleanup notification failed", zap.Error(err))
			return
		}
		p.log.Debug("cleanup notification sent")
	}()
}
