package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/progress"
	"pdf-to-word/internal/submit"
	"pdf-to-word/internal/validate"
)

// ErrNotRunning is returned when an action reaches a controller whose loop
// has not been started or has already stopped.
var ErrNotRunning = errors.New("controller is not running")

const (
	LabelConvert    = "Convert to Word"
	LabelConverting = "Converting..."
	TextConverting  = "Converting..."
	TextComplete    = "Conversion complete!"

	recordTimeout = 5 * time.Second
)

// Submitter performs one conversion request.
type Submitter interface {
	Submit(ctx context.Context, file domain.FileRef) (domain.Outcome, error)
}

// Presenter renders a terminal outcome.
type Presenter interface {
	Present(outcome domain.Outcome) domain.ResultView
}

// Notifier sends the best-effort cleanup request issued on activation.
type Notifier interface {
	Cleanup(ctx context.Context) error
}

// Recorder persists job attempts. Failures are logged and never affect state.
type Recorder interface {
	RecordStarted(ctx context.Context, job domain.Job) error
	RecordFinished(ctx context.Context, job domain.Job, outcome domain.Outcome) error
}

// Ticker drives the synthetic progress estimate.
type Ticker interface {
	Start(onTick func(float64)) *progress.Handle
	Stop(h *progress.Handle)
}

type envelope struct {
	in    Input
	reply chan domain.View
}

// Controller interprets the job state machine on a single loop goroutine.
type Controller struct {
	submitter Submitter
	presenter Presenter
	notifier  Notifier
	recorder  Recorder
	ticker    Ticker
	validator func(*domain.FileRef) (domain.FileRef, error)
	newID     func() string
	bus       *EventBus
	onEvent   func(Event)
	log       *zap.Logger

	inputs   chan envelope
	ticks    chan Input
	done     chan struct{}
	stopped  chan struct{}
	running  atomic.Bool
	startMu  sync.Mutex
	started  bool
	doneOnce sync.Once

	// owned by the loop goroutine
	state  State
	handle *progress.Handle
	result *domain.ResultView

	mu       sync.RWMutex
	view     domain.View
	changed  chan struct{}
	watchers []func(domain.View)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithNotifier sets the target of the activation cleanup request.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithRecorder attaches a history recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithTicker replaces the default progress simulator.
func WithTicker(t Ticker) Option {
	return func(c *Controller) {
		if t != nil {
			c.ticker = t
		}
	}
}

// WithUploadLimit validates candidates against limit instead of the default.
func WithUploadLimit(limit int64) Option {
	return func(c *Controller) {
		c.validator = func(candidate *domain.FileRef) (domain.FileRef, error) {
			return validate.WithLimit(candidate, limit)
		}
	}
}

// WithValidator replaces input validation entirely.
func WithValidator(fn func(*domain.FileRef) (domain.FileRef, error)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.validator = fn
		}
	}
}

// WithIDGenerator overrides job ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithEventBus records job events in bus.
func WithEventBus(bus *EventBus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithEventHook is called with every event after it is published.
func WithEventHook(fn func(Event)) Option {
	return func(c *Controller) { c.onEvent = fn }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController builds an idle controller. Call Start before dispatching actions.
func NewController(submitter Submitter, presenter Presenter, opts ...Option) *Controller {
	c := &Controller{
		submitter: submitter,
		presenter: presenter,
		ticker:    progress.New(),
		validator: validate.Validate,
		newID:     uuid.NewString,
		log:       zap.NewNop(),
		inputs:    make(chan envelope),
		ticks:     make(chan Input, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		state:     IdleState(),
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.view = c.buildView()
	return c
}

// Start launches the event loop and fires the activation cleanup request.
// The loop exits when ctx is cancelled or Close is called.
func (c *Controller) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return errors.New("controller already started")
	}
	c.started = true
	c.running.Store(true)

	go c.loop(ctx)

	if c.notifier != nil {
		go func() {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
			defer cancel()
			if err := c.notifier.Cleanup(cleanupCtx); err != nil {
				c.log.Debug("activation cleanup failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Close stops the loop and the progress ticker. An in-flight submission is
// abandoned; its outcome is discarded.
func (c *Controller) Close() {
	c.doneOnce.Do(func() { close(c.done) })

	c.startMu.Lock()
	started := c.started
	c.startMu.Unlock()
	if started {
		<-c.stopped
	}
}

// OnChange registers fn to receive every published view. fn runs on the loop
// goroutine and must not call back into the controller.
func (c *Controller) OnChange(fn func(domain.View)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

// Select records the chosen file, or clears the selection when file is nil.
// Only accepted while idle.
func (c *Controller) Select(file *domain.FileRef) (domain.View, error) {
	return c.dispatch(Input{Kind: InputFileSelected, File: file})
}

// Submit requests conversion of the selected file under a fresh job ID.
// Ignored unless idle.
func (c *Controller) Submit() (domain.View, error) {
	return c.dispatch(Input{Kind: InputSubmitRequested, JobID: c.newID()})
}

// Reset clears a finished job. Ignored unless the job succeeded or failed.
func (c *Controller) Reset() (domain.View, error) {
	return c.dispatch(Input{Kind: InputReset})
}

// Snapshot returns the most recently published view.
func (c *Controller) Snapshot() domain.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Wait blocks until the published view reaches a terminal status.
func (c *Controller) Wait(ctx context.Context) (domain.View, error) {
	for {
		c.mu.RLock()
		view, changed := c.view, c.changed
		c.mu.RUnlock()
		if view.Status.IsTerminal() {
			return view, nil
		}

		select {
		case <-changed:
		case <-c.stopped:
			return c.Snapshot(), ErrNotRunning
		case <-ctx.Done():
			return view, ctx.Err()
		}
	}
}

// dispatch hands in to the loop and returns the view published after it was applied.
func (c *Controller) dispatch(in Input) (domain.View, error) {
	if !c.running.Load() {
		return c.Snapshot(), ErrNotRunning
	}

	env := envelope{in: in, reply: make(chan domain.View, 1)}
	select {
	case c.inputs <- env:
	case <-c.stopped:
		return c.Snapshot(), ErrNotRunning
	}

	select {
	case view := <-env.reply:
		return view, nil
	case <-c.stopped:
		return c.Snapshot(), ErrNotRunning
	}
}

// post delivers an asynchronous completion to the loop unless it has stopped.
func (c *Controller) post(in Input) {
	select {
	case c.inputs <- envelope{in: in}:
	case <-c.stopped:
	}
}

// postTick never blocks the ticker. A tick dropped because one is already
// queued is superseded by the next one.
func (c *Controller) postTick(in Input) {
	select {
	case c.ticks <- in:
	default:
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.stopped)
	defer c.running.Store(false)
	defer c.stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case env := <-c.inputs:
			c.apply(env.in)
			if env.reply != nil {
				env.reply <- c.Snapshot()
			}
		case in := <-c.ticks:
			c.apply(in)
		}
	}
}

// apply runs one transition and interprets its effects.
func (c *Controller) apply(in Input) {
	next, effects := Next(c.state, in)
	if len(effects) == 0 {
		if in.Kind != InputProgressTick {
			c.log.Debug("input ignored", zap.String("input", string(in.Kind)), zap.String("status", string(c.state.Status)))
		}
		return
	}

	c.state = next
	if next.Outcome == nil {
		c.result = nil
	}
	for _, effect := range effects {
		c.execute(effect)
	}
}

func (c *Controller) execute(effect Effect) {
	switch effect {
	case EffectValidate:
		c.validateSelection()
	case EffectStartProgress:
		c.startTicker()
	case EffectStopProgress:
		c.stopTicker()
	case EffectSubmit:
		c.launchSubmission()
	case EffectPresent:
		if c.state.Outcome != nil {
			view := c.presenter.Present(*c.state.Outcome)
			c.result = &view
		}
	case EffectRecordStart:
		c.recordStarted()
	case EffectRecordFinish:
		c.recordFinished()
	case EffectRender:
		c.render()
	default:
		c.log.Warn("unknown effect", zap.String("effect", string(effect)))
	}
}

func (c *Controller) validateSelection() {
	jobID := c.state.JobID
	file, err := c.validator(c.state.File)
	if err != nil {
		c.log.Info("validation rejected", zap.String("job_id", jobID), zap.Error(err))
		c.apply(Input{Kind: InputValidationRejected, JobID: jobID, Message: err.Error()})
		return
	}
	c.apply(Input{Kind: InputValidationApproved, JobID: jobID, File: &file})
}

func (c *Controller) startTicker() {
	c.stopTicker()
	jobID := c.state.JobID
	c.handle = c.ticker.Start(func(value float64) {
		c.postTick(Input{Kind: InputProgressTick, JobID: jobID, Progress: value})
	})
}

func (c *Controller) stopTicker() {
	if c.handle == nil {
		return
	}
	c.ticker.Stop(c.handle)
	c.handle = nil
}

// launchSubmission runs the request off the loop and feeds its outcome back.
func (c *Controller) launchSubmission() {
	jobID := c.state.JobID
	file := *c.state.File
	log := c.log.With(zap.String("job_id", jobID), zap.String("file", file.Name))

	go func() {
		outcome, err := c.submitter.Submit(context.Background(), file)
		if err != nil {
			log.Warn("conversion request failed", zap.Error(err))
			outcome = submit.FailureOutcome(err)
		} else if !outcome.Succeeded {
			log.Info("conversion rejected by service", zap.String("message", outcome.Message))
		} else {
			log.Info("conversion succeeded")
		}
		c.post(Input{Kind: InputOutcomeArrived, JobID: jobID, Outcome: outcome})
	}()

	c.apply(Input{Kind: InputSubmitDispatched, JobID: jobID})
}

func (c *Controller) currentJob() domain.Job {
	return domain.Job{ID: c.state.JobID, File: c.state.File, Status: c.state.Status}
}

func (c *Controller) recordStarted() {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.recorder.RecordStarted(ctx, c.currentJob()); err != nil {
		c.log.Warn("record job start", zap.String("job_id", c.state.JobID), zap.Error(err))
	}
}

func (c *Controller) recordFinished() {
	if c.recorder == nil || c.state.Outcome == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.recorder.RecordFinished(ctx, c.currentJob(), *c.state.Outcome); err != nil {
		c.log.Warn("record job outcome", zap.String("job_id", c.state.JobID), zap.Error(err))
	}
}

// render publishes the current view to watchers and the event bus.
func (c *Controller) render() {
	view := c.buildView()

	c.mu.Lock()
	prev := c.view
	c.view = view
	close(c.changed)
	c.changed = make(chan struct{})
	watchers := slices.Clone(c.watchers)
	c.mu.Unlock()

	c.emitEvents(prev, view)
	for _, fn := range watchers {
		fn(view)
	}
}

func (c *Controller) buildView() domain.View {
	s := c.state
	view := domain.View{
		Status:       s.Status,
		JobID:        s.JobID,
		Progress:     s.Progress,
		Error:        s.Error,
		TriggerLabel: LabelConvert,
	}
	if s.File != nil {
		view.FileName = s.File.Name
		view.FileSize = humanize.IBytes(uint64(max(s.File.Size, 0)))
	}

	switch {
	case s.Status.IsActive():
		view.TriggerLabel = LabelConverting
		if s.Status != domain.JobStatusValidating {
			view.ProgressVisible = true
			view.ProgressText = TextConverting
		}
	case s.Status == domain.JobStatusSucceeded:
		view.TriggerEnabled = true
		view.ProgressText = TextComplete
	default:
		view.TriggerEnabled = true
	}

	if c.result != nil {
		result := *c.result
		result.ProgressVisible = false
		view.Result = &result
	}
	return view
}

func (c *Controller) emitEvents(prev, view domain.View) {
	if view.Status != prev.Status {
		c.publish(Event{
			JobID:   view.JobID,
			Type:    EventTypeStatus,
			Status:  view.Status,
			Message: statusMessage(view),
		})
	}
	if view.ProgressVisible && view.Progress != prev.Progress {
		c.publish(Event{
			JobID:    view.JobID,
			Type:     EventTypeProgress,
			Status:   view.Status,
			Progress: view.Progress,
		})
	}
	if view.Error != "" && view.Error != prev.Error {
		c.publish(Event{
			JobID:   prev.JobID,
			Type:    EventTypeError,
			Status:  view.Status,
			Message: view.Error,
		})
	}
	if view.Result != nil && prev.Result == nil && c.state.Outcome != nil {
		outcome := c.state.Outcome
		event := Event{
			JobID:   view.JobID,
			Type:    EventTypeResult,
			Status:  view.Status,
			Message: outcome.Message,
			Kind:    outcome.Kind,
		}
		if outcome.Download != nil {
			event.DownloadURL = outcome.Download.URL
			event.Filename = outcome.Download.Filename
		}
		c.publish(event)
	}
}

func (c *Controller) publish(event Event) {
	if c.bus != nil {
		event = c.bus.Publish(event)
	}
	if c.onEvent != nil {
		c.onEvent(event)
	}
}

func statusMessage(view domain.View) string {
	switch view.Status {
	case domain.JobStatusIdle:
		return "Ready"
	case domain.JobStatusValidating:
		return "Checking selected file"
	case domain.JobStatusSubmitting:
		return fmt.Sprintf("Uploading %s", view.FileName)
	case domain.JobStatusAwaitingResult:
		return "Waiting for the conversion service"
	case domain.JobStatusSucceeded:
		return TextComplete
	case domain.JobStatusFailed:
		return "Conversion failed"
	default:
		return string(view.Status)
	}
}
