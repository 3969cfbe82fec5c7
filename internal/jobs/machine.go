package jobs

import (
	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/progress"
	"pdf-to-word/internal/submit"
)

// InputKind names one stimulus fed to the state machine.
type InputKind string

const (
	InputFileSelected       InputKind = "file_selected"
	InputSubmitRequested    InputKind = "submit_requested"
	InputValidationRejected InputKind = "validation_rejected"
	InputValidationApproved InputKind = "validation_approved"
	InputSubmitDispatched   InputKind = "submit_dispatched"
	InputProgressTick       InputKind = "progress_tick"
	InputOutcomeArrived     InputKind = "outcome_arrived"
	InputReset              InputKind = "reset"
)

// Input is one user action or asynchronous completion.
type Input struct {
	Kind     InputKind
	JobID    string
	File     *domain.FileRef
	Progress float64
	Message  string
	Outcome  domain.Outcome
}

// Effect is a side effect the interpreter must run after a transition.
type Effect string

const (
	EffectValidate      Effect = "validate"
	EffectStartProgress Effect = "start_progress"
	EffectStopProgress  Effect = "stop_progress"
	EffectSubmit        Effect = "submit"
	EffectPresent       Effect = "present"
	EffectRecordStart   Effect = "record_start"
	EffectRecordFinish  Effect = "record_finish"
	EffectRender        Effect = "render"
)

// State is everything the controller owns for the current job.
type State struct {
	Status   domain.JobStatus
	JobID    string
	File     *domain.FileRef
	Progress float64
	Error    string
	Outcome  *domain.Outcome
}

// IdleState returns the clean initial state.
func IdleState() State {
	return State{Status: domain.JobStatusIdle}
}

// Next is the pure transition function. Inputs that do not apply to the
// current state return it unchanged with no effects.
func Next(s State, in Input) (State, []Effect) {
	switch in.Kind {
	case InputFileSelected:
		if s.Status != domain.JobStatusIdle {
			return s, nil
		}
		s.File = in.File
		s.Error = ""
		return s, []Effect{EffectRender}

	case InputSubmitRequested:
		// A finished job may be retried directly; the selection carries over.
		if in.JobID == "" || (s.Status != domain.JobStatusIdle && !s.Status.IsTerminal()) {
			return s, nil
		}
		s.Status = domain.JobStatusValidating
		s.JobID = in.JobID
		s.Error = ""
		s.Progress = 0
		s.Outcome = nil
		return s, []Effect{EffectValidate}

	case InputValidationRejected:
		if s.Status != domain.JobStatusValidating || in.JobID != s.JobID {
			return s, nil
		}
		s.Status = domain.JobStatusIdle
		s.JobID = ""
		s.Error = in.Message
		return s, []Effect{EffectRender}

	case InputValidationApproved:
		if s.Status != domain.JobStatusValidating || in.JobID != s.JobID {
			return s, nil
		}
		if in.File != nil {
			s.File = in.File
		}
		s.Status = domain.JobStatusSubmitting
		return s, []Effect{EffectRender, EffectRecordStart, EffectStartProgress, EffectSubmit}

	case InputSubmitDispatched:
		if s.Status != domain.JobStatusSubmitting || in.JobID != s.JobID {
			return s, nil
		}
		s.Status = domain.JobStatusAwaitingResult
		return s, []Effect{EffectRender}

	case InputProgressTick:
		if !inFlight(s.Status) || in.JobID != s.JobID {
			return s, nil
		}
		value := min(in.Progress, progress.Cap)
		if value <= s.Progress {
			return s, nil
		}
		s.Progress = value
		return s, []Effect{EffectRender}

	case InputOutcomeArrived:
		if !inFlight(s.Status) || in.JobID != s.JobID {
			return s, nil
		}
		outcome := normalizeOutcome(in.Outcome)
		s.Outcome = &outcome
		if outcome.Succeeded {
			s.Status = domain.JobStatusSucceeded
			s.Progress = 100
		} else {
			s.Status = domain.JobStatusFailed
		}
		return s, []Effect{EffectStopProgress, EffectPresent, EffectRecordFinish, EffectRender}

	case InputReset:
		if !s.Status.IsTerminal() {
			return s, nil
		}
		return IdleState(), []Effect{EffectRender}
	}
	return s, nil
}

// inFlight reports whether a submission is outstanding.
func inFlight(status domain.JobStatus) bool {
	return status == domain.JobStatusSubmitting || status == domain.JobStatusAwaitingResult
}

// normalizeOutcome enforces that a download reference exists iff the job succeeded.
func normalizeOutcome(outcome domain.Outcome) domain.Outcome {
	if !outcome.Succeeded {
		outcome.Download = nil
		return outcome
	}
	if outcome.Download == nil {
		return domain.Outcome{Succeeded: false, Message: submit.MessageProtocol, Kind: domain.FailureProtocol}
	}
	outcome.Kind = domain.FailureNone
	return outcome
}
