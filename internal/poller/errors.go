package poller

import "errors"

// Stage names the step of a polling cycle that failed.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageValidate  Stage = "validate"
	StageTranslate Stage = "translate"
	StageNotify    Stage = "notify"
	StageUnknown   Stage = "unknown"
)

// CycleError tags a cycle failure with its stage. Every stage is handled by
// the same policy; the tag only feeds logs and metrics.
type CycleError struct {
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *CycleError) Unwrap() error { return e.Err }

func stageOf(err error) (Stage, error) {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Stage, ce.Err
	}
	return StageUnknown, err
}

// FailureMessage is the chat text reported for a failed cycle.
func FailureMessage(cause error) string {
	return "Program failure: " + cause.Error()
}
