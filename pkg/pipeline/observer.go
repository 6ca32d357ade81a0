package pipeline

import "time"

// Stage names reported to an Observer and used as span names.
const (
	StageRead      = "read"
	StageSummarize = "summarize"
	StagePersist   = "persist"
	StageRender    = "render"
)

// Observer receives timing and outcome events from the controller.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveStage(stage string, d time.Duration, err error)
	RecordIngestion(outcome string)
	RecordReport(format string, outcome string)
}

// Outcome labels passed to RecordIngestion and RecordReport.
const (
	OutcomeSuccess   = "success"
	OutcomeMalformed = "malformed"
	OutcomeSchema    = "schema"
	OutcomeEmpty     = "empty"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}
func (nopObserver) RecordIngestion(string)                    {}
func (nopObserver) RecordReport(string, string)               {}
