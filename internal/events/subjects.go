package events

const (
	SubjectIndicatorsSubmitted = "solvency.indicators.submitted"
	SubjectRunAny              = "solvency.run.>"
	SubjectScoreAny            = "solvency.score.>"

	StreamName   = "SOLVENCY_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectRunStarted(runID string) string   { return "solvency.run." + runID + ".started" }
func SubjectRunCompleted(runID string) string { return "solvency.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "solvency.run." + runID + ".failed" }

// SubjectScoreEmitted carries one ScoreResult, keyed by IBGE municipality code.
func SubjectScoreEmitted(municipalityCode string) string {
	return "solvency.score." + municipalityCode + ".emitted"
}
