package telemetry

// Event names. Properties never carry draft text or report content.
const (
	EventCommandExecuted   = "command_executed"
	EventCommandError      = "command_error"
	EventServerStarted     = "server_started"
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisFailed    = "analysis_failed"
	EventArtifactOpened    = "artifact_opened"
	EventDraftSaved        = "draft_saved"
	EventSessionReset      = "session_reset"
)

// Events lists every event a client forwards.
var Events = []string{
	EventCommandExecuted, EventCommandError, EventServerStarted, EventAnalysisCompleted,
	EventAnalysisFailed, EventArtifactOpened, EventDraftSaved, EventSessionReset,
}
