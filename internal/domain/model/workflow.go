package model

// WorkflowState is the phase of a review submission run.
type WorkflowState string

// Workflow phases. A run moves idle → requesting → requested → fetching →
// fetched; error is reachable from requesting or fetching, and idle from
// any state via explicit cancellation.
const (
	WorkflowIdle       WorkflowState = "idle"
	WorkflowRequesting WorkflowState = "requesting"
	WorkflowRequested  WorkflowState = "requested"
	WorkflowFetching   WorkflowState = "fetching"
	WorkflowFetched    WorkflowState = "fetched"
	WorkflowError      WorkflowState = "error"
)

// InFlight reports whether a network call may be outstanding in this state.
func (s WorkflowState) InFlight() bool {
	return s == WorkflowRequesting || s == WorkflowRequested || s == WorkflowFetching
}

// Terminal reports whether the run has finished (successfully or not).
func (s WorkflowState) Terminal() bool {
	return s == WorkflowFetched || s == WorkflowError || s == WorkflowIdle
}
