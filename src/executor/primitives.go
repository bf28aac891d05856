package executor

// State is a state of the orchestration loop.
type State int

const (
	// StateIdle means input was appended and a response is due.
	StateIdle State = iota
	// StateAwaitingModel means the model is being invoked.
	StateAwaitingModel
	// StateDispatchingTools means the tool requests of the last response are being run.
	StateDispatchingTools
	// StateDone means the model answered without tool requests, or failed.
	StateDone
	// StateIterationLimitReached means the loop stopped at the iteration ceiling.
	StateIterationLimitReached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateDispatchingTools:
		return "dispatching_tools"
	case StateDone:
		return "done"
	case StateIterationLimitReached:
		return "iteration_limit_reached"
	}
	return "unknown"
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateIterationLimitReached
}

// Gate labels recorded for each tool execution.
const (
	GateNone      = ""
	GateConfirmed = "confirmed"
	GateAdvisory  = "advisory"
	GateBlocked   = "blocked"
	GateUnknown   = "unknown_tool"
)
