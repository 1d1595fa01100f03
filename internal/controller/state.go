package controller

// FrontendState is the Controller's top-level state, mirroring
// basicfrontend.py's FrontendState enum.
type FrontendState int

const (
	StateStop FrontendState = iota
	StateSwitch
	StateRestart
	StatePrepareShutdown
	StateQuit
)

func (s FrontendState) String() string {
	switch s {
	case StateStop:
		return "stop"
	case StateSwitch:
		return "switch"
	case StateRestart:
		return "restart"
	case StatePrepareShutdown:
		return "prepare_shutdown"
	case StateQuit:
		return "quit"
	default:
		return "unknown"
	}
}
