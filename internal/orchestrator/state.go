package orchestrator

// State is a step of the acquisition protocol.
type State int

const (
	StateIdle State = iota
	StateWaitingForRelease
	StateAuthenticating
	StatePolling
	StateSelecting
	StateResolvingPatient
	StateAcquiringCode
	StateSubmitting
	StateSucceeded
	StateExhausted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "Idle",
	StateWaitingForRelease: "WaitingForRelease",
	StateAuthenticating:    "Authenticating",
	StatePolling:           "Polling",
	StateSelecting:         "Selecting",
	StateResolvingPatient:  "ResolvingPatient",
	StateAcquiringCode:     "AcquiringCode",
	StateSubmitting:        "Submitting",
	StateSucceeded:         "Succeeded",
	StateExhausted:         "Exhausted",
	StateFailed:            "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether the run ends in this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateFailed
}
