package protocol

// ActionType discriminates the variants of Action on the wire.
type ActionType string

const (
	ActionList     ActionType = "list"
	ActionRegister ActionType = "register"
	ActionRun      ActionType = "run"
	ActionKill     ActionType = "kill"
)

// Action is the action-specific part of a Request. It is implemented only
// by the types in this package.
type Action interface {
	Type() ActionType
	isAction()
}

// ListAction lists every session, or the jobs of one directory when Dir is
// set.
type ListAction struct {
	Dir string `json:"dir,omitempty"`
}

// RegisterAction tracks an existing process as a job of the request cwd.
// When Command is empty the daemon looks up the process name.
type RegisterAction struct {
	PID     int32  `json:"pid"`
	Number  uint8  `json:"number"`
	Command string `json:"command,omitempty"`
}

// RunAction spawns Command through the shell in the request cwd and tracks
// it as a job.
type RunAction struct {
	Command string `json:"command"`
}

// KillAction asks the daemon to terminate after responding.
type KillAction struct{}

func (ListAction) Type() ActionType     { return ActionList }
func (RegisterAction) Type() ActionType { return ActionRegister }
func (RunAction) Type() ActionType      { return ActionRun }
func (KillAction) Type() ActionType     { return ActionKill }

func (ListAction) isAction()     {}
func (RegisterAction) isAction() {}
func (RunAction) isAction()      {}
func (KillAction) isAction()     {}

// Request is sent from the client to the daemon. On the wire the Action
// fields are flattened alongside "action" and "cwd".
type Request struct {
	Action Action
	Cwd    string
}
