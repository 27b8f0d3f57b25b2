package liveness

// State is the classification of a process id as reported by the OS
// process table.
type State int

const (
	// StateUnknown indicates the process exists but the OS reported a status
	// that could not be classified, or the status could not be read at all.
	StateUnknown State = iota

	// StateNotFound indicates no process with the pid exists.
	StateNotFound

	// StateSuspended indicates the process is stopped, e.g. by SIGTSTP from
	// the shell's job control.
	StateSuspended

	// StateRunning indicates the process is active: running, sleeping, idle,
	// waiting or blocked.
	StateRunning

	// StateExited indicates the process has exited and is waiting to be
	// reaped (zombie).
	StateExited
)

// NOTE: This slice needs to be kept in sync with the State values above.
var states = []string{
	"Unknown",
	"NotFound",
	"Suspended",
	"Running",
	"Exited",
}

// String implements the Stringer interface for State.
func (s State) String() string {
	if int(s) < 0 || int(s) >= len(states) {
		return states[0]
	}

	return states[s]
}

// Alive reports whether a job in State s should be retained by the registry.
//
// Suspended processes are alive. Unknown is treated as alive too: the
// process exists but the OS gave an ambiguous answer, and dropping a job the
// user can still resume is worse than listing one extra entry. Everything
// else is dead.
func (s State) Alive() bool {
	return s == StateSuspended || s == StateUnknown
}
