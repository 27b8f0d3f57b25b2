package protocol

// ResponseType discriminates the variants of Response on the wire.
type ResponseType string

const (
	ResponseListJobs     ResponseType = "list_jobs"
	ResponseListSessions ResponseType = "list_sessions"
	ResponseRegister     ResponseType = "register"
	ResponseKill         ResponseType = "kill"
	ResponseError        ResponseType = "error"
)

// ErrorCode classifies an ErrorResponse so clients can tell outcomes apart
// without parsing messages.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "not_found"
	CodeBadRequest       ErrorCode = "bad_request"
	CodePermissionDenied ErrorCode = "permission_denied"
	CodeInternal         ErrorCode = "internal"
)

// Response is sent from the daemon back to the client. It is implemented
// only by the types in this package.
type Response interface {
	Type() ResponseType
	isResponse()
}

// Job is a tracked job as stored by the daemon. Suspended is the Unix time
// in seconds at which the job was registered.
type Job struct {
	PID       int32  `json:"pid"`
	Command   string `json:"command"`
	Number    uint8  `json:"number"`
	Suspended int64  `json:"suspended"`
}

// JobOutput is a tracked job prepared for display. Suspended is a
// humanised age such as "3 minutes ago".
type JobOutput struct {
	PID       int32  `json:"pid"`
	Command   string `json:"command"`
	Number    uint8  `json:"number"`
	Suspended string `json:"suspended"`
}

// Session is the set of jobs of one directory.
type Session struct {
	Jobs      []Job  `json:"jobs"`
	Directory string `json:"directory"`
}

type ListJobsResponse struct {
	Jobs []JobOutput `json:"jobs"`
}

type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type RegisterResponse struct {
	Job Job `json:"job"`
}

type KillResponse struct{}

type ErrorResponse struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code,omitempty"`
}

func (ListJobsResponse) Type() ResponseType     { return ResponseListJobs }
func (ListSessionsResponse) Type() ResponseType { return ResponseListSessions }
func (RegisterResponse) Type() ResponseType     { return ResponseRegister }
func (KillResponse) Type() ResponseType         { return ResponseKill }
func (ErrorResponse) Type() ResponseType        { return ResponseError }

func (ListJobsResponse) isResponse()     {}
func (ListSessionsResponse) isResponse() {}
func (RegisterResponse) isResponse()     {}
func (KillResponse) isResponse()         {}
func (ErrorResponse) isResponse()        {}
