package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyLine is returned by ReadLine when the peer closes the connection
// before sending anything.
var ErrEmptyLine = errors.New("connection closed before a line was received")

// DecodeError is returned when a line cannot be decoded into a Request or
// Response.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type requestEnvelope struct {
	Action ActionType `json:"action"`
	Cwd    string     `json:"cwd"`
}

type responseEnvelope struct {
	Action ResponseType `json:"action"`
}

// MarshalRequest encodes req as a single JSON object without the trailing
// newline.
func MarshalRequest(req Request) ([]byte, error) {
	if req.Action == nil {
		return nil, errors.New("request has no action")
	}

	return flatten(req.Action, map[string]any{
		"action": req.Action.Type(),
		"cwd":    req.Cwd,
	})
}

// UnmarshalRequest decodes a single JSON object into a Request. Any failure
// is reported as a *DecodeError.
func UnmarshalRequest(data []byte) (Request, error) {
	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Request{}, &DecodeError{Err: err}
	}

	var (
		action Action
		err    error
	)

	switch env.Action {
	case ActionList:
		action, err = decodeAs[ListAction](data)
	case ActionRegister:
		action, err = decodeAs[RegisterAction](data)
	case ActionRun:
		action, err = decodeAs[RunAction](data)
	case ActionKill:
		action, err = decodeAs[KillAction](data)
	case "":
		err = errors.New("missing action")
	default:
		err = fmt.Errorf("unknown action %q", env.Action)
	}

	if err != nil {
		return Request{}, &DecodeError{Err: err}
	}

	return Request{Action: action, Cwd: env.Cwd}, nil
}

// MarshalResponse encodes resp as a single JSON object without the trailing
// newline.
func MarshalResponse(resp Response) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("nil response")
	}

	return flatten(resp, map[string]any{"action": resp.Type()})
}

// UnmarshalResponse decodes a single JSON object into a Response. Any
// failure is reported as a *DecodeError.
func UnmarshalResponse(data []byte) (Response, error) {
	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}

	var (
		resp Response
		err  error
	)

	switch env.Action {
	case ResponseListJobs:
		resp, err = decodeAs[ListJobsResponse](data)
	case ResponseListSessions:
		resp, err = decodeAs[ListSessionsResponse](data)
	case ResponseRegister:
		resp, err = decodeAs[RegisterResponse](data)
	case ResponseKill:
		resp, err = decodeAs[KillResponse](data)
	case ResponseError:
		resp, err = decodeAs[ErrorResponse](data)
	case "":
		err = errors.New("missing action")
	default:
		err = fmt.Errorf("unknown response %q", env.Action)
	}

	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return resp, nil
}

// WriteRequest writes req followed by a newline.
func WriteRequest(w io.Writer, req Request) error {
	data, err := MarshalRequest(req)
	if err != nil {
		return err
	}

	return writeLine(w, data)
}

// WriteResponse writes resp followed by a newline.
func WriteResponse(w io.Writer, resp Response) error {
	data, err := MarshalResponse(resp)
	if err != nil {
		return err
	}

	return writeLine(w, data)
}

// ReadRequest reads one line from r and decodes it.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := ReadLine(r)
	if err != nil {
		return Request{}, err
	}

	return UnmarshalRequest(line)
}

// ReadResponse reads one line from r and decodes it.
func ReadResponse(r *bufio.Reader) (Response, error) {
	line, err := ReadLine(r)
	if err != nil {
		return nil, err
	}

	return UnmarshalResponse(line)
}

// ReadLine reads up to and including the next newline. A final line without
// a newline is accepted when the peer closes after writing it.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			return nil, ErrEmptyLine
		}
	}

	return line, nil
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	return nil
}

// flatten merges the JSON object encoding of v with extra fields.
func flatten(v any, extra map[string]any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("flatten %T: %w", v, err)
	}

	for k, e := range extra {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", k, err)
		}

		fields[k] = raw
	}

	return json.Marshal(fields)
}

func decodeAs[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}

	return v, nil
}
