package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nixpig/jobctl/internal/liveness"
	"github.com/nixpig/jobctl/internal/protocol"
	"github.com/nixpig/jobctl/internal/registry"
)

func (s *Server) dispatch(logger *slog.Logger, req protocol.Request) protocol.Response {
	switch action := req.Action.(type) {
	case protocol.ListAction:
		if action.Dir == "" {
			return protocol.ListSessionsResponse{
				Sessions: s.toWireSessions(s.registry.ListSessions()),
			}
		}

		return s.listJobs(filepath.Clean(action.Dir))

	case protocol.RegisterAction:
		return s.register(logger, req.Cwd, action)

	case protocol.RunAction:
		return s.run(logger, req.Cwd, action)

	case protocol.KillAction:
		return protocol.KillResponse{}

	default:
		logger.Error("unhandled action", "action", req.Action.Type())

		return internalError()
	}
}

func (s *Server) listJobs(dir string) protocol.Response {
	jobs, err := s.registry.ListJobs(dir)
	if err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			return protocol.ErrorResponse{
				Message: fmt.Sprintf("%s: %s", err, dir),
				Code:    protocol.CodeNotFound,
			}
		}

		return internalError()
	}

	outputs := make([]protocol.JobOutput, 0, len(jobs))
	for _, j := range jobs {
		outputs = append(outputs, protocol.JobOutput{
			PID:       j.PID,
			Command:   j.Command,
			Number:    j.Slot,
			Suspended: humanize.RelTime(j.RegisteredAt, s.now(), "ago", "from now"),
		})
	}

	return protocol.ListJobsResponse{Jobs: outputs}
}

func (s *Server) register(
	logger *slog.Logger,
	cwd string,
	action protocol.RegisterAction,
) protocol.Response {
	dir, errResp := checkCwd(cwd)
	if errResp != nil {
		return errResp
	}

	if action.PID <= 0 {
		return badRequest("pid must be positive")
	}

	command := action.Command
	if command == "" {
		name, err := s.namer.Name(action.PID)
		if err != nil {
			if errors.Is(err, liveness.ErrProcessNotFound) {
				return badRequest(fmt.Sprintf("Did not find process with pid %d", action.PID))
			}

			logger.Warn("lookup process name", "pid", action.PID, "err", err)
		}

		command = name
	}

	job, added := s.registry.Register(dir, registry.Job{
		PID:          action.PID,
		Command:      command,
		Slot:         action.Number,
		RegisteredAt: s.now(),
	})

	if added {
		logger.Info("registered job", "dir", dir, "pid", job.PID, "command", job.Command)
	} else {
		logger.Info("job already registered", "dir", dir, "pid", job.PID)
	}

	return protocol.RegisterResponse{Job: toWireJob(job)}
}

func (s *Server) run(
	logger *slog.Logger,
	cwd string,
	action protocol.RunAction,
) protocol.Response {
	dir, errResp := checkCwd(cwd)
	if errResp != nil {
		return errResp
	}

	if action.Command == "" {
		return badRequest("command cannot be empty")
	}

	p, err := s.launcher.Start(dir, action.Command)
	if err != nil {
		logger.Error("spawn job", "dir", dir, "command", action.Command, "err", err)

		return protocol.ErrorResponse{
			Message: fmt.Sprintf("Failed to spawn process: %v", err),
			Code:    protocol.CodeInternal,
		}
	}

	job, _ := s.registry.Register(dir, registry.Job{
		PID:          p.PID,
		Command:      action.Command,
		RegisteredAt: s.now(),
	})

	logger.Info("spawned job", "dir", dir, "pid", job.PID, "log", p.LogPath)

	return protocol.RegisterResponse{Job: toWireJob(job)}
}

func (s *Server) toWireSessions(sessions []registry.Session) []protocol.Session {
	out := make([]protocol.Session, 0, len(sessions))

	for _, session := range sessions {
		jobs := make([]protocol.Job, 0, len(session.Jobs))
		for _, j := range session.Jobs {
			jobs = append(jobs, toWireJob(j))
		}

		out = append(out, protocol.Session{Jobs: jobs, Directory: session.Directory})
	}

	return out
}

func toWireJob(j registry.Job) protocol.Job {
	return protocol.Job{
		PID:       j.PID,
		Command:   j.Command,
		Number:    j.Slot,
		Suspended: j.RegisteredAt.Unix(),
	}
}

// checkCwd returns the cleaned cwd, or an error response if it cannot key a
// session.
func checkCwd(cwd string) (string, protocol.Response) {
	if cwd == "" || !filepath.IsAbs(cwd) {
		return "", badRequest(fmt.Sprintf("cwd must be an absolute path: %q", cwd))
	}

	return filepath.Clean(cwd), nil
}

func badRequest(msg string) protocol.ErrorResponse {
	return protocol.ErrorResponse{Message: msg, Code: protocol.CodeBadRequest}
}

func internalError() protocol.ErrorResponse {
	return protocol.ErrorResponse{Message: "internal server error", Code: protocol.CodeInternal}
}
