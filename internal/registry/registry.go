package registry

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Liveness decides whether a tracked process is still worth keeping.
type Liveness interface {
	Alive(pid int32) bool
}

// Job is a tracked process. PID identifies it within its Session.
type Job struct {
	PID          int32
	Command      string
	Slot         uint8
	RegisteredAt time.Time
}

// Session is the set of jobs suspended in one directory.
type Session struct {
	Directory string
	Jobs      []Job
}

// Registry maps directories to their Session.
type Registry struct {
	// NOTE: A Session is only ever present while it holds at least one Job.
	// Register creates it with its first Job and cleanup deletes it as soon as
	// its last Job is pruned.
	sessions map[string]*Session
	liveness Liveness

	mu sync.Mutex
}

// New creates an empty Registry that prunes jobs using liveness.
func New(liveness Liveness) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		liveness: liveness,
	}
}

// ListSessions prunes dead jobs and returns a copy of every remaining
// Session, ordered by directory.
func (r *Registry) ListSessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanup()

	dirs := slices.Sorted(maps.Keys(r.sessions))

	sessions := make([]Session, 0, len(dirs))
	for _, dir := range dirs {
		sessions = append(sessions, r.sessions[dir].clone())
	}

	return sessions
}

// ListJobs prunes dead jobs and returns a copy of the jobs of the Session
// for dir, or ErrSessionNotFound if there is none.
func (r *Registry) ListJobs(dir string) ([]Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanup()

	session, exists := r.sessions[dir]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return slices.Clone(session.Jobs), nil
}

// Register appends job to the Session for dir, creating the Session if
// needed. Registering a PID already present in the Session changes nothing.
// It returns the stored Job and whether it was added.
func (r *Registry) Register(dir string, job Job) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[dir]
	if !exists {
		r.sessions[dir] = &Session{Directory: dir, Jobs: []Job{job}}
		return job, true
	}

	if i := slices.IndexFunc(session.Jobs, func(j Job) bool {
		return j.PID == job.PID
	}); i >= 0 {
		return session.Jobs[i], false
	}

	session.Jobs = append(session.Jobs, job)

	return job, true
}

// Len returns the number of sessions currently held, without pruning.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// cleanup drops every job whose process is no longer alive and every
// Session left empty. Callers must hold r.mu.
func (r *Registry) cleanup() {
	for dir, session := range r.sessions {
		session.Jobs = slices.DeleteFunc(session.Jobs, func(j Job) bool {
			return !r.liveness.Alive(j.PID)
		})

		if len(session.Jobs) == 0 {
			delete(r.sessions, dir)
		}
	}
}

func (s *Session) clone() Session {
	return Session{
		Directory: s.Directory,
		Jobs:      slices.Clone(s.Jobs),
	}
}

