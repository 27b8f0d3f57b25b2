package registry_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nixpig/jobctl/internal/registry"
)

// fakeLiveness reports a pid as alive until it is killed.
type fakeLiveness struct {
	mu   sync.Mutex
	dead map[int32]bool
}

func newFakeLiveness() *fakeLiveness {
	return &fakeLiveness{dead: make(map[int32]bool)}
}

func (f *fakeLiveness) Alive(pid int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.dead[pid]
}

func (f *fakeLiveness) kill(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dead[pid] = true
}

func newTestJob(pid int32, slot uint8) registry.Job {
	return registry.Job{
		PID:          pid,
		Command:      "vim",
		Slot:         slot,
		RegisteredAt: time.Unix(1700000000, 0),
	}
}

func testSessionPIDs(t *testing.T, got registry.Session, dir string, want ...int32) {
	t.Helper()

	if got.Directory != dir {
		t.Errorf("expected directory: got '%s', want '%s'", got.Directory, dir)
	}

	if len(got.Jobs) != len(want) {
		t.Fatalf("expected jobs: got '%d', want '%d'", len(got.Jobs), len(want))
	}

	for i, pid := range want {
		if got.Jobs[i].PID != pid {
			t.Errorf("expected pid at %d: got '%d', want '%d'", i, got.Jobs[i].PID, pid)
		}
	}
}

func TestRegisterAndPrune(t *testing.T) {
	t.Parallel()

	liveness := newFakeLiveness()
	r := registry.New(liveness)

	if _, added := r.Register("/a", newTestJob(100, 1)); !added {
		t.Error("expected job to be added")
	}

	sessions := r.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected sessions: got '%d', want '1'", len(sessions))
	}

	testSessionPIDs(t, sessions[0], "/a", 100)

	liveness.kill(100)

	if _, err := r.ListJobs("/a"); !errors.Is(err, registry.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound: got '%v'", err)
	}

	if sessions := r.ListSessions(); len(sessions) != 0 {
		t.Errorf("expected no sessions: got '%v'", sessions)
	}

	if r.Len() != 0 {
		t.Errorf("expected empty registry: got '%d' sessions", r.Len())
	}
}

func TestListJobsUnknownDirectory(t *testing.T) {
	t.Parallel()

	r := registry.New(newFakeLiveness())
	r.Register("/a", newTestJob(100, 1))

	jobs, err := r.ListJobs("/unregistered")
	if !errors.Is(err, registry.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound: got '%v'", err)
	}

	if jobs != nil {
		t.Errorf("expected no jobs: got '%v'", jobs)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	r := registry.New(newFakeLiveness())

	first, added := r.Register("/a", newTestJob(100, 1))
	if !added {
		t.Error("expected first register to add job")
	}

	again := newTestJob(100, 7)
	again.Command = "other"

	got, added := r.Register("/a", again)
	if added {
		t.Error("expected second register not to add job")
	}

	if got != first {
		t.Errorf("expected stored job: got '%v', want '%v'", got, first)
	}

	jobs, err := r.ListJobs("/a")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if len(jobs) != 1 {
		t.Errorf("expected jobs: got '%d', want '1'", len(jobs))
	}
}

func TestRegisterIsolatesDirectories(t *testing.T) {
	t.Parallel()

	r := registry.New(newFakeLiveness())

	r.Register("/b", newTestJob(200, 1))

	before, err := r.ListJobs("/b")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	r.Register("/a", newTestJob(100, 1))
	r.Register("/a", newTestJob(200, 2))

	after, err := r.ListJobs("/b")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Errorf("expected /b unchanged: got '%v', want '%v'", after, before)
	}

	sessions := r.ListSessions()
	if len(sessions) != 2 {
		t.Fatalf("expected sessions: got '%d', want '2'", len(sessions))
	}

	testSessionPIDs(t, sessions[0], "/a", 100, 200)
	testSessionPIDs(t, sessions[1], "/b", 200)
}

func TestRegisterPreservesOrder(t *testing.T) {
	t.Parallel()

	r := registry.New(newFakeLiveness())

	for _, pid := range []int32{300, 100, 200} {
		r.Register("/a", newTestJob(pid, 1))
	}

	sessions := r.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected sessions: got '%d', want '1'", len(sessions))
	}

	testSessionPIDs(t, sessions[0], "/a", 300, 100, 200)
}

func TestCleanupLeavesOnlyAliveJobs(t *testing.T) {
	t.Parallel()

	liveness := newFakeLiveness()
	r := registry.New(liveness)

	dirs := []string{"/a", "/b", "/c"}
	for i := range int32(30) {
		r.Register(dirs[i%3], newTestJob(i+1, uint8(i)))
	}

	// Kill every job in /c and every other job elsewhere.
	for i := range int32(30) {
		if i%3 == 2 || i%2 == 0 {
			liveness.kill(i + 1)
		}
	}

	sessions := r.ListSessions()
	if len(sessions) != 2 {
		t.Fatalf("expected sessions: got '%d', want '2'", len(sessions))
	}

	for _, s := range sessions {
		if len(s.Jobs) == 0 {
			t.Errorf("expected session '%s' to have jobs", s.Directory)
		}

		for _, j := range s.Jobs {
			if !liveness.Alive(j.PID) {
				t.Errorf("expected only alive jobs: got dead pid '%d'", j.PID)
			}
		}
	}
}

func TestListReturnsCopies(t *testing.T) {
	t.Parallel()

	r := registry.New(newFakeLiveness())
	r.Register("/a", newTestJob(100, 1))

	jobs, err := r.ListJobs("/a")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	jobs[0].Command = "mutated"

	sessions := r.ListSessions()
	sessions[0].Jobs[0].Slot = 99

	again, _ := r.ListJobs("/a")
	if again[0].Command != "vim" || again[0].Slot != 1 {
		t.Errorf("expected stored job to be unchanged: got '%v'", again[0])
	}
}

func TestConcurrentRegister(t *testing.T) {
	t.Parallel()

	const n = 100

	r := registry.New(newFakeLiveness())

	var wg sync.WaitGroup

	for i := range int32(n) {
		wg.Go(func() {
			if _, added := r.Register("/a", newTestJob(i+1, 1)); !added {
				t.Errorf("expected job '%d' to be added", i+1)
			}
		})
	}

	// Concurrent readers must not disturb the writers.
	for range 10 {
		wg.Go(func() {
			r.ListSessions()
		})
	}

	wg.Wait()

	jobs, err := r.ListJobs("/a")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if len(jobs) != n {
		t.Errorf("expected jobs: got '%d', want '%d'", len(jobs), n)
	}

	seen := make(map[int32]bool, n)
	for _, j := range jobs {
		if seen[j.PID] {
			t.Errorf("expected distinct pids: got duplicate '%d'", j.PID)
		}

		seen[j.PID] = true
	}
}
