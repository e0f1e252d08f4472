package renderpool_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	rp "github.com/PeasPilaf/wirklich"
)

// fakeSession is a Session whose disconnect can be forced from the test.
type fakeSession struct {
	class rp.Capability
	disc  chan struct{}
	once  sync.Once

	mu       sync.Mutex
	closed   bool
	closeErr error
}

func newFakeSession(class rp.Capability) *fakeSession {
	return &fakeSession{
		class: class,
		disc:  make(chan struct{}),
	}
}

func (s *fakeSession) Disconnected() <-chan struct{} { return s.disc }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// drop simulates the underlying process crashing.
func (s *fakeSession) drop() {
	s.once.Do(func() { close(s.disc) })
}

// fakeLauncher records every launch and can be told to fail per class
// or to take a while, like a real browser start does.
type fakeLauncher struct {
	mu       sync.Mutex
	sessions []*fakeSession
	perClass map[rp.Capability]int
	fail     map[rp.Capability]error
	delay    time.Duration
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		perClass: make(map[rp.Capability]int),
		fail:     make(map[rp.Capability]error),
	}
}

func (l *fakeLauncher) Launch(ctx context.Context, class rp.Capability, _ rp.LaunchOptions) (rp.Session, error) {
	l.mu.Lock()
	d := l.delay
	l.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail[class]; err != nil {
		return nil, err
	}
	s := newFakeSession(class)
	l.sessions = append(l.sessions, s)
	l.perClass[class]++
	return s, nil
}

func (l *fakeLauncher) setFail(class rp.Capability, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, class)
	} else {
		l.fail[class] = err
	}
}

func (l *fakeLauncher) setDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

func (l *fakeLauncher) session(i int) *fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[i]
}

func newTestOptions(classes map[rp.Capability]rp.ClassConfig) rp.Options {
	return rp.Options{
		Classes:       classes,
		JobTimeout:    2 * time.Second,
		RelaunchEvery: 10 * time.Millisecond,
	}
}

func newTestPool(t *testing.T, launcher rp.Launcher, opts rp.Options) *rp.Pool {
	t.Helper()

	p, err := rp.New(launcher, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

// mustJob builds a validated job or fails the test.
func mustJob(t *testing.T, class rp.Capability, run rp.RunFunc) *rp.Job {
	t.Helper()

	job, err := rp.NewJob(rp.JobSpec{Run: run, Class: class})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	return job
}

// blockingRun returns a run func parked until release is closed.
func blockingRun(release <-chan struct{}) rp.RunFunc {
	return func(ctx context.Context, _ *rp.Worker) (rp.Result, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}
