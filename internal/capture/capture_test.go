package capture

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeRecognizer plays back one scripted stream per Start call. When the
// scripts run out, the stream stays open until the context is cancelled.
type fakeRecognizer struct {
	mu      sync.Mutex
	scripts []func(results chan<- Result, errs chan<- string)
	starts  int
	stops   int
}

func (f *fakeRecognizer) Start(ctx context.Context) (<-chan Result, <-chan string, error) {
	f.mu.Lock()
	f.starts++
	var script func(chan<- Result, chan<- string)
	if len(f.scripts) > 0 {
		script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	f.mu.Unlock()

	results := make(chan Result, 16)
	errs := make(chan string, 4)
	go func() {
		defer close(results)
		defer close(errs)
		if script != nil {
			script(results, errs)
			return
		}
		<-ctx.Done()
	}()
	return results, errs, nil
}

func (f *fakeRecognizer) Feed([]byte) error { return nil }

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestCapture_AccumulatesOnlyFinals(t *testing.T) {
	finalSeen := make(chan struct{})
	rec := &fakeRecognizer{scripts: []func(chan<- Result, chan<- string){
		func(results chan<- Result, errs chan<- string) {
			results <- Result{Text: "hel", IsFinal: false}
			results <- Result{Text: "hello wor", IsFinal: false}
			results <- Result{Text: "hello world", IsFinal: true}
		},
	}}
	var stopped string
	c := New(rec, Events{
		OnResult: func(text string, isFinal bool) {
			if isFinal {
				select {
				case finalSeen <- struct{}{}:
				default:
				}
			}
		},
		OnStop: func(final string) { stopped = final },
	}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, finalSeen, "final result")
	c.Stop()

	if stopped != "hello world" {
		t.Fatalf("expected only final fragments in transcript, got %q", stopped)
	}
	if c.Active() {
		t.Fatalf("expected idle after stop")
	}
}

func TestCapture_RestartsAcrossEngineDrops(t *testing.T) {
	secondFinal := make(chan struct{})
	rec := &fakeRecognizer{scripts: []func(chan<- Result, chan<- string){
		// First stream ends naturally after one final fragment.
		func(results chan<- Result, errs chan<- string) {
			results <- Result{Text: "first part", IsFinal: true}
		},
		func(results chan<- Result, errs chan<- string) {
			results <- Result{Text: "second part", IsFinal: true}
		},
	}}
	finals := 0
	c := New(rec, Events{
		OnResult: func(text string, isFinal bool) {
			if isFinal {
				finals++
				if finals == 2 {
					close(secondFinal)
				}
			}
		},
	}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, secondFinal, "second stream final")
	c.Stop()

	if got := c.Transcript(); got != "first part second part" {
		t.Fatalf("transcript across restarts got %q", got)
	}
	if rec.startCount() < 2 {
		t.Fatalf("expected engine restart, starts=%d", rec.startCount())
	}
}

func TestCapture_NoSpeechIsRecovered(t *testing.T) {
	finalSeen := make(chan struct{})
	rec := &fakeRecognizer{scripts: []func(chan<- Result, chan<- string){
		func(results chan<- Result, errs chan<- string) {
			errs <- "no-speech"
		},
		func(results chan<- Result, errs chan<- string) {
			results <- Result{Text: "after restart", IsFinal: true}
		},
	}}
	var errKinds []ErrorKind
	c := New(rec, Events{
		OnResult: func(text string, isFinal bool) {
			if isFinal {
				close(finalSeen)
			}
		},
		OnError: func(kind ErrorKind) { errKinds = append(errKinds, kind) },
	}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, finalSeen, "post-restart final")
	c.Stop()

	if len(errKinds) != 0 {
		t.Fatalf("no-speech must be recovered silently, got errors %v", errKinds)
	}
	if got := c.Transcript(); got != "after restart" {
		t.Fatalf("transcript got %q", got)
	}
}

func TestCapture_FatalErrorEndsSession(t *testing.T) {
	stopped := make(chan struct{})
	rec := &fakeRecognizer{scripts: []func(chan<- Result, chan<- string){
		func(results chan<- Result, errs chan<- string) {
			errs <- "not-allowed"
			// Hold the stream open; the fatal error must end the session
			// without waiting for a natural close.
			time.Sleep(50 * time.Millisecond)
		},
	}}
	var kind ErrorKind
	c := New(rec, Events{
		OnError: func(k ErrorKind) { kind = k },
		OnStop:  func(string) { close(stopped) },
	}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, stopped, "session end")
	if kind != ErrPermissionDenied {
		t.Fatalf("expected permission_denied, got %q", kind)
	}
	if c.Active() {
		t.Fatalf("expected idle after fatal error")
	}
}

func TestCapture_MaxDurationForcesStop(t *testing.T) {
	stopped := make(chan struct{})
	rec := &fakeRecognizer{}
	c := New(rec, Events{OnStop: func(string) { close(stopped) }}, 30*time.Millisecond)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, stopped, "max duration cutoff")
	if c.Active() {
		t.Fatalf("expected idle after max duration")
	}
}

// silentRecognizer reports no-speech on every stream it opens, so the session
// keeps restarting until something else ends it.
type silentRecognizer struct {
	mu     sync.Mutex
	starts int
}

func (f *silentRecognizer) Start(ctx context.Context) (<-chan Result, <-chan string, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	results := make(chan Result)
	errs := make(chan string, 1)
	go func() {
		defer close(results)
		defer close(errs)
		errs <- "no-speech"
		time.Sleep(2 * time.Millisecond)
	}()
	return results, errs, nil
}

func (f *silentRecognizer) Feed([]byte) error { return nil }
func (f *silentRecognizer) Stop() error       { return nil }

func (f *silentRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func TestCapture_MaxDurationEndsEndlessSilence(t *testing.T) {
	stopped := make(chan struct{})
	rec := &silentRecognizer{}
	c := New(rec, Events{OnStop: func(string) { close(stopped) }}, 40*time.Millisecond)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, stopped, "max duration cutoff")
	if c.Active() {
		t.Fatalf("expected idle after max duration")
	}
	if rec.startCount() < 2 {
		t.Fatalf("expected silence to keep restarting the engine before the cutoff, starts=%d", rec.startCount())
	}
	// The run loop may finish one in-flight restart; after that the count
	// must hold.
	time.Sleep(20 * time.Millisecond)
	starts := rec.startCount()
	time.Sleep(50 * time.Millisecond)
	if rec.startCount() != starts {
		t.Fatalf("engine kept restarting after the cutoff")
	}
}

func TestCapture_StopPreventsRestart(t *testing.T) {
	rec := &fakeRecognizer{}
	c := New(rec, Events{}, 0)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()
	starts := rec.startCount()
	time.Sleep(50 * time.Millisecond)
	if rec.startCount() != starts {
		t.Fatalf("engine restarted after explicit stop")
	}
	// Restarting a stopped capture begins a fresh session.
	if err := c.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !c.Active() {
		t.Fatalf("expected active after new start")
	}
	c.Stop()
}

func TestClassifyEngineError(t *testing.T) {
	cases := []struct {
		code string
		want ErrorKind
	}{
		{"not-allowed", ErrPermissionDenied},
		{"permission-denied", ErrPermissionDenied},
		{"no-speech", ErrNoSpeech},
		{"network", ErrNetwork},
		{"aborted", ErrUnknown},
	}
	for _, tc := range cases {
		if got := classifyEngineError(tc.code); got != tc.want {
			t.Fatalf("classify(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
