package capture

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultMaxDuration is the hard wall-clock cap on one capture session,
// regardless of how many times the underlying engine restarts.
const DefaultMaxDuration = 60 * time.Second

// ErrorKind is the failure taxonomy surfaced to the caller. Only ErrNoSpeech
// is recovered internally; the rest terminate the session.
type ErrorKind string

const (
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrNoSpeech         ErrorKind = "no_speech"
	ErrNetwork          ErrorKind = "network"
	ErrUnknown          ErrorKind = "unknown"
)

// classifyEngineError maps engine error codes to the caller-facing taxonomy.
func classifyEngineError(code string) ErrorKind {
	switch code {
	case "not-allowed", "permission-denied", "service-not-allowed":
		return ErrPermissionDenied
	case "no-speech":
		return ErrNoSpeech
	case "network":
		return ErrNetwork
	}
	return ErrUnknown
}

// Result is one transcript fragment from the recognition engine.
type Result struct {
	Text    string
	IsFinal bool
}

// Recognizer is the boundary to the streaming speech-to-text engine. Start
// may be called again after the previous stream ends; the returned channels
// belong to that stream only and are closed when it terminates. Error codes
// come from the engine's fixed vocabulary (not-allowed, no-speech, network,
// others).
type Recognizer interface {
	Start(ctx context.Context) (<-chan Result, <-chan string, error)
	Feed(pcm []byte) error
	Stop() error
}

// Events are the capture callbacks. OnResult fires for every fragment,
// interim or final; OnStop delivers the accumulated transcript when the
// session ends for any reason.
type Events struct {
	OnResult func(text string, isFinal bool)
	OnError  func(kind ErrorKind)
	OnStop   func(finalTranscript string)
}

// Capture wraps a continuous recognition stream and owns restart-on-drop and
// max-duration cutoff. The engine is treated as unreliable: it may stop
// itself after a no-speech condition even while the caller still wants to
// listen, and while shouldRestart is set any natural termination re-starts
// the same session. Only final fragments are appended to the accumulator, so
// interim text is shown but never duplicated into history.
type Capture struct {
	rec         Recognizer
	events      Events
	maxDuration time.Duration

	mu            sync.Mutex
	active        bool
	shouldRestart bool
	gen           int
	accum         []string
	maxTimer      *time.Timer
	cancel        context.CancelFunc
}

// New wraps a recognizer. A non-positive maxDuration selects the default cap.
func New(rec Recognizer, events Events, maxDuration time.Duration) *Capture {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Capture{rec: rec, events: events, maxDuration: maxDuration}
}

// Start begins a capture session. Starting an active session is a no-op.
func (c *Capture) Start() error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = true
	c.shouldRestart = true
	c.gen++
	gen := c.gen
	c.accum = nil
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.maxTimer = time.AfterFunc(c.maxDuration, func() {
		log.Printf("capture: max duration reached, forcing stop")
		c.stopSession(gen)
	})
	c.mu.Unlock()

	go c.run(ctx, gen)
	return nil
}

// Stop ends the session. The restart flag is cleared synchronously before the
// engine is asked to stop, so no late engine event can resurrect a session
// the caller intentionally ended.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()
	c.stopSession(gen)
}

// Toggle starts when idle and stops when active.
func (c *Capture) Toggle() error {
	if c.Active() {
		c.Stop()
		return nil
	}
	return c.Start()
}

// Active reports whether a session is in flight.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Transcript returns the accumulated final fragments so far.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.accum, " ")
}

// Feed forwards microphone audio to the engine.
func (c *Capture) Feed(pcm []byte) error {
	return c.rec.Feed(pcm)
}

// run owns the engine stream for one session, restarting it across natural
// terminations while the restart flag holds.
func (c *Capture) run(ctx context.Context, gen int) {
	for {
		results, errs, err := c.rec.Start(ctx)
		if err != nil {
			if !c.stale(gen) {
				log.Printf("capture: engine start failed: %v", err)
				c.emitError(ErrNetwork)
			}
			c.stopSession(gen)
			return
		}

		fatal := c.consume(results, errs, gen)
		if fatal {
			c.stopSession(gen)
			return
		}

		c.mu.Lock()
		restart := c.active && c.shouldRestart && c.gen == gen
		c.mu.Unlock()
		if !restart {
			c.finish(gen)
			return
		}
		log.Printf("capture: engine stopped early, restarting session")
	}
}

// consume drains one engine stream. It returns true when a non-recoverable
// error ended the stream.
func (c *Capture) consume(results <-chan Result, errs <-chan string, gen int) bool {
	for results != nil || errs != nil {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if c.stale(gen) {
				continue
			}
			if r.IsFinal && strings.TrimSpace(r.Text) != "" {
				c.mu.Lock()
				c.accum = append(c.accum, strings.TrimSpace(r.Text))
				c.mu.Unlock()
			}
			if c.events.OnResult != nil {
				c.events.OnResult(r.Text, r.IsFinal)
			}
		case code, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if c.stale(gen) {
				continue
			}
			kind := classifyEngineError(code)
			if kind == ErrNoSpeech {
				// Auto-recovered: the engine will end the stream and the
				// restart loop picks it back up, bounded by the max timer.
				log.Printf("capture: no speech detected, will restart")
				continue
			}
			log.Printf("capture: engine error %q (%s)", code, kind)
			c.emitError(kind)
			return true
		}
	}
	return false
}

func (c *Capture) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen || !c.active
}

func (c *Capture) emitError(kind ErrorKind) {
	if c.events.OnError != nil {
		c.events.OnError(kind)
	}
}

// stopSession clears the restart flag, halts the engine and finishes the
// session. Safe to call from any goroutine and idempotent per generation.
func (c *Capture) stopSession(gen int) {
	c.mu.Lock()
	if c.gen != gen || !c.active {
		c.mu.Unlock()
		return
	}
	c.shouldRestart = false
	cancel := c.cancel
	c.mu.Unlock()

	_ = c.rec.Stop()
	if cancel != nil {
		cancel()
	}
	c.finish(gen)
}

// finish transitions to idle and delivers the accumulated transcript. Every
// exit path funnels through here exactly once per generation.
func (c *Capture) finish(gen int) {
	c.mu.Lock()
	if c.gen != gen || !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.shouldRestart = false
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}
	c.cancel = nil
	transcript := strings.Join(c.accum, " ")
	c.mu.Unlock()

	if c.events.OnStop != nil {
		c.events.OnStop(transcript)
	}
}
