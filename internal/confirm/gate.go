package confirm

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is how long a pending confirmation stays open before it
// auto-resolves through the cancel path.
const DefaultTimeout = 30 * time.Second

// Outcome is how a pending confirmation was resolved.
type Outcome string

const (
	Confirmed  Outcome = "confirmed"
	Cancelled  Outcome = "cancelled"
	TimedOut   Outcome = "timed_out"
	Superseded Outcome = "superseded"
)

// CancelPath reports whether the outcome must run the caller's cancel side
// effects. Timeout and supersession behave exactly like an explicit cancel.
func (o Outcome) CancelPath() bool { return o != Confirmed }

// Command is the action the gate is guarding: a tagged kind plus the payload
// the orchestrator needs to execute it. Storing a command instead of callback
// closures keeps no mutable external state alive inside the gate.
type Command struct {
	Kind    string
	Payload any
}

// Request is one pending confirmation. The gate holds at most one.
type Request struct {
	ID        string
	Action    string
	Prompt    string
	Command   Command
	ExpiresAt time.Time
}

// Resolution is delivered to the resolver exactly once per request. UserText
// is the utterance that resolved it; empty for timeouts and supersessions.
type Resolution struct {
	Request  Request
	Outcome  Outcome
	UserText string
}

// Response is the result of matching an utterance against the gate.
type Response struct {
	IsResponse bool
	Confirmed  bool
}

// Gate is a single-slot state machine guarding destructive and data-creating
// actions behind explicit user consent. It is either idle or holding exactly
// one request; opening a new request supersedes the previous one.
type Gate struct {
	lang       string
	timeout    time.Duration
	onResolved func(Resolution)

	mu      sync.Mutex
	pending *Request
	timer   *time.Timer
}

// New creates an idle gate. The resolver receives every resolution, including
// timeouts and supersessions; it must be safe to call from a timer goroutine.
func New(lang string, timeout time.Duration, onResolved func(Resolution)) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{lang: lang, timeout: timeout, onResolved: onResolved}
}

// Open stores a new pending request and arms the timeout timer, superseding
// any prior request (newest wins, no queueing). It returns the prompt the
// caller should speak.
func (g *Gate) Open(action string, cmd Command, customPrompt string) string {
	prompt := customPrompt
	if prompt == "" {
		prompt = defaultPrompt(action, g.lang)
	}
	req := &Request{
		ID:        uuid.NewString(),
		Action:    action,
		Prompt:    prompt,
		Command:   cmd,
		ExpiresAt: time.Now().Add(g.timeout),
	}

	g.mu.Lock()
	prev, prevTimer := g.pending, g.timer
	g.pending = req
	id := req.ID
	g.timer = time.AfterFunc(g.timeout, func() { g.expire(id) })
	g.mu.Unlock()

	if prevTimer != nil {
		prevTimer.Stop()
	}
	if prev != nil {
		log.Printf("confirm: superseding pending %s request", prev.Action)
		if g.onResolved != nil {
			g.onResolved(Resolution{Request: *prev, Outcome: Superseded})
		}
	}
	return prompt
}

// Check matches an utterance against the confirm and cancel vocabularies.
// Text matching neither reports IsResponse=false and leaves the gate state
// untouched so the caller can fall through to normal parsing.
func (g *Gate) Check(text string) Response {
	g.mu.Lock()
	waiting := g.pending != nil
	g.mu.Unlock()
	if !waiting {
		return Response{}
	}
	switch classifyResponse(text) {
	case responseConfirm:
		return Response{IsResponse: true, Confirmed: true}
	case responseCancel:
		return Response{IsResponse: true, Confirmed: false}
	}
	return Response{}
}

// Confirm resolves the pending request through the confirm path, carrying the
// utterance that triggered it. It reports false when nothing was pending, as
// when a timeout won the race against the user's answer.
func (g *Gate) Confirm(userText string) bool { return g.resolve(Confirmed, userText) }

// Cancel resolves the pending request through the cancel path. It reports
// false when nothing was pending.
func (g *Gate) Cancel(userText string) bool { return g.resolve(Cancelled, userText) }

// Waiting reports whether a confirmation is outstanding.
func (g *Gate) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Pending returns a copy of the outstanding request, if any.
func (g *Gate) Pending() (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Request{}, false
	}
	return *g.pending, true
}

// resolve clears the slot and timer atomically with the state transition,
// before the resolver runs, so a late timer or a second caller can never
// double-resolve the same request.
func (g *Gate) resolve(outcome Outcome, userText string) bool {
	g.mu.Lock()
	req, timer := g.pending, g.timer
	g.pending, g.timer = nil, nil
	g.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if req == nil {
		log.Printf("confirm: %s with no pending request, ignoring", outcome)
		return false
	}
	if g.onResolved != nil {
		g.onResolved(Resolution{Request: *req, Outcome: outcome, UserText: userText})
	}
	return true
}

// expire fires from the timeout timer; the id guard makes a stale timer from
// a superseded request inert.
func (g *Gate) expire(id string) {
	g.mu.Lock()
	if g.pending == nil || g.pending.ID != id {
		g.mu.Unlock()
		return
	}
	req := g.pending
	g.pending, g.timer = nil, nil
	g.mu.Unlock()

	log.Printf("confirm: %s request timed out, cancelling", req.Action)
	if g.onResolved != nil {
		g.onResolved(Resolution{Request: *req, Outcome: TimedOut})
	}
}
