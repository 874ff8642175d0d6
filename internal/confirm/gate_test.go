package confirm

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu          sync.Mutex
	resolutions []Resolution
}

func (r *recorder) record(res Resolution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, res)
}

func (r *recorder) all() []Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Resolution, len(r.resolutions))
	copy(out, r.resolutions)
	return out
}

func TestGate_ConfirmResolvesOnce(t *testing.T) {
	rec := &recorder{}
	g := New("en", time.Second, rec.record)
	g.Open("duplicate_last", Command{Kind: "duplicate_last"}, "")
	if !g.Waiting() {
		t.Fatalf("expected gate waiting after open")
	}

	if !g.Confirm("yes") {
		t.Fatalf("confirm with a pending request should resolve it")
	}
	if g.Confirm("yes") { // second call must be a no-op
		t.Fatalf("second confirm must report nothing pending")
	}

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected exactly one resolution, got %d", len(got))
	}
	if got[0].Outcome != Confirmed || got[0].Request.Action != "duplicate_last" {
		t.Fatalf("unexpected resolution: %+v", got[0])
	}
	if got[0].UserText != "yes" {
		t.Fatalf("resolution should carry the resolving utterance, got %q", got[0].UserText)
	}
	if g.Waiting() {
		t.Fatalf("gate should be idle after resolution")
	}
}

func TestGate_CancelWithNoPendingIsNoOp(t *testing.T) {
	rec := &recorder{}
	g := New("en", time.Second, rec.record)
	if g.Cancel("no") {
		t.Fatalf("cancel on an idle gate must report nothing pending")
	}
	if len(rec.all()) != 0 {
		t.Fatalf("cancel on an idle gate must not resolve anything")
	}
}

func TestGate_TimeoutRunsCancelPathExactlyOnce(t *testing.T) {
	rec := &recorder{}
	g := New("en", 20*time.Millisecond, rec.record)
	g.Open("delete_entity", Command{Kind: "delete_entity"}, "")

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && g.Waiting() {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected exactly one resolution, got %d", len(got))
	}
	if got[0].Outcome != TimedOut {
		t.Fatalf("expected timeout outcome, got %s", got[0].Outcome)
	}
	if !got[0].Outcome.CancelPath() {
		t.Fatalf("timeout must take the cancel path")
	}
	if got[0].UserText != "" {
		t.Fatalf("timeout resolution should carry no user text, got %q", got[0].UserText)
	}
	// A confirm arriving after the timeout is inert and reports it.
	if g.Confirm("yes") {
		t.Fatalf("late confirm must report nothing pending")
	}
	if len(rec.all()) != 1 {
		t.Fatalf("late confirm must not resolve an expired request")
	}
}

func TestGate_OpenSupersedesPrevious(t *testing.T) {
	rec := &recorder{}
	g := New("en", time.Second, rec.record)
	g.Open("delete_entity", Command{Kind: "delete_entity", Payload: "first"}, "")
	g.Open("duplicate_last", Command{Kind: "duplicate_last", Payload: "second"}, "")

	got := rec.all()
	if len(got) != 1 || got[0].Outcome != Superseded || got[0].Request.Command.Payload != "first" {
		t.Fatalf("expected first request superseded, got %+v", got)
	}

	g.Confirm("yes")
	got = rec.all()
	if len(got) != 2 {
		t.Fatalf("expected two resolutions, got %d", len(got))
	}
	if got[1].Outcome != Confirmed || got[1].Request.Command.Payload != "second" {
		t.Fatalf("confirm must apply to the newest request, got %+v", got[1])
	}
	// The superseded request's timer must never fire a late timeout.
	time.Sleep(50 * time.Millisecond)
	if len(rec.all()) != 2 {
		t.Fatalf("stale timer resolved a request")
	}
}

func TestGate_CheckVocabulary(t *testing.T) {
	g := New("en", time.Second, nil)
	// With no pending request nothing is a response.
	if r := g.Check("yes"); r.IsResponse {
		t.Fatalf("idle gate must not classify responses")
	}
	g.Open("duplicate_last", Command{Kind: "duplicate_last"}, "")

	confirms := []string{"yes", "Yes.", "yeah", "sí", "claro", "dale", "go ahead", "yes, do it", "ok sure"}
	for _, in := range confirms {
		r := g.Check(in)
		if !r.IsResponse || !r.Confirmed {
			t.Fatalf("%q: expected confirm, got %+v", in, r)
		}
	}
	cancels := []string{"no", "No!", "nope", "cancel", "cancela", "mejor no", "never mind", "no, wait"}
	for _, in := range cancels {
		r := g.Check(in)
		if !r.IsResponse || r.Confirmed {
			t.Fatalf("%q: expected cancel, got %+v", in, r)
		}
	}
	// Unrelated text leaves the gate open and falls through.
	neither := []string{"how much did I spend", "export my expenses", "what does that mean"}
	for _, in := range neither {
		if r := g.Check(in); r.IsResponse {
			t.Fatalf("%q: should not be a gate response", in)
		}
	}
	if !g.Waiting() {
		t.Fatalf("unmatched text must leave the request pending")
	}
}

func TestGate_CheckLongUtteranceIgnoresPrefix(t *testing.T) {
	g := New("es", time.Second, nil)
	g.Open("delete_entity", Command{Kind: "delete_entity"}, "")
	// A new command that happens to start with a confirm word must fall
	// through to the parser, not resolve the gate.
	if r := g.Check("si gasto más de 500 avísame por favor"); r.IsResponse {
		t.Fatalf("long utterance with confirm-word prefix must not resolve the gate")
	}
	// Exact single-word matches always count.
	if r := g.Check("sí"); !r.IsResponse || !r.Confirmed {
		t.Fatalf("exact match should confirm, got %+v", r)
	}
}

func TestGate_DefaultPrompts(t *testing.T) {
	en := New("en", time.Second, nil)
	p := en.Open("delete_entity", Command{Kind: "delete_entity"}, "")
	if p != promptsEN["delete_entity"] {
		t.Fatalf("unexpected english prompt: %q", p)
	}
	es := New("es", time.Second, nil)
	p = es.Open("duplicate_last", Command{Kind: "duplicate_last"}, "")
	if p != promptsES["duplicate_last"] {
		t.Fatalf("unexpected spanish prompt: %q", p)
	}
	custom := es.Open("delete_entity", Command{Kind: "delete_entity"}, "¿Borro el gasto de ayer?")
	if custom != "¿Borro el gasto de ayer?" {
		t.Fatalf("custom prompt should win, got %q", custom)
	}
}

func TestOutcome_CancelPath(t *testing.T) {
	if Confirmed.CancelPath() {
		t.Fatalf("confirmed is not a cancel path")
	}
	for _, o := range []Outcome{Cancelled, TimedOut, Superseded} {
		if !o.CancelPath() {
			t.Fatalf("%s must take the cancel path", o)
		}
	}
}
