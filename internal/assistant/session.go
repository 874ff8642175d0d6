// Package assistant orchestrates the voice command pipeline: transcripts in,
// parsed actions through the confirmation gate, executed side effects and
// spoken replies out, with every turn recorded into conversational memory.
package assistant

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/capture"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/confirm"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/engine"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/memory"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/parser"
)

// executeTimeout bounds a single executor call.
const executeTimeout = 15 * time.Second

// Config assembles a session. Executor is required; everything else degrades
// gracefully when absent (no speech, no fallback replies, no guard).
type Config struct {
	Lang           string
	Executor       Executor
	LLM            LLM
	Memory         *memory.Memory
	Speaker        SpeakerControl
	Guard          *engine.Exclusive
	ConfirmTimeout time.Duration
	// ConfirmCreates marks data-creating commands as needing the gate too.
	ConfirmCreates bool
}

// Session is one conversational pipeline instance. Utterances may come from
// live capture or typed text; both funnel through HandleUtterance.
type Session struct {
	lang           string
	exec           Executor
	llm            LLM
	mem            *memory.Memory
	speaker        SpeakerControl
	guard          *engine.Exclusive
	gate           *confirm.Gate
	confirmCreates bool

	mu        sync.Mutex
	capture   *capture.Capture
	msgIndex  int
	lastReply string
}

// New wires a session and its confirmation gate.
func New(cfg Config) *Session {
	s := &Session{
		lang:           cfg.Lang,
		exec:           cfg.Executor,
		llm:            cfg.LLM,
		mem:            cfg.Memory,
		speaker:        cfg.Speaker,
		guard:          cfg.Guard,
		confirmCreates: cfg.ConfirmCreates,
	}
	if s.mem == nil {
		s.mem = memory.New(0)
	}
	s.gate = confirm.New(cfg.Lang, cfg.ConfirmTimeout, s.handleResolution)
	if s.guard != nil && s.speaker != nil {
		s.guard.Register(engine.OwnerPlayback, s.speaker.Stop)
	}
	return s
}

// AttachCapture connects a capture session so live final transcripts flow
// into the pipeline and the exclusivity guard can stop it.
func (s *Session) AttachCapture(c *capture.Capture) {
	s.mu.Lock()
	s.capture = c
	s.mu.Unlock()
	if s.guard != nil {
		s.guard.Register(engine.OwnerCapture, c.Stop)
	}
}

// StartListening hands the audio engine to capture, stopping any playback
// first so the microphone never hears the assistant.
func (s *Session) StartListening() error {
	s.mu.Lock()
	c := s.capture
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("assistant: no capture attached")
	}
	if s.guard != nil {
		s.guard.Acquire(engine.OwnerCapture)
	}
	return c.Start()
}

// StopListening ends the live capture session, if any.
func (s *Session) StopListening() {
	s.mu.Lock()
	c := s.capture
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
	if s.guard != nil {
		s.guard.Release(engine.OwnerCapture)
	}
}

// Waiting reports whether a confirmation is outstanding.
func (s *Session) Waiting() bool { return s.gate.Waiting() }

// RequestDeletion routes an externally initiated delete through the gate; the
// app layer never deletes on a voice command without explicit consent.
func (s *Session) RequestDeletion(kind, id, customPrompt string) string {
	cmd := confirm.Command{Kind: CmdDeleteEntity, Payload: deletePayload{Kind: kind, ID: id}}
	prompt := s.gate.Open(CmdDeleteEntity, cmd, customPrompt)
	s.speak(prompt)
	return prompt
}

// RequestCreation routes an externally initiated expense or income creation
// through the pipeline. When the session was built with ConfirmCreates the
// command waits at the gate like a deletion; otherwise it executes right away.
func (s *Session) RequestCreation(kind string, fields map[string]string, customPrompt string) string {
	cmdKind := CmdCreateExpense
	if kind == "income" || kind == "ingreso" {
		cmdKind = CmdCreateIncome
	}
	cmd := confirm.Command{Kind: cmdKind, Payload: fields}
	if s.confirmCreates {
		prompt := s.gate.Open(cmdKind, cmd, customPrompt)
		s.speak(prompt)
		return prompt
	}
	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()
	reply := s.execute(ctx, cmd)
	s.speak(reply)
	return reply
}

// HandleUtterance runs one full turn for a final transcript or typed text and
// returns the assistant's reply. An outstanding confirmation is checked
// first; text matching neither vocabulary falls through to normal parsing.
func (s *Session) HandleUtterance(ctx context.Context, text string) string {
	if res := s.gate.Check(text); res.IsResponse {
		s.mu.Lock()
		s.lastReply = ""
		s.mu.Unlock()
		var resolved bool
		if res.Confirmed {
			resolved = s.gate.Confirm(text)
		} else {
			resolved = s.gate.Cancel(text)
		}
		if !resolved {
			// The request expired between the vocabulary check and the
			// response; the timeout path already spoke for it.
			return timeoutText(s.lang)
		}
		s.mu.Lock()
		reply := s.lastReply
		s.mu.Unlock()
		return reply
	}

	action := parser.Parse(text)
	if action == nil {
		return s.converse(ctx, text)
	}

	switch action.Kind {
	case parser.KindClarify:
		reply := clarifyText(s.lang, action.Clarify.Options)
		s.record(text, reply, action)
		s.speak(reply)
		return reply
	case parser.KindExplain:
		return s.explain(ctx, text, action)
	}

	cmd, needsConfirm := s.commandFor(action)
	if needsConfirm {
		prompt := s.gate.Open(cmd.Kind, cmd, "")
		s.record(text, prompt, action)
		s.speak(prompt)
		return prompt
	}

	reply := s.execute(ctx, cmd)
	s.record(text, reply, action)
	s.speak(reply)
	return reply
}

// converse is the fallback path for parse misses: a parse miss is not an
// error, the reply just comes from the language model instead.
func (s *Session) converse(ctx context.Context, text string) string {
	reply := fallbackUnavailableText(s.lang)
	if s.llm != nil {
		summary := ""
		if s.mem.IsFollowUp(text) || s.mem.Len() > 0 {
			summary = s.mem.ContextSummary()
		}
		if generated, err := s.llm.Generate(ctx, summary, text); err != nil {
			log.Printf("assistant: llm error: %v", err)
		} else if generated != "" {
			reply = generated
		}
	}
	s.record(text, reply, parser.Fallback(text))
	s.speak(reply)
	return reply
}

func (s *Session) explain(ctx context.Context, text string, action *parser.Action) string {
	reply := fallbackUnavailableText(s.lang)
	if s.llm != nil {
		prompt := "Explain briefly, for a freelancer: " + action.Explain.Topic
		if s.lang == "es" {
			prompt = "Explica brevemente, para un freelancer: " + action.Explain.Topic
		}
		if generated, err := s.llm.Generate(ctx, "", prompt); err != nil {
			log.Printf("assistant: llm error: %v", err)
		} else if generated != "" {
			reply = generated
		}
	}
	s.record(text, reply, action)
	s.speak(reply)
	return reply
}

// handleResolution receives every gate outcome, including timeouts fired from
// the timer goroutine. Cancellation paths still speak, so external side
// effects like closing a dialog have a cue.
func (s *Session) handleResolution(r confirm.Resolution) {
	var reply string
	switch r.Outcome {
	case confirm.Confirmed:
		ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
		reply = s.execute(ctx, r.Request.Command)
		cancel()
	case confirm.Cancelled:
		reply = cancelledText(s.lang)
	case confirm.TimedOut:
		reply = timeoutText(s.lang)
	case confirm.Superseded:
		// The newer request speaks for itself.
		log.Printf("assistant: %s confirmation superseded", r.Request.Action)
		return
	}

	s.mu.Lock()
	s.lastReply = reply
	s.mu.Unlock()

	if r.UserText != "" {
		s.record(r.UserText, reply, nil)
	}
	s.speak(reply)
}

// execute dispatches a command to the executor. Failures become spoken text;
// the pipeline itself stays consistent and ready for the next utterance.
func (s *Session) execute(ctx context.Context, cmd confirm.Command) string {
	if s.exec == nil {
		return failureText(s.lang)
	}
	var (
		summary string
		err     error
	)
	switch cmd.Kind {
	case CmdNavigate:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.Navigate(ctx, a.Navigate.Target)
	case CmdQuery:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.Query(ctx, a.Query.Target, a.Query.Filters)
	case CmdSetAlert:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.SetAlert(ctx, a.Alert.Threshold, a.Alert.Category)
	case CmdSetReminder:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.SetReminder(ctx, a.Reminder.ActionText, a.Reminder.DayOrDate, a.Reminder.Time)
	case CmdDuplicateLast:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.DuplicateLast(ctx, string(a.Duplicate.Target))
	case CmdExport:
		a := cmd.Payload.(*parser.Action)
		summary, err = s.exec.ExportData(ctx, string(a.Export.Type), string(a.Export.Format))
	case CmdDeleteEntity:
		del := cmd.Payload.(deletePayload)
		summary, err = s.exec.DeleteEntity(ctx, del.Kind, del.ID)
	case CmdCreateExpense:
		fields := cmd.Payload.(map[string]string)
		summary, err = s.exec.CreateExpense(ctx, fields)
	case CmdCreateIncome:
		fields := cmd.Payload.(map[string]string)
		summary, err = s.exec.CreateIncome(ctx, fields)
	default:
		err = fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
	if err != nil {
		log.Printf("assistant: %s failed: %v", cmd.Kind, err)
		return failureText(s.lang)
	}
	return summary
}

func (s *Session) record(user, reply string, action *parser.Action) {
	intent := ""
	if action != nil {
		intent = string(action.Kind)
	}
	s.mem.AddExchange(user, reply, intent, action)
}

func (s *Session) speak(text string) {
	if s.speaker == nil || text == "" {
		return
	}
	if s.guard != nil {
		s.guard.Acquire(engine.OwnerPlayback)
	}
	s.mu.Lock()
	s.msgIndex++
	idx := s.msgIndex
	s.mu.Unlock()
	s.speaker.Play(text, idx)
}
