package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/parser"
)

const (
	// maxExchanges bounds the rolling window; the oldest exchange is evicted
	// on overflow.
	maxExchanges = 10
	// DefaultSessionTimeout is how long a conversational session survives
	// without activity before the whole memory is replaced.
	DefaultSessionTimeout = 30 * time.Minute
	// sweepInterval is how often the background expiry check runs.
	sweepInterval = time.Minute
)

// Exchange is one user/assistant turn pair. Immutable once recorded.
type Exchange struct {
	ID                string
	UserMessage       string
	AssistantResponse string
	Intent            string
	Action            *parser.Action
	Timestamp         time.Time
}

// Memory is the short-term conversational context for one session. All state
// is replaced atomically when the session times out; partial pruning is never
// performed, so stale cross-topic context cannot leak into a new session.
type Memory struct {
	timeout time.Duration

	mu           sync.Mutex
	exchanges    []Exchange
	lastIntent   string
	lastTopic    string
	sessionStart time.Time
}

// New creates an empty memory. A non-positive timeout selects the default.
func New(timeout time.Duration) *Memory {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Memory{timeout: timeout, sessionStart: time.Now()}
}

// AddExchange records a completed turn and returns its id. Adding activity
// refreshes the session window.
func (m *Memory) AddExchange(user, assistant, intent string, action *parser.Action) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.expireLocked(now)

	ex := Exchange{
		ID:                uuid.NewString(),
		UserMessage:       user,
		AssistantResponse: assistant,
		Intent:            intent,
		Action:            action,
		Timestamp:         now,
	}
	m.exchanges = append(m.exchanges, ex)
	if len(m.exchanges) > maxExchanges {
		m.exchanges = m.exchanges[len(m.exchanges)-maxExchanges:]
	}

	if topic := extractTopic(user); topic != "" {
		m.lastTopic = topic
	} else if intent != "" {
		m.lastTopic = intent
	}
	if intent != "" {
		m.lastIntent = intent
	}
	m.sessionStart = now
	return ex.ID
}

// ContextSummary renders the recent exchanges for LLM prompting.
func (m *Memory) ContextSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	if len(m.exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	start := len(m.exchanges) - 3
	if start < 0 {
		start = 0
	}
	for _, ex := range m.exchanges[start:] {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.UserMessage, ex.AssistantResponse)
	}
	if m.lastTopic != "" {
		fmt.Fprintf(&b, "Current topic: %s\n", m.lastTopic)
	}
	return b.String()
}

// IsFollowUp reports whether the utterance likely depends on the previous
// exchange. Lexical heuristic only: leading conjunctions, acknowledgements,
// demonstratives and question openers.
func (m *Memory) IsFollowUp(text string) bool {
	m.mu.Lock()
	m.expireLocked(time.Now())
	empty := len(m.exchanges) == 0
	m.mu.Unlock()
	if empty {
		return false
	}
	t := parser.Normalize(text)
	for _, p := range followUpOpeners {
		if t == p || strings.HasPrefix(t, p+" ") {
			return true
		}
	}
	return false
}

// LastAction returns the most recent exchange that carried a structured
// action, with the assistant message that accompanied it.
func (m *Memory) LastAction() (*parser.Action, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	for i := len(m.exchanges) - 1; i >= 0; i-- {
		if m.exchanges[i].Action != nil {
			return m.exchanges[i].Action, m.exchanges[i].AssistantResponse, true
		}
	}
	return nil, "", false
}

// LastTopic returns the current topic, if any.
func (m *Memory) LastTopic() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	return m.lastTopic
}

// LastIntent returns the most recent recorded intent, if any.
func (m *Memory) LastIntent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	return m.lastIntent
}

// Len reports the number of stored exchanges.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	return len(m.exchanges)
}

// Exchanges returns a copy of the stored window, oldest first.
func (m *Memory) Exchanges() []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(time.Now())
	out := make([]Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// Clear drops all state and starts a fresh session.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(time.Now())
}

// StartSweeper runs the periodic expiry check until ctx is cancelled.
func (m *Memory) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				m.expireLocked(time.Now())
				m.mu.Unlock()
			}
		}
	}()
}

// expireLocked replaces the whole memory when idle time exceeds the session
// timeout. Caller holds m.mu.
func (m *Memory) expireLocked(now time.Time) {
	if len(m.exchanges) == 0 && m.lastTopic == "" && m.lastIntent == "" {
		return
	}
	if now.Sub(m.sessionStart) <= m.timeout {
		return
	}
	log.Printf("memory: session expired after %s idle, starting fresh", now.Sub(m.sessionStart).Round(time.Second))
	m.reset(now)
}

func (m *Memory) reset(now time.Time) {
	m.exchanges = nil
	m.lastIntent = ""
	m.lastTopic = ""
	m.sessionStart = now
}

// topicRules maps domain keywords to topics; first match wins.
var topicRules = []struct {
	topic string
	words []string
}{
	{"expenses", []string{"expense", "spent", "spending", "gasto", "gasté", "gastado"}},
	{"income", []string{"income", "earned", "revenue", "ingreso", "gané", "cobr"}},
	{"clients", []string{"client", "cliente"}},
	{"projects", []string{"project", "proyecto"}},
	{"taxes", []string{"tax", "fiscal", "impuesto", "hacienda"}},
	{"net_worth", []string{"net worth", "patrimonio"}},
	{"investments", []string{"invest", "inversi", "invertir"}},
	{"savings", []string{"saving", "ahorr"}},
}

func extractTopic(userMessage string) string {
	t := parser.Normalize(userMessage)
	for _, r := range topicRules {
		for _, w := range r.words {
			if strings.Contains(t, w) {
				return r.topic
			}
		}
	}
	return ""
}

var followUpOpeners = []string{
	// conjunctions
	"and", "also", "y", "también", "tambien", "además", "ademas",
	// acknowledgements
	"ok", "okay", "vale", "yes", "sí", "si", "right", "claro",
	// demonstratives
	"that", "those", "this", "ese", "esa", "eso", "esto",
	// question openers
	"what about", "qué tal", "que tal", "what", "how", "why",
	"cuánto", "cuanto", "cómo", "como", "por qué", "por que",
}
