package assistant

import (
	"context"

	"github.com/shopspring/decimal"
)

// Command kinds resolved by the session. These name what gets executed, not
// how it was phrased.
const (
	CmdNavigate      = "navigate"
	CmdQuery         = "query"
	CmdSetAlert      = "set_alert"
	CmdSetReminder   = "set_reminder"
	CmdDuplicateLast = "duplicate_last"
	CmdExport        = "export_data"
	CmdDeleteEntity  = "delete_entity"
	CmdCreateExpense = "create_expense"
	CmdCreateIncome  = "create_income"
)

// Executor is the application boundary for side effects. Every call may fail;
// the session does not retry, it surfaces the outcome as spoken text. Each
// method returns a short summary suitable for speech.
type Executor interface {
	Navigate(ctx context.Context, target string) (string, error)
	Query(ctx context.Context, target string, filters map[string]string) (string, error)
	CreateExpense(ctx context.Context, fields map[string]string) (string, error)
	CreateIncome(ctx context.Context, fields map[string]string) (string, error)
	DeleteEntity(ctx context.Context, kind, id string) (string, error)
	ExportData(ctx context.Context, exportType, format string) (string, error)
	SetAlert(ctx context.Context, threshold decimal.Decimal, category string) (string, error)
	SetReminder(ctx context.Context, action, day, at string) (string, error)
	DuplicateLast(ctx context.Context, kind string) (string, error)
}

// LLM produces the conversational fallback reply for utterances no pattern
// matched.
type LLM interface {
	Generate(ctx context.Context, contextSummary, userText string) (string, error)
}

// SpeakerControl is the slice of the playback controller the session drives.
type SpeakerControl interface {
	Play(text string, messageIndex int)
	Stop()
}
