package assistant

import (
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/confirm"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/parser"
)

// deletePayload carries the arguments of an externally requested deletion
// through the confirmation gate.
type deletePayload struct {
	Kind string
	ID   string
}

// confirmationRequired is the static policy table: deletes and data-creating
// shortcuts wait for explicit consent, everything else executes immediately.
// Expense and income creation is gated per session through ConfirmCreates,
// on the RequestCreation path.
var confirmationRequired = map[string]bool{
	CmdDeleteEntity:  true,
	CmdDuplicateLast: true,
}

// commandFor maps a parsed action to the command the session will execute and
// whether the confirmation gate must intercept it. Clarify, explain and
// conversational variants never produce a command; they are answered locally.
func (s *Session) commandFor(a *parser.Action) (confirm.Command, bool) {
	var kind string
	switch a.Kind {
	case parser.KindSpendingAlert:
		kind = CmdSetAlert
	case parser.KindReminder:
		kind = CmdSetReminder
	case parser.KindDuplicate:
		kind = CmdDuplicateLast
	case parser.KindExport:
		kind = CmdExport
	case parser.KindNavigate:
		kind = CmdNavigate
	case parser.KindQuery:
		kind = CmdQuery
	default:
		return confirm.Command{}, false
	}
	return confirm.Command{Kind: kind, Payload: a}, confirmationRequired[kind]
}
