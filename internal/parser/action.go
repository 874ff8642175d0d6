package parser

import "github.com/shopspring/decimal"

// Kind discriminates the variants of a parsed action. Exactly one variant
// field is populated for any given Action.
type Kind string

const (
	KindSpendingAlert  Kind = "spending_alert"
	KindReminder       Kind = "reminder"
	KindDuplicate      Kind = "duplicate_request"
	KindExport         Kind = "export_request"
	KindNavigate       Kind = "navigate"
	KindQuery          Kind = "query"
	KindClarify        Kind = "clarify"
	KindExplain        Kind = "explain"
	KindConversational Kind = "conversational"
)

// ExportType identifies which slice of data an export request covers.
type ExportType string

const (
	ExportTaxReport     ExportType = "tax_report"
	ExportReimbursement ExportType = "reimbursement"
	ExportAllExpenses   ExportType = "all_expenses"
	ExportAllIncome     ExportType = "all_income"
	ExportFullReport    ExportType = "full_report"
)

// ExportFormat is the requested file format for an export.
type ExportFormat string

const (
	FormatExcel ExportFormat = "excel"
	FormatPDF   ExportFormat = "pdf"
	FormatCSV   ExportFormat = "csv"
)

// DuplicateTarget names which latest entry the user wants copied.
type DuplicateTarget string

const (
	TargetLastExpense DuplicateTarget = "last_expense"
	TargetLastIncome  DuplicateTarget = "last_income"
)

// SpendingAlert asks to be warned when spending crosses a threshold,
// optionally scoped to a category.
type SpendingAlert struct {
	Threshold decimal.Decimal
	Category  string
}

// Reminder schedules a spoken action on a day, optionally at a time.
// DayOrDate is canonical (monday..sunday, today, tomorrow, day_after_tomorrow)
// when the day token was recognized; otherwise it carries the token verbatim.
type Reminder struct {
	ActionText string
	DayOrDate  string
	Time       string
}

// DuplicateRequest copies the most recent expense or income entry.
type DuplicateRequest struct {
	Target DuplicateTarget
}

// ExportRequest generates a downloadable report.
type ExportRequest struct {
	Type   ExportType
	Format ExportFormat
}

// Navigate moves the client UI to a named section.
type Navigate struct {
	Target string
}

// Query asks for an aggregate over recorded data.
type Query struct {
	Target  string
	Filters map[string]string
}

// Clarify reports that the utterance was too ambiguous to act on and lists
// the alternatives the user should pick from.
type Clarify struct {
	Options []string
}

// Explain asks for a definition of a finance concept.
type Explain struct {
	Topic string
}

// Action is the structured result of interpreting one utterance.
type Action struct {
	Kind      Kind
	Alert     *SpendingAlert
	Reminder  *Reminder
	Duplicate *DuplicateRequest
	Export    *ExportRequest
	Navigate  *Navigate
	Query     *Query
	Clarify   *Clarify
	Explain   *Explain
	// Text holds the raw utterance for the conversational fallback variant.
	Text string
}
