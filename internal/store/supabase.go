// Package store implements the assistant's executor boundary on Supabase.
// The session treats it as an opaque, possibly-failing collaborator; nothing
// here retries.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// Supabase executes parsed voice commands against the application database.
type Supabase struct {
	client *supabase.Client
	lang   string
}

// New connects a Supabase-backed executor.
func New(url, serviceKey, lang string) (*Supabase, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: create supabase client: %w", err)
	}
	return &Supabase{client: client, lang: lang}, nil
}

func tableFor(kind string) string {
	switch kind {
	case "expense", "gasto", "last_expense":
		return "expenses"
	case "income", "ingreso", "last_income":
		return "income"
	case "client", "cliente":
		return "clients"
	case "project", "proyecto":
		return "projects"
	case "mileage":
		return "mileage"
	}
	return kind
}

// Navigate is a client-side concern; the executor only produces the spoken
// acknowledgement.
func (s *Supabase) Navigate(_ context.Context, target string) (string, error) {
	if s.lang == "es" {
		return fmt.Sprintf("Abriendo %s.", target), nil
	}
	return fmt.Sprintf("Opening %s.", target), nil
}

type amountRow struct {
	Amount float64 `json:"amount"`
}

// Query answers aggregate questions by summing rows server-side fetched and
// totalled with decimal arithmetic.
func (s *Supabase) Query(_ context.Context, target string, filters map[string]string) (string, error) {
	table := "expenses"
	if target == "income" {
		table = "income"
	}

	q := s.client.From(table).Select("amount", "", false)
	if from, to, ok := periodRange(filters["period"], time.Now()); ok {
		q = q.Gte("date", from.Format("2006-01-02")).Lt("date", to.Format("2006-01-02"))
	}
	if cat := filters["category"]; cat != "" {
		q = q.Eq("category", cat)
	}
	data, _, err := q.Execute()
	if err != nil {
		return "", fmt.Errorf("store: query %s: %w", table, err)
	}

	var rows []amountRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("store: decode %s rows: %w", table, err)
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(decimal.NewFromFloat(r.Amount))
	}

	switch target {
	case "income":
		return s.phrase("Has ganado %s.", "You earned %s.", total), nil
	case "balance", "net_worth":
		income, err := s.sumTable("income")
		if err != nil {
			return "", err
		}
		return s.phrase("Tu balance es %s.", "Your balance is %s.", income.Sub(total)), nil
	}
	return s.phrase("Has gastado %s.", "You spent %s.", total), nil
}

func (s *Supabase) sumTable(table string) (decimal.Decimal, error) {
	data, _, err := s.client.From(table).Select("amount", "", false).Execute()
	if err != nil {
		return decimal.Zero, fmt.Errorf("store: query %s: %w", table, err)
	}
	var rows []amountRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("store: decode %s rows: %w", table, err)
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(decimal.NewFromFloat(r.Amount))
	}
	return total, nil
}

func (s *Supabase) phrase(es, en string, amount decimal.Decimal) string {
	if s.lang == "es" {
		return fmt.Sprintf(es, amount.StringFixed(2))
	}
	return fmt.Sprintf(en, amount.StringFixed(2))
}

// CreateExpense inserts a new expense row from parsed fields.
func (s *Supabase) CreateExpense(_ context.Context, fields map[string]string) (string, error) {
	if _, _, err := s.client.From("expenses").Insert(fields, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: create expense: %w", err)
	}
	if s.lang == "es" {
		return "Gasto registrado.", nil
	}
	return "Expense recorded.", nil
}

// CreateIncome inserts a new income row from parsed fields.
func (s *Supabase) CreateIncome(_ context.Context, fields map[string]string) (string, error) {
	if _, _, err := s.client.From("income").Insert(fields, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: create income: %w", err)
	}
	if s.lang == "es" {
		return "Ingreso registrado.", nil
	}
	return "Income recorded.", nil
}

// DeleteEntity removes one row by id. Only ever reached through the
// confirmation gate.
func (s *Supabase) DeleteEntity(_ context.Context, kind, id string) (string, error) {
	if _, _, err := s.client.From(tableFor(kind)).Delete("", "").Eq("id", id).Execute(); err != nil {
		return "", fmt.Errorf("store: delete %s %s: %w", kind, id, err)
	}
	if s.lang == "es" {
		return "Registro eliminado.", nil
	}
	return "Entry deleted.", nil
}

// ExportData produces a download. Plain CSV snapshots are generated and
// uploaded inline; everything needing rendering becomes an export job for the
// report worker.
func (s *Supabase) ExportData(_ context.Context, exportType, format string) (string, error) {
	if format == "csv" && (exportType == "all_expenses" || exportType == "all_income") {
		key, err := s.exportCSV(exportType)
		if err != nil {
			return "", err
		}
		if s.lang == "es" {
			return fmt.Sprintf("Listo, tu exportación está disponible como %s.", key), nil
		}
		return fmt.Sprintf("Done, your export is available as %s.", key), nil
	}

	job := map[string]string{"type": exportType, "format": format, "status": "pending"}
	if _, _, err := s.client.From("export_jobs").Insert(job, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: create export job: %w", err)
	}
	if s.lang == "es" {
		return fmt.Sprintf("Estoy generando tu %s en formato %s.", exportType, format), nil
	}
	return fmt.Sprintf("I'm generating your %s as %s.", exportType, format), nil
}

// SetAlert stores a spending alert threshold, optionally scoped to a category.
func (s *Supabase) SetAlert(_ context.Context, threshold decimal.Decimal, category string) (string, error) {
	row := map[string]any{"threshold": threshold.InexactFloat64()}
	if category != "" {
		row["category"] = category
	}
	if _, _, err := s.client.From("spending_alerts").Insert(row, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: create alert: %w", err)
	}
	if s.lang == "es" {
		return fmt.Sprintf("Alerta creada para gastos mayores de %s.", threshold.StringFixed(2)), nil
	}
	return fmt.Sprintf("Alert set for spending over %s.", threshold.StringFixed(2)), nil
}

// SetReminder stores a reminder row. The day may be canonical or verbatim.
func (s *Supabase) SetReminder(_ context.Context, action, day, at string) (string, error) {
	row := map[string]string{"action": action, "day": day}
	if at != "" {
		row["time"] = at
	}
	if _, _, err := s.client.From("reminders").Insert(row, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: create reminder: %w", err)
	}
	if s.lang == "es" {
		return fmt.Sprintf("Recordatorio creado: %s.", action), nil
	}
	return fmt.Sprintf("Reminder set: %s.", action), nil
}

// DuplicateLast copies the most recent row of the given kind.
func (s *Supabase) DuplicateLast(_ context.Context, kind string) (string, error) {
	table := tableFor(kind)
	data, _, err := s.client.From(table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("store: fetch last %s: %w", table, err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("store: decode last %s: %w", table, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("store: no %s entry to duplicate", table)
	}
	copyRow := rows[0]
	delete(copyRow, "id")
	delete(copyRow, "created_at")

	if _, _, err := s.client.From(table).Insert(copyRow, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("store: duplicate %s: %w", table, err)
	}
	if s.lang == "es" {
		return "Listo, he duplicado tu última entrada.", nil
	}
	return "Done, I've duplicated your last entry.", nil
}

// periodRange resolves a canonical period token to a half-open date range.
func periodRange(period string, now time.Time) (time.Time, time.Time, bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch period {
	case "today":
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1), true
	case "this_week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 7), true
	case "this_month":
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), true
	case "last_month":
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0), true
	case "this_year":
		start := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}
