package parser

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse_SpendingAlert(t *testing.T) {
	cases := []struct {
		in        string
		threshold string
		category  string
	}{
		{"Alert me if I spend more than $500 on food", "500", "food"},
		{"Notify me when I exceed 200", "200", ""},
		{"Set a spending limit of $1,000 for groceries", "1000", "groceries"},
		{"Avísame si gasto más de 1.000,50 en comida", "1000.50", "comida"},
		{"¡Alerta cuando gaste más de $300!", "300", ""},
		{"Crea una alerta de gasto de 250 en transporte", "250", "transporte"},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindSpendingAlert {
			t.Fatalf("%q: expected spending alert, got %+v", tc.in, a)
		}
		want := decimal.RequireFromString(tc.threshold)
		if !a.Alert.Threshold.Equal(want) {
			t.Fatalf("%q: threshold got %s want %s", tc.in, a.Alert.Threshold, want)
		}
		if a.Alert.Category != tc.category {
			t.Fatalf("%q: category got %q want %q", tc.in, a.Alert.Category, tc.category)
		}
	}
}

func TestParse_Reminder(t *testing.T) {
	cases := []struct {
		in     string
		action string
		day    string
		hour   string
	}{
		{"Remind me to pay rent on Friday", "pay rent", "friday", ""},
		{"Remind me to call Juan tomorrow at 5pm", "call juan", "tomorrow", "5pm"},
		{"Set a reminder to invoice Acme on June 5 at 10am", "invoice acme", "june 5", "10am"},
		{"Remind me to stretch", "stretch", "", ""},
		{"Recuérdame pagar la renta el viernes", "pagar la renta", "friday", ""},
		{"Recuérdame que debo enviar la factura pasado mañana", "enviar la factura", "day_after_tomorrow", ""},
		{"Recuérdame llamar al contador mañana a las 9", "llamar al contador", "tomorrow", "9"},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindReminder {
			t.Fatalf("%q: expected reminder, got %+v", tc.in, a)
		}
		r := a.Reminder
		if r.ActionText != tc.action || r.DayOrDate != tc.day || r.Time != tc.hour {
			t.Fatalf("%q: got (%q, %q, %q) want (%q, %q, %q)",
				tc.in, r.ActionText, r.DayOrDate, r.Time, tc.action, tc.day, tc.hour)
		}
	}
}

func TestParse_Duplicate(t *testing.T) {
	cases := []struct {
		in     string
		target DuplicateTarget
	}{
		{"Duplicate my last expense", TargetLastExpense},
		{"Copy the latest income", TargetLastIncome},
		{"Repite el último gasto", TargetLastExpense},
		{"Duplica mi último ingreso", TargetLastIncome},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindDuplicate {
			t.Fatalf("%q: expected duplicate, got %+v", tc.in, a)
		}
		if a.Duplicate.Target != tc.target {
			t.Fatalf("%q: target got %q want %q", tc.in, a.Duplicate.Target, tc.target)
		}
	}
}

func TestParse_Export(t *testing.T) {
	cases := []struct {
		in     string
		typ    ExportType
		format ExportFormat
	}{
		{"Export my expenses as CSV", ExportAllExpenses, FormatCSV},
		{"Generate a tax report in PDF", ExportTaxReport, FormatPDF},
		{"Download my income data", ExportAllIncome, FormatExcel},
		{"Exporta un reporte de reembolsos", ExportReimbursement, FormatExcel},
		{"Genera un informe en pdf", ExportFullReport, FormatPDF},
		{"Descarga mis gastos en csv", ExportAllExpenses, FormatCSV},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindExport {
			t.Fatalf("%q: expected export, got %+v", tc.in, a)
		}
		if a.Export.Type != tc.typ || a.Export.Format != tc.format {
			t.Fatalf("%q: got (%q, %q) want (%q, %q)",
				tc.in, a.Export.Type, a.Export.Format, tc.typ, tc.format)
		}
	}
}

func TestParse_ExportRequiresTriggerPhrase(t *testing.T) {
	// Type and format keywords alone must not be taken for an export request.
	for _, in := range []string{"my taxes are in pdf", "csv expenses"} {
		if a := Parse(in); a != nil && a.Kind == KindExport {
			t.Fatalf("%q: should not parse as export", in)
		}
	}
}

func TestParse_Navigate(t *testing.T) {
	cases := []struct {
		in     string
		target string
	}{
		{"Go to the dashboard", "dashboard"},
		{"Show me my expenses", "expenses"},
		{"Open settings", "settings"},
		{"Take me to reports", "reports"},
		{"Muéstrame los gastos", "expenses"},
		{"Llévame a mis clientes", "clients"},
		{"Abre el kilometraje", "mileage"},
		{"Ve a inicio", "dashboard"},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindNavigate {
			t.Fatalf("%q: expected navigate, got %+v", tc.in, a)
		}
		if a.Navigate.Target != tc.target {
			t.Fatalf("%q: target got %q want %q", tc.in, a.Navigate.Target, tc.target)
		}
	}
}

func TestParse_Query(t *testing.T) {
	cases := []struct {
		in      string
		target  string
		filters map[string]string
	}{
		{"How much did I spend this month", "spending", map[string]string{"period": "this_month"}},
		{"How much did I spend this month on food", "spending", map[string]string{"period": "this_month", "category": "food"}},
		{"How much have I earned this year", "income", map[string]string{"period": "this_year"}},
		{"What is my balance", "balance", nil},
		{"Cuánto gasté el mes pasado", "spending", map[string]string{"period": "last_month"}},
		{"¿Cuánto he ganado hoy?", "income", map[string]string{"period": "today"}},
		{"¿Cuál es mi patrimonio?", "net_worth", nil},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindQuery {
			t.Fatalf("%q: expected query, got %+v", tc.in, a)
		}
		if a.Query.Target != tc.target {
			t.Fatalf("%q: target got %q want %q", tc.in, a.Query.Target, tc.target)
		}
		if len(a.Query.Filters) != len(tc.filters) {
			t.Fatalf("%q: filters got %v want %v", tc.in, a.Query.Filters, tc.filters)
		}
		for k, v := range tc.filters {
			if a.Query.Filters[k] != v {
				t.Fatalf("%q: filter %q got %q want %q", tc.in, k, a.Query.Filters[k], v)
			}
		}
	}
}

func TestParse_Clarify(t *testing.T) {
	for _, in := range []string{"create", "Create one", "delete it", "borrar", "Elimina eso", "agregar uno"} {
		a := Parse(in)
		if a == nil || a.Kind != KindClarify {
			t.Fatalf("%q: expected clarify, got %+v", in, a)
		}
		if len(a.Clarify.Options) != 4 {
			t.Fatalf("%q: expected 4 options, got %v", in, a.Clarify.Options)
		}
	}
}

func TestParse_Explain(t *testing.T) {
	cases := []struct {
		in    string
		topic string
	}{
		{"What is a deductible expense", "deductible expense"},
		{"Explain the mileage deduction", "mileage deduction"},
		{"¿Qué es el IVA?", "iva"},
		{"Explícame los impuestos trimestrales", "impuestos trimestrales"},
	}
	for _, tc := range cases {
		a := Parse(tc.in)
		if a == nil || a.Kind != KindExplain {
			t.Fatalf("%q: expected explain, got %+v", tc.in, a)
		}
		if a.Explain.Topic != tc.topic {
			t.Fatalf("%q: topic got %q want %q", tc.in, a.Explain.Topic, tc.topic)
		}
	}
}

func TestParse_Precedence(t *testing.T) {
	// "What is my balance" satisfies both the query and explain triggers; the
	// query category must win.
	a := Parse("What is my balance")
	if a == nil || a.Kind != KindQuery {
		t.Fatalf("expected query to take precedence over explain, got %+v", a)
	}
	// Duplicate phrasing contains an expense keyword but must not be export
	// or navigation.
	a = Parse("Duplicate my last expense")
	if a == nil || a.Kind != KindDuplicate {
		t.Fatalf("expected duplicate to take precedence, got %+v", a)
	}
	// Alert phrasing embeds an amount and a spend verb; it must never reach
	// the query category.
	a = Parse("Alert me if I spend more than 200")
	if a == nil || a.Kind != KindSpendingAlert {
		t.Fatalf("expected spending alert to take precedence, got %+v", a)
	}
}

func TestParse_NoMatchReturnsNil(t *testing.T) {
	for _, in := range []string{"", "   ", "hello there", "me gusta la música"} {
		if a := Parse(in); a != nil {
			t.Fatalf("%q: expected nil, got %+v", in, a)
		}
	}
}

func TestFallback(t *testing.T) {
	a := Fallback("  tell me a joke  ")
	if a.Kind != KindConversational || a.Text != "tell me a joke" {
		t.Fatalf("unexpected fallback action: %+v", a)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Hello   World!  ", "hello world"},
		{"¿Cuánto gasté?", "cuánto gasté"},
		{"Export as PDF...", "export as pdf"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct{ in, want string }{
		{"500", "500"},
		{"$500", "500"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"45,50", "45.50"},
		{"45.5", "45.5"},
		{"1,000", "1000"},
		{"1.000", "1000"},
		{"2.500.000", "2500000"},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.in)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("parseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := parseAmount("$"); err == nil {
		t.Fatalf("expected error for bare currency symbol")
	}
}

func TestNormalizeDay_PassthroughUnknown(t *testing.T) {
	if got := normalizeDay("june 5"); got != "june 5" {
		t.Fatalf("unknown day token should pass through, got %q", got)
	}
	if got := normalizeDay("miércoles"); got != "wednesday" {
		t.Fatalf("got %q want wednesday", got)
	}
}
