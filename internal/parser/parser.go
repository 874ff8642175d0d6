package parser

import (
	"regexp"
	"strings"
)

// Parse maps a normalized utterance to a structured action, or nil when no
// pattern matches. Category precedence is fixed and encoded in the dispatch
// list below; within a category the first matching rule wins. Rules cover
// English and Spanish surface forms without a language tag from the caller.
func Parse(text string) *Action {
	t := Normalize(text)
	if t == "" {
		return nil
	}
	for _, c := range categories {
		if a := c.parse(t); a != nil {
			return a
		}
	}
	return nil
}

// Fallback wraps an utterance that matched no pattern into the conversational
// variant so the pipeline never gets stuck on a parse miss.
func Fallback(text string) *Action {
	return &Action{Kind: KindConversational, Text: strings.TrimSpace(text)}
}

type category struct {
	name  string
	parse func(string) *Action
}

// Order is intentional and must not be rearranged: alert phrasings can embed
// amounts that would satisfy later categories, and export trigger words show
// up inside navigation requests.
var categories = []category{
	{"spending_alert", parseSpendingAlert},
	{"reminder", parseReminder},
	{"duplicate_request", parseDuplicateRequest},
	{"export_request", parseExportRequest},
	{"navigate", parseNavigate},
	{"query", parseQuery},
	{"clarify", parseClarify},
	{"explain", parseExplain},
}

// ---- spending alerts ----

const amountPat = `\$?\s*([0-9][0-9.,]*)`

var alertRules = []*regexp.Regexp{
	regexp.MustCompile(`^(?:alert|notify|warn) me (?:if|when|before) i (?:spend|go over|exceed)(?: more than| over)? ` + amountPat + `(?: (?:on|in|for) (.+))?$`),
	regexp.MustCompile(`^set (?:a |up a )?spending (?:alert|limit) (?:of|at|for) ` + amountPat + `(?: (?:on|for|in) (.+))?$`),
	regexp.MustCompile(`^(?:av[ií]same|al[eé]rtame|alerta) (?:si|cuando) gast\w* m[aá]s de ` + amountPat + `(?: en (.+))?$`),
	regexp.MustCompile(`^(?:crea|pon|configura)\w* una? alerta (?:de gasto )?(?:de|por|en) ` + amountPat + `(?: (?:en|para) (.+))?$`),
}

func parseSpendingAlert(t string) *Action {
	for _, re := range alertRules {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		threshold, err := parseAmount(m[1])
		if err != nil || !threshold.IsPositive() {
			continue
		}
		return &Action{
			Kind:  KindSpendingAlert,
			Alert: &SpendingAlert{Threshold: threshold, Category: strings.TrimSpace(m[2])},
		}
	}
	return nil
}

// ---- reminders ----

const (
	dayAltEn = `day after tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|today|tomorrow`
	dayAltEs = `pasado mañana|pasado manana|lunes|martes|mi[eé]rcoles|jueves|viernes|s[aá]bado|domingo|hoy|mañana|manana`
)

var reminderRules = []*regexp.Regexp{
	regexp.MustCompile(`^(?:remind me to|set a reminder to) (.+?)(?: (?:on|this|next))? (` + dayAltEn + `)(?: at (.+))?$`),
	regexp.MustCompile(`^(?:remind me to|set a reminder to) (.+?) on (.+?)(?: at (.+))?$`),
	regexp.MustCompile(`^(?:remind me to|set a reminder to) (.+)$`),
	regexp.MustCompile(`^recu[eé]rdame (?:que )?(?:debo )?(.+?)(?: (?:el|los|este|esta))? (` + dayAltEs + `)(?: a las? (.+))?$`),
	regexp.MustCompile(`^recu[eé]rdame (?:que )?(?:debo )?(.+?) el (.+?)(?: a las? (.+))?$`),
	regexp.MustCompile(`^recu[eé]rdame (?:que )?(?:debo )?(.+)$`),
}

func parseReminder(t string) *Action {
	for _, re := range reminderRules {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		r := &Reminder{ActionText: strings.TrimSpace(m[1])}
		if len(m) > 2 {
			r.DayOrDate = normalizeDay(m[2])
		}
		if len(m) > 3 {
			r.Time = strings.TrimSpace(m[3])
		}
		if r.ActionText == "" {
			continue
		}
		return &Action{Kind: KindReminder, Reminder: r}
	}
	return nil
}

// ---- duplicate requests ----

var duplicateRules = []*regexp.Regexp{
	regexp.MustCompile(`^(?:duplicate|copy|repeat) (?:my |the )?(?:last|latest|previous) (expense|income)\b`),
	regexp.MustCompile(`^(?:duplicar?|repite|copia) (?:el |mi |la )?[uú]ltim[oa] (gasto|ingreso)\b`),
}

var duplicateTargets = map[string]DuplicateTarget{
	"expense": TargetLastExpense,
	"gasto":   TargetLastExpense,
	"income":  TargetLastIncome,
	"ingreso": TargetLastIncome,
}

func parseDuplicateRequest(t string) *Action {
	for _, re := range duplicateRules {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		target, ok := duplicateTargets[m[1]]
		if !ok {
			continue
		}
		return &Action{Kind: KindDuplicate, Duplicate: &DuplicateRequest{Target: target}}
	}
	return nil
}

// ---- export requests ----

// Export parsing is two-pass: the export type and the format are inferred
// independently from keywords, and only then a trigger-phrase check decides
// whether the utterance is an export request at all. An utterance may resolve
// both and still be rejected here when no trigger phrase is present.
func parseExportRequest(t string) *Action {
	exportType := inferExportType(t)
	format := inferExportFormat(t)
	if !hasExportTrigger(t) {
		return nil
	}
	return &Action{Kind: KindExport, Export: &ExportRequest{Type: exportType, Format: format}}
}

func inferExportType(t string) ExportType {
	switch {
	case containsAny(t, "tax", "fiscal", "impuesto", "hacienda", "declaraci"):
		return ExportTaxReport
	case containsAny(t, "reimburs", "reembols", "viatic", "viátic"):
		return ExportReimbursement
	case containsAny(t, "expense", "gasto"):
		return ExportAllExpenses
	case containsAny(t, "income", "ingreso"):
		return ExportAllIncome
	}
	return ExportFullReport
}

func inferExportFormat(t string) ExportFormat {
	switch {
	case strings.Contains(t, "pdf"):
		return FormatPDF
	case strings.Contains(t, "csv"):
		return FormatCSV
	}
	return FormatExcel
}

func hasExportTrigger(t string) bool {
	if containsAny(t, "export", "exporta", "download", "descarg") {
		return true
	}
	// "generate"/"generar" only counts together with a report word.
	return containsAny(t, "generate", "genera", "crear", "create") &&
		containsAny(t, "report", "reporte", "informe")
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

// ---- navigation ----

var navTrigger = regexp.MustCompile(`^(?:go to|open|show(?: me)?|take me to|navigate to|ir a|abre|abrir|mu[eé]strame|ens[eé]ñame|ll[eé]vame a|ve a) (?:the |my |la |el |los |las |mis? )?(.+)$`)

var navTargets = []struct {
	target string
	words  []string
}{
	{"dashboard", []string{"dashboard", "home", "panel", "inicio"}},
	{"expenses", []string{"expense", "gasto"}},
	{"income", []string{"income", "ingreso"}},
	{"clients", []string{"client", "cliente"}},
	{"projects", []string{"project", "proyecto"}},
	{"mileage", []string{"mileage", "kilometraje"}},
	{"reports", []string{"report", "reporte", "informe"}},
	{"settings", []string{"setting", "configuraci", "ajuste"}},
}

func parseNavigate(t string) *Action {
	m := navTrigger.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	rest := m[1]
	for _, nt := range navTargets {
		if containsAny(rest, nt.words...) {
			return &Action{Kind: KindNavigate, Navigate: &Navigate{Target: nt.target}}
		}
	}
	return nil
}

// ---- queries ----

var queryRules = []struct {
	re     *regexp.Regexp
	target string
}{
	{regexp.MustCompile(`^(?:how much (?:did|have) i sp\w+|what (?:did i spend|have i spent)|cu[aá]nto (?:he )?gast\w+)`), "spending"},
	{regexp.MustCompile(`^(?:how much (?:did|have) i (?:earn\w*|ma[dk]e)|cu[aá]nto (?:he )?gan\w+)`), "income"},
	{regexp.MustCompile(`(?:what(?:'s| is) my balance|cu[aá]l es mi (?:saldo|balance))`), "balance"},
	{regexp.MustCompile(`(?:what(?:'s| is) my net worth|cu[aá]l es mi patrimonio)`), "net_worth"},
}

var queryPeriods = []struct {
	period string
	words  []string
}{
	{"this_month", []string{"this month", "este mes"}},
	{"last_month", []string{"last month", "mes pasado"}},
	{"this_week", []string{"this week", "esta semana"}},
	{"this_year", []string{"this year", "este año"}},
	{"today", []string{"today", "hoy"}},
}

var queryCategoryRe = regexp.MustCompile(`(?:^|\s)(?:on|en) (.+)$`)

func parseQuery(t string) *Action {
	for _, q := range queryRules {
		if !q.re.MatchString(t) {
			continue
		}
		filters := map[string]string{}
		rest := t
		for _, p := range queryPeriods {
			for _, w := range p.words {
				if strings.Contains(rest, w) {
					filters["period"] = p.period
					rest = strings.TrimSpace(strings.ReplaceAll(rest, w, ""))
					break
				}
			}
			if filters["period"] != "" {
				break
			}
		}
		if q.target == "spending" {
			if m := queryCategoryRe.FindStringSubmatch(rest); m != nil {
				if cat := strings.TrimSpace(m[1]); cat != "" {
					filters["category"] = cat
				}
			}
		}
		if len(filters) == 0 {
			filters = nil
		}
		return &Action{Kind: KindQuery, Query: &Query{Target: q.target, Filters: filters}}
	}
	return nil
}

// ---- clarification ----

var (
	clarifyCreate = regexp.MustCompile(`^(?:create|add|new|crear?|agregar?|agrega|nuev[oa])(?: one| uno| una)?$`)
	clarifyDelete = regexp.MustCompile(`^(?:delete|remove|erase|borrar?|borra|eliminar?|elimina)(?: it| that| this| eso| esto)?$`)
)

func parseClarify(t string) *Action {
	if clarifyCreate.MatchString(t) || clarifyDelete.MatchString(t) {
		return &Action{Kind: KindClarify, Clarify: &Clarify{
			Options: []string{"expense", "income", "client", "project"},
		}}
	}
	return nil
}

// ---- explanations ----

var explainTrigger = regexp.MustCompile(`^(?:what is|what's|what are|explain|tell me about|define|qu[eé] es|qu[eé] son|qu[eé] significa|expl[ií]came?|h[aá]blame de) (.+)$`)

var explainArticles = []string{"a ", "an ", "the ", "el ", "la ", "los ", "las ", "un ", "una "}

func parseExplain(t string) *Action {
	m := explainTrigger.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	topic := strings.TrimSpace(m[1])
	for _, art := range explainArticles {
		if strings.HasPrefix(topic, art) {
			topic = strings.TrimSpace(strings.TrimPrefix(topic, art))
			break
		}
	}
	if topic == "" {
		return nil
	}
	return &Action{Kind: KindExplain, Explain: &Explain{Topic: topic}}
}
