package confirm

import (
	"strings"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/parser"
)

type responseClass int

const (
	responseNone responseClass = iota
	responseConfirm
	responseCancel
)

// Confirm and cancel vocabularies cover both supported languages. Matching is
// exact-or-prefix: the utterance equals an entry, or starts with it at a word
// boundary. Prefix matching only applies to short utterances ("yes, do it"),
// so a topic change that happens to open with "si" or "no" falls through to
// the parser instead of resolving the gate.
var (
	confirmWords = []string{
		"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "confirmed",
		"do it", "go ahead", "correct", "affirmative", "of course",
		"sí", "si", "claro", "confirmo", "confirmar", "dale", "hazlo",
		"adelante", "correcto", "por supuesto", "afirmativo",
	}
	cancelWords = []string{
		"no", "nope", "nah", "cancel", "stop", "don't", "do not", "never mind",
		"forget it", "negative",
		"cancelar", "cancela", "detente", "olvídalo", "olvidalo", "mejor no",
		"negativo", "para",
	}
)

const maxResponseWords = 4

func classifyResponse(text string) responseClass {
	t := parser.Normalize(text)
	if t == "" {
		return responseNone
	}
	short := len(strings.Fields(t)) <= maxResponseWords
	if matchVocab(t, cancelWords, short) {
		return responseCancel
	}
	if matchVocab(t, confirmWords, short) {
		return responseConfirm
	}
	return responseNone
}

func matchVocab(t string, words []string, allowPrefix bool) bool {
	for _, w := range words {
		if t == w {
			return true
		}
		if allowPrefix && (strings.HasPrefix(t, w+" ") || strings.HasPrefix(t, w+",")) {
			return true
		}
	}
	return false
}

// defaultPrompt renders the spoken confirmation question for an action kind.
func defaultPrompt(action, lang string) string {
	if lang == "es" {
		if p, ok := promptsES[action]; ok {
			return p
		}
		return "¿Estás seguro de que quieres continuar? Di sí para confirmar o no para cancelar."
	}
	if p, ok := promptsEN[action]; ok {
		return p
	}
	return "Are you sure you want to proceed? Say yes to confirm or no to cancel."
}

var promptsEN = map[string]string{
	"delete_entity":  "This will permanently delete the entry. Say yes to confirm or no to cancel.",
	"duplicate_last": "I'll create a copy of your last entry. Say yes to confirm or no to cancel.",
	"create_expense": "I'll record this expense. Say yes to confirm or no to cancel.",
	"create_income":  "I'll record this income. Say yes to confirm or no to cancel.",
}

var promptsES = map[string]string{
	"delete_entity":  "Esto eliminará el registro permanentemente. Di sí para confirmar o no para cancelar.",
	"duplicate_last": "Voy a crear una copia de tu última entrada. Di sí para confirmar o no para cancelar.",
	"create_expense": "Voy a registrar este gasto. Di sí para confirmar o no para cancelar.",
	"create_income":  "Voy a registrar este ingreso. Di sí para confirmar o no para cancelar.",
}
