package parser

import "strings"

// Normalize lowercases, trims, collapses runs of whitespace and strips the
// punctuation that speech-to-text engines like to attach to the edges of an
// utterance. Interior punctuation is kept: amounts and times depend on it.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ".!?…")
	t = strings.TrimLeft(t, "¿¡")
	return strings.Join(strings.Fields(t), " ")
}

// dayTokens maps recognized day words in both languages to the canonical set.
// Tokens not present here pass through verbatim rather than failing the parse.
var dayTokens = map[string]string{
	"monday": "monday", "tuesday": "tuesday", "wednesday": "wednesday",
	"thursday": "thursday", "friday": "friday", "saturday": "saturday",
	"sunday": "sunday",
	"lunes": "monday", "martes": "tuesday", "miércoles": "wednesday",
	"miercoles": "wednesday", "jueves": "thursday", "viernes": "friday",
	"sábado": "saturday", "sabado": "saturday", "domingo": "sunday",
	"today": "today", "hoy": "today",
	"tomorrow": "tomorrow", "mañana": "tomorrow", "manana": "tomorrow",
	"day after tomorrow": "day_after_tomorrow",
	"pasado mañana":      "day_after_tomorrow",
	"pasado manana":      "day_after_tomorrow",
}

// normalizeDay resolves a day token to the canonical set, or returns it
// unchanged when unrecognized.
func normalizeDay(token string) string {
	token = strings.TrimSpace(token)
	if canonical, ok := dayTokens[token]; ok {
		return canonical
	}
	return token
}
