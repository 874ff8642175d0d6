package assistant

import (
	"fmt"
	"strings"
)

// Canned spoken texts for outcomes the executor and LLM cannot produce.

func cancelledText(lang string) string {
	if lang == "es" {
		return "De acuerdo, lo he cancelado."
	}
	return "Okay, I've cancelled that."
}

func timeoutText(lang string) string {
	if lang == "es" {
		return "No escuché una respuesta, así que lo he cancelado."
	}
	return "I didn't hear a response, so I've cancelled that."
}

func failureText(lang string) string {
	if lang == "es" {
		return "Lo siento, eso no funcionó. Inténtalo de nuevo."
	}
	return "Sorry, that didn't work. Please try again."
}

func fallbackUnavailableText(lang string) string {
	if lang == "es" {
		return "Lo siento, no entendí eso. ¿Puedes decirlo de otra forma?"
	}
	return "Sorry, I didn't catch that. Could you rephrase?"
}

func clarifyText(lang string, options []string) string {
	if lang == "es" {
		return fmt.Sprintf("¿A qué te refieres? Puedes elegir entre: %s.", strings.Join(options, ", "))
	}
	return fmt.Sprintf("What would you like that to apply to? You can pick: %s.", strings.Join(options, ", "))
}
