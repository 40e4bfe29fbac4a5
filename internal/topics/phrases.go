package topics

import "strings"

// CapabilityPhrases are the "what can you do" phrasings answered without
// retrieval. Matching is substring on the lowercased message; accents matter.
var CapabilityPhrases = []string{
	"en qué me puedes ayudar",
	"qué puedes hacer",
	"cómo me ayudas",
	"cuáles son tus funciones",
	"qué servicios ofreces",
	"para qué sirves",
	"qué información tienes",
	"en qué me sirves",
	"cómo funciona este chat",
	"qué consultas puedo hacer",
	"dime qué haces",
	"cuál es tu propósito",
	"qué tipo de ayuda das",
	"qué preguntas puedo hacerte",
}

// IsCapabilityQuestion reports whether message asks what the bot can do.
func IsCapabilityQuestion(message string) bool {
	return containsAny(strings.ToLower(strings.TrimSpace(message)), CapabilityPhrases)
}

// NewCustomerWords and ReturningCustomerWords classify the answer to
// "are you new or do you have an account?". New wins when both match.
var (
	NewCustomerWords       = []string{"nuevo", "nueva", "registrar", "registro"}
	ReturningCustomerWords = []string{"frecuente", "cuenta", "tengo", "ya", "registrado"}
)

// CustomerIntent is the outcome of classifying the user-type answer.
type CustomerIntent int

const (
	IntentUnknown CustomerIntent = iota
	IntentNew
	IntentReturning
)

// ClassifyCustomer decides whether message declares a new or returning customer.
func ClassifyCustomer(message string) CustomerIntent {
	m := strings.ToLower(strings.TrimSpace(message))
	switch {
	case containsAny(m, NewCustomerWords):
		return IntentNew
	case containsAny(m, ReturningCustomerWords):
		return IntentReturning
	}
	return IntentUnknown
}

// RelevantWords add to the answer quality score when present in both the
// question and the answer.
var RelevantWords = []string{
	"horario", "horarios", "atención", "sucursal", "promoción", "promociones",
	"descuento", "suma", "gana", "puntos", "pago", "tienda",
}

type suggestionBucket struct {
	keywords    []string
	suggestions []string
}

var suggestionBuckets = []suggestionBucket{
	{
		keywords: []string{"horario", "hora", "abre", "abren", "cierra", "cierran", "abierto", "domingo", "festivo", "sucursal"},
		suggestions: []string{
			"¿Cuál es el horario de la sucursal más cercana?",
			"¿Qué días tienen horario especial?",
		},
	},
	{
		keywords: []string{"promoci", "descuento", "oferta", "suma", "gana", "punto", "redimir"},
		suggestions: []string{
			"¿Cómo acumulo puntos en Suma y Gana?",
			"¿Cómo puedo redimir mis puntos?",
		},
	},
	{
		keywords: []string{"ayuda", "pago", "pagar", "devoluci", "problema", "reclamo", "contacto"},
		suggestions: []string{
			"¿Qué métodos de pago aceptan?",
			"¿Cómo contacto al servicio al cliente?",
		},
	},
}

var defaultSuggestions = []string{
	"¿Cuáles son los horarios de atención?",
	"¿Qué promociones tienen disponibles?",
}

// Suggestions returns at most two follow-up questions for the first bucket
// whose keywords appear in question, or a generic pair.
func Suggestions(question string) []string {
	q := strings.ToLower(question)
	for _, b := range suggestionBuckets {
		if containsAny(q, b.keywords) {
			return clip(b.suggestions, 2)
		}
	}
	return clip(defaultSuggestions, 2)
}

func clip(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
