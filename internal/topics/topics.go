// Package topics holds the keyword classifiers used by the conversation and
// retrieval layers. The word lists are part of the bot's behaviour; change
// them here and nowhere else.
package topics

import (
	"regexp"
	"strings"
)

// Topic is the inferred subject of a question or a chunk.
type Topic string

const (
	Schedule   Topic = "horarios"
	Promotions Topic = "promociones"
	FAQ        Topic = "preguntas_frecuentes"
	General    Topic = "general"
)

// Keywords per topic. Matching is substring on lowercased text.
var (
	ScheduleKeywords = []string{
		"horario", "hora", "abre", "abren", "cierra", "cierran", "abierto", "abierta",
		"apertura", "cierre", "lunes", "martes", "miércoles", "jueves", "viernes",
		"sábado", "domingo", "festivo", "sucursal",
	}
	PromotionKeywords = []string{
		"promoci", "descuento", "oferta", "suma y gana", "suma", "gana", "punto",
		"redimir", "acumular", "beneficio", "cupón",
	}
	FAQKeywords = []string{
		"pago", "pagar", "tarjeta", "efectivo", "devoluci", "cambio", "garantía",
		"domicilio", "factura", "política", "pregunta", "reembolso", "parqueadero",
	}
)

// topicOrder decides ties: the first topic with a hit wins.
var topicOrder = []struct {
	topic    Topic
	keywords []string
}{
	{Schedule, ScheduleKeywords},
	{Promotions, PromotionKeywords},
	{FAQ, FAQKeywords},
}

// DetectTopic infers the topic a question is about.
func DetectTopic(question string) Topic {
	q := strings.ToLower(question)
	for _, t := range topicOrder {
		if containsAny(q, t.keywords) {
			return t.topic
		}
	}
	return General
}

// KeywordsFor returns the keyword list of a topic, nil for General.
func KeywordsFor(t Topic) []string {
	for _, o := range topicOrder {
		if o.topic == t {
			return o.keywords
		}
	}
	return nil
}

// Content classification of chunks uses narrower markers than question
// detection: a chunk is "about" a topic only when it carries that topic's
// vocabulary, not just a stray day name.
var (
	scheduleMarkers  = []string{"horario", "abierto", "apertura", "cierre", "lunes a"}
	promotionMarkers = []string{"suma y gana", "promoci", "descuento", "puntos", "oferta", "redimir"}
	faqMarkers       = []string{"pregunta", "¿", "respuesta", "método de pago", "métodos de pago", "devoluci", "política"}
)

// ContentType infers the category of a chunk from keyword presence.
func ContentType(text string) Topic {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, scheduleMarkers), containsAny(t, dayNames) && timeMarkerRe.MatchString(t):
		return Schedule
	case containsAny(t, promotionMarkers):
		return Promotions
	case containsAny(t, faqMarkers):
		return FAQ
	}
	return General
}

var dayNames = []string{"lunes", "martes", "miércoles", "miercoles", "jueves", "viernes", "sábado", "sabado", "domingo", "festivo"}

var timeMarkerRe = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(a\.?\s?m\.?|p\.?\s?m\.?)|\b\d{1,2}:\d{2}\b|\bhoras?\b`)

// ChunkKeywords returns the keyword tags of a chunk. The source document name
// is always the first tag.
func ChunkKeywords(text, source string) []string {
	t := strings.ToLower(text)
	tags := []string{source}
	add := func(tag string) {
		for _, existing := range tags {
			if existing == tag {
				return
			}
		}
		tags = append(tags, tag)
	}
	if strings.Contains(t, "horario") || containsAny(t, dayNames) {
		add("horarios")
	}
	if containsAny(t, dayNames) {
		add("dias")
	}
	if strings.Contains(t, "suma y gana") {
		add("suma_gana")
	}
	if strings.Contains(t, "punto") {
		add("puntos")
	}
	if containsAny(t, []string{"promoci", "descuento", "oferta"}) {
		add("promociones")
	}
	if containsAny(t, []string{"pago", "tarjeta", "efectivo"}) {
		add("pagos")
	}
	if strings.Contains(t, "sucursal") {
		add("sucursales")
	}
	return tags
}

// Specificity scores how concrete a chunk is: day names, time markers and the
// loyalty program name each add to the score, capped at 1.
func Specificity(text string) float64 {
	t := strings.ToLower(text)
	score := 0.0
	if containsAny(t, dayNames) {
		score += 0.3
	}
	if timeMarkerRe.MatchString(t) {
		score += 0.3
	}
	if strings.Contains(t, "suma y gana") {
		score += 0.4
	}
	if score > 1 {
		score = 1
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
