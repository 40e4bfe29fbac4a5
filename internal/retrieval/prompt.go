package retrieval

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"retailbot/internal/domain"
)

const answerTemplate = `Eres un asistente virtual amigable y servicial de un supermercado. Tu trabajo es responder las preguntas de los clientes usando ÚNICAMENTE la información proporcionada.

Información disponible:
{{.context}}

{{.customer}}Pregunta del cliente: {{.question}}

Instrucciones:
- Responde solo con base en la información disponible; no inventes datos.
- Responde únicamente sobre el tema de la pregunta, sin mezclar información de otros temas.
- Si la información incluye horarios, días, valores, porcentajes o nombres de sucursales, menciónalos exactamente como aparecen.
- Si la información necesaria no está disponible, dilo claramente y sugiere contactar al servicio al cliente.
- Responde en español, con un tono profesional pero cercano.

Respuesta:`

var answerPrompt = prompts.NewPromptTemplate(answerTemplate, []string{"context", "customer", "question"})

func renderPrompt(results []domain.SearchResult, question string, uc *domain.UserContext) (string, error) {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	customer := ""
	if uc != nil && uc.CustomerType != "" {
		customer = "Tipo de cliente: " + uc.CustomerType + "\n"
	}
	return answerPrompt.Format(map[string]any{
		"context":  strings.Join(parts, contextChunkSeparate),
		"customer": customer,
		"question": question,
	})
}
