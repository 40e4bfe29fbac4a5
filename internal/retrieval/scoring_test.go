package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"retailbot/internal/domain"
)

func result(doc, contentType, text string) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{DocumentID: doc, ContentType: contentType, Text: text}}
}

func TestSourceRelevance(t *testing.T) {
	tests := []struct {
		name     string
		question string
		chunk    domain.Chunk
		want     float64
	}{
		{"same topic", "¿A qué hora abren?", domain.Chunk{ContentType: "horarios", Text: "x"}, 1},
		{"shared topic keyword", "¿Abren el domingo?", domain.Chunk{ContentType: "general", Text: "El domingo cerramos temprano"}, 0.5},
		{"topic keyword in both", "Necesito factura electrónica", domain.Chunk{ContentType: "general", Text: "Solicite su factura en caja"}, 0.5},
		{"word overlap", "Necesito leche deslactosada", domain.Chunk{ContentType: "general", Text: "La leche entera está en el pasillo 3"}, 1.0 / 3},
		{"nothing shared", "Necesito factura electrónica", domain.Chunk{ContentType: "general", Text: "Frutas frescas"}, 0},
		{"only stopwords", "¿que es?", domain.Chunk{Text: "que es"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SourceRelevance(tt.question, tt.chunk), 1e-9)
		})
	}
}

func TestRankSources_DedupesFiltersAndCaps(t *testing.T) {
	results := []domain.SearchResult{
		result("suma_gana", "promociones", "Suma y Gana"),
		result("suma_gana", "promociones", "Redime tus puntos"),
		result("horarios", "horarios", "Lunes a viernes"),
		result("preguntas_frecuentes", "general", "Puede pagar con descuento de nómina"),
		result("otros", "general", "Frutas frescas"),
	}
	got := RankSources("¿Qué descuentos tienen en promociones?", results)
	assert.Equal(t, []domain.SourceScore{
		{Name: "suma_gana", Score: 1},
		{Name: "preguntas_frecuentes", Score: 0.5},
	}, got)

	assert.Empty(t, RankSources("hola", nil))
}

func TestQualityScore(t *testing.T) {
	medium := strings.Repeat("a", 60)
	tests := []struct {
		name      string
		question  string
		answer    string
		retrieved int
		want      float64
	}{
		{"nothing", "x", "", 0, 0},
		{"one chunk short answer", "x", "corto", 1, 0.4},
		{"several chunks medium answer", "x", medium, 4, 0.9},
		{"too long", "x", strings.Repeat("a", 801), 4, 0.6},
		{"shared words", "¿Horario de la sucursal?", "El horario de la sucursal es amplio", 0, 0.1},
		{"capped", "horario sucursal tienda", medium + " horario sucursal tienda", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.question, tt.answer, tt.retrieved), 1e-9)
		})
	}
}
