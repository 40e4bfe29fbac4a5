package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"

	"retailbot/internal/domain"
	"retailbot/internal/textutil"
	"retailbot/internal/topics"
)

const (
	maxSources         = 2
	minSourceRelevance = 0.3
)

// SourceRelevance scores how well a retrieved chunk matches the question's
// topic: 1 for the same content type, 0.5 when a topic keyword of the question
// appears in the chunk, otherwise the share of question words found in it.
func SourceRelevance(question string, chunk domain.Chunk) float64 {
	topic := topics.DetectTopic(question)
	if topic != topics.General && chunk.ContentType == string(topic) {
		return 1
	}
	q := strings.ToLower(question)
	text := strings.ToLower(chunk.Text)
	for _, kw := range topics.KeywordsFor(topic) {
		if strings.Contains(q, kw) && strings.Contains(text, kw) {
			return 0.5
		}
	}

	qwords := map[string]struct{}{}
	for _, w := range textutil.ContentWords(question, 0) {
		qwords[w] = struct{}{}
	}
	if len(qwords) == 0 {
		return 0
	}
	cset := textutil.TokenSet(chunk.Text)
	overlap := 0
	for w := range qwords {
		if _, ok := cset[w]; ok {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(qwords))
	if score > 1 {
		score = 1
	}
	return score
}

// RankSources attributes an answer to at most two source documents: chunks
// scoring at or below 0.3 are dropped, each document keeps its best chunk
// score, and documents are ordered by score.
func RankSources(question string, results []domain.SearchResult) []domain.SourceScore {
	best := map[string]int{}
	var ranked []domain.SourceScore
	for _, r := range results {
		score := SourceRelevance(question, r.Chunk)
		if score <= minSourceRelevance {
			continue
		}
		name := r.Chunk.DocumentID
		if i, ok := best[name]; ok {
			if score > ranked[i].Score {
				ranked[i].Score = score
			}
			continue
		}
		best[name] = len(ranked)
		ranked = append(ranked, domain.SourceScore{Name: name, Score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > maxSources {
		ranked = ranked[:maxSources]
	}
	return ranked
}

// QualityScore estimates answer quality in [0, 1] from how much was retrieved,
// the answer length and the topical words shared by question and answer.
func QualityScore(question, answer string, retrieved int) float64 {
	score := 0.0
	if retrieved > 0 {
		score += 0.4
	}
	if retrieved > 1 {
		score += 0.2
	}
	if n := utf8.RuneCountInString(answer); n >= 50 && n <= 800 {
		score += 0.3
	}
	q := strings.ToLower(question)
	a := strings.ToLower(answer)
	for _, w := range topics.RelevantWords {
		if strings.Contains(q, w) && strings.Contains(a, w) {
			score += 0.05
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}
