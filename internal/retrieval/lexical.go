package retrieval

import (
	"math"
	"sort"

	"retailbot/internal/domain"
	"retailbot/internal/textutil"
)

// lexicalSearch ranks chunks by token overlap (Ochiai coefficient). Used when
// the query embedding carries no signal, e.g. every question word is unknown
// to the TF-IDF vocabulary. Chunks with no overlap are dropped.
func lexicalSearch(chunks []domain.Chunk, query string, topK int) []domain.SearchResult {
	qset := textutil.TokenSet(query)
	if len(qset) == 0 || len(chunks) == 0 {
		return nil
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, 0, len(chunks))
	for i, ch := range chunks {
		if s := ochiai(qset, textutil.TokenSet(ch.Text)); s > 0 {
			scores = append(scores, pair{i, s})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, p := range scores[:topK] {
		out = append(out, domain.SearchResult{Chunk: chunks[p.idx], Score: p.score})
	}
	return out
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
