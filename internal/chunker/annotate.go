package chunker

import (
	"retailbot/internal/domain"
	"retailbot/internal/topics"
)

// annotate fills the sibling count and the inferred metadata of each chunk.
func annotate(chunks []domain.Chunk, source string) []domain.Chunk {
	for i := range chunks {
		chunks[i].Total = len(chunks)
		chunks[i].ContentType = string(topics.ContentType(chunks[i].Text))
		chunks[i].Keywords = topics.ChunkKeywords(chunks[i].Text, source)
		chunks[i].Specificity = topics.Specificity(chunks[i].Text)
	}
	return chunks
}
