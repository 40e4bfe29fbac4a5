package chunker

import (
	"strconv"
	"strings"

	"retailbot/internal/domain"
)

// CharacterChunker splits text into windows of at most size runes that
// overlap by overlap runes. A window is cut at the last space or newline
// before the limit when one exists.
type CharacterChunker struct {
	size    int
	overlap int
}

func NewCharacterChunker(size, overlap int) *CharacterChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &CharacterChunker{size: size, overlap: overlap}
}

func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	texts := c.Split(document.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(i),
			Text:       text,
			Index:      i,
		})
	}
	return annotate(chunks, document.ID), nil
}

// Split returns the trimmed, non-empty windows of text.
func (c *CharacterChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{strings.TrimSpace(text)}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end < len(runes) {
			if cut := lastBreak(runes, start, end); cut > start {
				end = cut
			}
		} else {
			end = len(runes)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		// begin the overlap on a word when the window has a break to align to
		if !isBreak(runes[next-1]) {
			if b := firstBreak(runes, next, end); b >= 0 {
				next = b + 1
			}
		}
		start = next
	}
	return out
}

func isBreak(r rune) bool {
	return r == ' ' || r == '\n'
}

// lastBreak returns the index of the last space or newline in runes[start:end],
// or -1.
func lastBreak(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if isBreak(runes[i]) {
			return i
		}
	}
	return -1
}

func firstBreak(runes []rune, start, end int) int {
	for i := start; i < end; i++ {
		if isBreak(runes[i]) {
			return i
		}
	}
	return -1
}
