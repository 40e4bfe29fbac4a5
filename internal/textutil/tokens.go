// Package textutil holds the tokenizer and stop-word list shared by the
// embedder, the summarizer, the word-frequency table and overlap scoring.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`)
)

// Words returns the lowercase letter-only tokens of s.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// Sentences splits text on terminal punctuation and line breaks. Trailing
// text without a terminator is kept as the last sentence.
func Sentences(text string) []string {
	locs := sentenceRe.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs)+1)
	last := 0
	for _, loc := range locs {
		if t := strings.TrimSpace(text[loc[0]:loc[1]]); t != "" {
			out = append(out, t)
		}
		last = loc[1]
	}
	if t := strings.TrimSpace(text[last:]); t != "" {
		out = append(out, t)
	}
	return out
}

// ContentWords returns tokens longer than minRunes that are not stop words.
func ContentWords(s string, minRunes int) []string {
	tokens := Words(s)
	out := tokens[:0]
	for _, t := range tokens {
		if utf8.RuneCountInString(t) <= minRunes {
			continue
		}
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct tokens of s.
func TokenSet(s string) map[string]struct{} {
	tokens := Words(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// IsStopword reports whether w (already lowercased) carries no analytic value.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		// es
		"que", "como", "cuando", "donde", "porque", "para", "con", "por", "del", "una", "los", "las",
		"tiene", "esta", "está", "pero", "más", "son", "sus", "uno", "sobre", "todo", "también",
		"después", "hasta", "otro", "muy", "sin", "entre", "ser", "hay", "hola", "gracias", "buenos",
		"buenas", "tardes", "noches", "el", "la", "de", "en", "y", "a", "un", "es", "se", "lo", "al",
		"mi", "me", "su", "te", "tu", "qué", "cómo", "cuál", "cuáles", "este", "estos", "estas",
		"puedo", "quiero", "tienen", "ustedes", "usted", "favor",
		// en
		"the", "and", "or", "but", "for", "to", "of", "in", "on", "at", "by", "with", "is", "are",
		"was", "were", "be", "it", "this", "that", "these", "those", "from", "can", "will", "just",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
