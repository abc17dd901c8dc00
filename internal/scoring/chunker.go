package scoring

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits long text into windows a fixed-size model can read.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText implements TextChunker. Sizes are in runes. Paragraphs are kept
// whole when they fit; longer ones are split at sentence boundaries, and a
// single sentence longer than the window is hard-cut.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	tailLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		currentLen = 0
		tailLen = 0

		if overlap > 0 {
			tail := lastNRunes(chunks[len(chunks)-1], overlap)
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
			tailLen = currentLen
		}
	}

	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+len(sep)+n > maxChunkSize {
			if currentLen > tailLen {
				flush()
			}
			if currentLen > 0 && currentLen+len(sep)+n > maxChunkSize {
				// overlap alone does not leave room for the piece
				current.Reset()
				currentLen, tailLen = 0, 0
			}
		}
		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += len(sep)
		}
		current.WriteString(piece)
		currentLen += n
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= maxChunkSize {
			add(para, "\n\n")
			continue
		}

		for _, sentence := range splitIntoSentences(para) {
			for _, piece := range hardSplit(sentence, maxChunkSize) {
				add(piece, " ")
			}
		}
	}

	// The trailing overlap alone is not a chunk.
	if currentLen > tailLen {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitIntoSentences cuts after '.', '!' and '?' and keeps the punctuation.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var parts []string
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastNRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
