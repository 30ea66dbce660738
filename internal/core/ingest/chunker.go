package ingest

import (
	"strings"

	"github.com/docqueryhq/docquery/internal/models"
)

// SplitChunks splits cleaned document text into sentence-aligned
// chunks of roughly size characters, carrying an overlap tail of up to
// overlap characters into each following chunk. Deterministic for
// fixed inputs: empty text yields no chunks, text shorter than one
// chunk yields exactly one.
func SplitChunks(documentID, text string, size, overlap int) []models.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var (
		chunks []models.Chunk
		buf    []string
		bufLen int
		seq    int
	)

	emit := func() {
		joined := strings.Join(buf, " ")
		chunks = append(chunks, models.Chunk{
			ID:         models.ChunkID(documentID, seq),
			DocumentID: documentID,
			Seq:        seq,
			Text:       joined,
			TokenCount: approxTokens(joined),
		})
		seq++
	}

	for _, sentence := range sentences {
		if bufLen+len(sentence) > size && len(buf) > 0 {
			emit()

			// Seed the next chunk with a sentence tail from the end of
			// this one so context survives the boundary.
			var keep []string
			keepLen := 0
			for j := len(buf) - 1; j >= 0; j-- {
				if keepLen+len(buf[j]) >= overlap {
					break
				}
				keep = append([]string{buf[j]}, keep...)
				keepLen += len(buf[j])
			}
			buf = append(keep, sentence)
			bufLen = keepLen + len(sentence)
			continue
		}
		buf = append(buf, sentence)
		bufLen += len(sentence)
	}

	if len(buf) > 0 {
		emit()
	}
	return chunks
}

// splitSentences breaks cleaned text on sentence terminators followed
// by a space. Anything left over becomes a final sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && (i+1 == len(text) || text[i+1] == ' ') {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
