// Package chunker splits extracted document text into overlapping,
// paragraph-aligned chunks sized for embedding.
package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkTokens   = 800
	DefaultOverlapTokens = 200
	DefaultCharsPerToken = 4
)

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// Chunk is one emitted segment. Index is zero-based and contiguous.
type Chunk struct {
	Index   int
	Content string
}

// Chunker holds the sizing of a split. Sizes are expressed in tokens and
// converted to characters with CharsPerToken.
type Chunker struct {
	chunkTokens   int
	overlapTokens int
	charsPerToken int
}

type Option func(*Chunker)

// WithChunkTokens sets the target chunk size. Non-positive values are ignored.
func WithChunkTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap carried into the next chunk. Negative
// values are ignored.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

func WithCharsPerToken(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.charsPerToken = n
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkTokens:   DefaultChunkTokens,
		overlapTokens: DefaultOverlapTokens,
		charsPerToken: DefaultCharsPerToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	// An overlap as large as the chunk would never make progress.
	if c.overlapTokens >= c.chunkTokens {
		c.overlapTokens = c.chunkTokens / 4
	}
	return c
}

// ChunkSize is the target chunk length in characters.
func (c *Chunker) ChunkSize() int { return c.chunkTokens * c.charsPerToken }

// OverlapSize is the number of trailing characters carried into the next chunk.
func (c *Chunker) OverlapSize() int { return c.overlapTokens * c.charsPerToken }

// Split cuts text into chunks.
//
// Paragraphs (separated by blank lines) are appended to a running buffer.
// When the next paragraph would push the buffer over ChunkSize, the buffer is
// emitted and the next one starts with the last OverlapSize characters of the
// emitted buffer, a blank line, and the paragraph that did not fit. A single
// paragraph longer than ChunkSize is never split and becomes an oversized chunk.
// Every chunk is trimmed, so when the overlap window starts on whitespace the
// next chunk begins with the overlap minus its leading whitespace.
//
// Whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	size := c.ChunkSize()
	overlap := c.OverlapSize()

	var (
		chunks  []Chunk
		current string
	)

	emit := func(s string) string {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Content: s})
		}
		return s
	}

	for _, paragraph := range paragraphBreak.Split(text, -1) {
		if len(current)+len(paragraph) > size && len(current) > 0 {
			emitted := emit(current)
			current = tail(emitted, overlap) + "\n\n" + paragraph
			continue
		}
		if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}
	emit(current)

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Index: 0, Content: strings.TrimSpace(text)})
	}

	return chunks
}

// EstimateTokens approximates the token count of text with the default
// characters-per-token ratio.
func EstimateTokens(text string) int {
	return (len(text) + DefaultCharsPerToken - 1) / DefaultCharsPerToken
}

// tail returns the last n bytes of s, moved forward to a rune boundary so a
// multi-byte character is never cut in half.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
