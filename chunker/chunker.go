package chunker

import (
	"strconv"
	"strings"

	"github.com/poiesic/deepresearch/core"
)

// DefaultMaxSize is the default maximum number of characters per chunk.
const DefaultMaxSize = 512

// DefaultOverlap is the default number of characters carried over from the
// end of one chunk into the start of the next.
const DefaultOverlap = 50

// DefaultSeparators is the separator priority order: paragraph break, line
// break, sentence end, space, and finally a hard character split.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits arbitrary text into bounded, overlapping segments suitable
// for embedding. Splitting is deterministic: the same input and parameters
// always produce the same output.
type Chunker struct {
	maxSize    int
	overlap    int
	separators []string
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum chunk size in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparators sets the separator priority order. An empty-string entry
// means "hard split by character count".
func WithSeparators(separators []string) Option {
	return func(c *Chunker) {
		if len(separators) > 0 {
			c.separators = separators
		}
	}
}

// New creates a new Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize:    DefaultMaxSize,
		overlap:    DefaultOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split splits text into chunks of at most maxSize characters using the
// configured separator hierarchy. Text that already fits is returned as a
// single chunk; empty or whitespace-only input returns nil.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if len(text) <= c.maxSize {
		return []string{text}
	}

	// Try each separator in priority order; use the first one present.
	for _, sep := range c.separators {
		if sep != "" && strings.Contains(text, sep) {
			if chunks := c.mergeParts(strings.Split(text, sep), sep); len(chunks) > 0 {
				return chunks
			}
		}
	}

	return c.hardSplit(text)
}

// SplitWithMetadata splits text and attaches base metadata plus chunk_index
// and total_chunks to each chunk.
func (c *Chunker) SplitWithMetadata(text string, base map[string]string) []core.Chunk {
	parts := c.Split(text)
	chunks := make([]core.Chunk, len(parts))
	for i, part := range parts {
		meta := make(map[string]string, len(base)+2)
		for k, v := range base {
			meta[k] = v
		}
		meta["chunk_index"] = strconv.Itoa(i)
		meta["total_chunks"] = strconv.Itoa(len(parts))
		chunks[i] = core.Chunk{Text: part, Index: i, Metadata: meta}
	}
	return chunks
}

// mergeParts greedily re-merges split parts into chunks that respect the
// size limit. When a chunk boundary is crossed, an overlap-sized suffix of
// the finished chunk seeds the next one, unless the overlapped chunk would
// exceed maxSize, in which case the overlap is dropped entirely rather than
// truncated.
func (c *Chunker) mergeParts(parts []string, sep string) []string {
	var chunks []string
	var current string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		candidate := part
		if current != "" {
			candidate = current + sep + part
		}

		if len(candidate) <= c.maxSize {
			current = candidate
			continue
		}

		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))

			// Overlap is sliced on rune boundaries so a multibyte
			// character is never split mid-sequence.
			runes := []rune(current)
			if c.overlap > 0 && len(runes) > c.overlap {
				overlapped := string(runes[len(runes)-c.overlap:]) + sep + part
				if len(overlapped) > c.maxSize {
					current = part
				} else {
					current = overlapped
				}
			} else {
				current = part
			}
		} else {
			current = part
		}

		// A single part can exceed maxSize on its own: hard-split it and
		// keep the tail as the open chunk so the next part can merge in.
		if len(current) > c.maxSize {
			sub := c.hardSplit(current)
			if len(sub) > 0 {
				chunks = append(chunks, sub[:len(sub)-1]...)
				current = sub[len(sub)-1]
			} else {
				current = ""
			}
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// hardSplit splits text by raw character windows of maxSize, advancing by
// maxSize-overlap each step. The step is clamped to at least one full
// window so the loop terminates even when overlap >= maxSize.
func (c *Chunker) hardSplit(text string) []string {
	runes := []rune(text)

	step := c.maxSize - c.overlap
	if step <= 0 {
		step = c.maxSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
