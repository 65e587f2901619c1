package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is generated using content-based hashing so that identical content
// produces identical IDs, which dedupes re-ingested chunks.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String returns the hexadecimal representation used as a vector document ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem is an instruction message that frames the model's behavior.
	RoleSystem Role = "system"
	// RoleUser is a message authored by the human user.
	RoleUser Role = "user"
	// RoleAssistant is a message authored by the model.
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn, used both for prompt history
// and for persistence.
type Message struct {
	Role    Role
	Content string
}

// Chunk is a bounded segment of a larger document, produced by the chunker
// and consumed by the embedding step. Immutable once produced.
type Chunk struct {
	Text     string
	Index    int
	Metadata map[string]string
}

// RetrievedItem is a single nearest-neighbor hit from the vector store.
// Distance is a similarity cost: 0 means identical, larger means less
// similar. Read-only downstream of the search that produced it.
type RetrievedItem struct {
	Text       string
	Metadata   map[string]string
	Distance   float64
	Collection string
	Id         string
}

// WebResult is one usable web search hit: the engine's title and URL plus
// either the scraped page text or, when scraping failed, the short snippet.
type WebResult struct {
	Title   string
	URL     string
	Content string
	Snippet string
}

// SourceBundle is the union of everything gathered for one query just
// before synthesis. Transient: built fresh per query and never persisted
// directly, only its rendered prompt text and flattened source labels are.
type SourceBundle struct {
	VectorResults     []RetrievedItem
	KnowledgeResponse string
	WebResults        []WebResult
}

// Empty reports whether the bundle carries no usable source material.
func (b *SourceBundle) Empty() bool {
	return len(b.VectorResults) == 0 && b.KnowledgeResponse == "" && len(b.WebResults) == 0
}

// QueryContext carries per-query state threaded through the pipeline stages.
// Embedding is the query embedding computed once by the retrieval stage;
// later stages reuse it instead of recomputing.
type QueryContext struct {
	Query     string
	History   []Message
	Embedding []float32
}

// StoredMessage is a conversation message as handed to persistence:
// the message itself plus the flattened source labels and the full
// serialized trace of the query that produced it.
type StoredMessage struct {
	Role       Role
	Content    string
	Sources    []string
	Trace      []byte // JSON-encoded trace, stored verbatim
	InsertedAt time.Time
}
