package vector

import "errors"

var (
	// ErrUnknownCollection is returned when an operation names a collection
	// the store does not manage.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrLengthMismatch is returned when the number of documents and the
	// number of embeddings passed to AddDocuments differ.
	ErrLengthMismatch = errors.New("documents and embeddings length mismatch")

	// ErrMissingEmbedding is returned when a document reaches the store
	// without a precomputed embedding. The store never computes embeddings
	// itself; callers embed first and pass vectors in.
	ErrMissingEmbedding = errors.New("document missing precomputed embedding")

	// ErrEmptyQuery is returned when a search is attempted with an empty
	// query embedding.
	ErrEmptyQuery = errors.New("query embedding must not be empty")
)
