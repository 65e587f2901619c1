package web

import "errors"

var (
	// ErrEmptyQuery is returned when a search is attempted with an empty query.
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrEmptyURL is returned when a scrape is attempted with an empty URL.
	ErrEmptyURL = errors.New("scrape url must not be empty")

	// ErrBadStatus is returned when a remote server answers with a
	// non-200 status.
	ErrBadStatus = errors.New("unexpected http status")
)
