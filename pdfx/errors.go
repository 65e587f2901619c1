package pdfx

import "errors"

var (
	// ErrNotPDF indicates the file could not be parsed as a PDF at all.
	ErrNotPDF = errors.New("file is not a readable pdf")

	// ErrNoText indicates no page yielded any extractable text.
	ErrNoText = errors.New("pdf contains no extractable text")
)
