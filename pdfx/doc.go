// Package pdfx extracts plain text from PDF files for ingestion.
// Extraction is best-effort per page: unreadable pages are skipped and
// counted instead of failing the whole document.
package pdfx
