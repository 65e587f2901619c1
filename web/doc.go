// Package web provides outbound retrieval: keyword search through
// DuckDuckGo's lite HTML interface and best-effort page scraping that
// reduces HTML to plain text.
//
// Both the searcher and the scraper are defined as small interfaces so
// the pipeline can be tested without network access.
package web
