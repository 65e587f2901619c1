// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pdfx

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction is the result of pulling plain text out of a PDF. A file
// with some unreadable pages still yields the text of the readable
// ones; FailedPages records how many were skipped.
type Extraction struct {
	Text        string
	TotalPages  int
	FailedPages int
}

// Extractor pulls plain text from PDF files page by page.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: slog.Default().With("component", "pdf-extractor"),
	}
}

// ExtractFile reads the PDF at path and returns its plain text.
// Pages that fail to decode are skipped and counted rather than
// aborting the whole file; only a fully unreadable file is an error.
func (e *Extractor) ExtractFile(path string) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	var text strings.Builder
	extraction := &Extraction{TotalPages: reader.NumPage()}

	for i := 1; i <= extraction.TotalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			extraction.FailedPages++
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("skipping unreadable page", "path", path, "page", i, "err", err)
			extraction.FailedPages++
			continue
		}

		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	extraction.Text = text.String()
	if extraction.Text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}

	if extraction.FailedPages > 0 {
		e.logger.Warn("pdf extracted with failed pages",
			"path", path, "total", extraction.TotalPages, "failed", extraction.FailedPages)
	}
	return extraction, nil
}
