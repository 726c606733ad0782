// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// errNoText marks a document that parsed but yielded no text layer.
var errNoText = errors.New("no extractable text")

// extractPDF extracts text page by page with "--- Page N ---" delimiters so
// the downstream model can reason about page boundaries. A page that fails
// to decode is skipped rather than aborting the rest; a PDF whose pages all
// come back empty (image-only or protected) reports errNoText.
func extractPDF(content []byte) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n%s", i, pageText)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w across %d pages", errNoText, numPages)
	}
	return sb.String(), nil
}
