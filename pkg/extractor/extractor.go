// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package extractor converts study materials (PDF, DOCX, PPTX, plain text,
// HTML) into plain text suitable for prompt injection.
//
// Extract never fails outward: unsupported formats, fetch errors and
// unreadable documents all terminate in a Result whose Text carries a
// templated guidance string and whose Failure field says why. Callers decide
// feature availability (e.g. allowing document-grounded chat) from the
// structured Failure, never by sniffing the text.
package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/prvr/studychat-gw/pkg/observability/logging"
)

// Kind identifies a supported document format, resolved once at the service
// boundary from the declared MIME type and filename extension.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindPlainText   Kind = "text"
	KindDOCX        Kind = "docx"
	KindPPTX        Kind = "pptx"
	KindHTML        Kind = "html"
	KindUnsupported Kind = "unsupported"
)

// ResolveKind maps a declared MIME type and filename to a document Kind. The
// MIME type wins when both disagree; the extension is the fallback for the
// common case of object stores that report application/octet-stream. Legacy
// binary Office formats (.doc, .ppt) are deliberately unsupported: there is
// no OLE parser in scope.
func ResolveKind(mimeType, filename string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "application/pdf":
		return KindPDF
	case "text/plain", "text/markdown":
		return KindPlainText
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return KindPPTX
	case "text/html":
		return KindHTML
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".txt", ".md":
		return KindPlainText
	case ".docx":
		return KindDOCX
	case ".pptx":
		return KindPPTX
	case ".html", ".htm":
		return KindHTML
	}

	return KindUnsupported
}

// FailureReason classifies why extraction did not produce usable text.
type FailureReason string

const (
	// ReasonUnsupported means the format is not parseable client-side
	// (legacy .doc/.ppt, images, archives). Expected, not a fault.
	ReasonUnsupported FailureReason = "unsupported_format"
	// ReasonFetch means the document bytes could not be retrieved.
	ReasonFetch FailureReason = "fetch_failed"
	// ReasonParse means the bytes were retrieved but could not be parsed.
	ReasonParse FailureReason = "parse_failed"
	// ReasonNoText means the document parsed but contained no text layer
	// (scanned/image-only or protected PDFs, empty slide decks).
	ReasonNoText FailureReason = "no_text"
	// ReasonTooShort means the extracted text is below the usable minimum.
	ReasonTooShort FailureReason = "too_short"
)

// Failure describes an unusable extraction.
type Failure struct {
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// Request identifies a document to extract.
type Request struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

// CacheKey is the memoization key: two requests for the same URL and
// filename are the same document for the lifetime of the cache entry.
func (r Request) CacheKey() string {
	return r.URL + "|" + r.Filename
}

// Result is the outcome of an extraction. Text is always non-empty: on
// failure it holds guidance for the downstream model instead of document
// content. Usable reports which of the two it is.
type Result struct {
	Text    string   `json:"text"`
	Kind    Kind     `json:"kind"`
	Failure *Failure `json:"failure,omitempty"`
}

// Usable reports whether Text is genuine document content.
func (r Result) Usable() bool {
	return r.Failure == nil
}

// MinTextLen is the minimum extracted length considered real content.
// Anything shorter is treated as a failed extraction.
const MinTextLen = 10

// Service extracts text from documents, memoizing results (successes and
// failures alike) so a retry of the same document never repeats network or
// parsing work within the cache lifetime.
type Service struct {
	source Source
	cache  Cache
	logger *logging.Logger
}

// NewService creates an extraction Service. The cache is injected so tests
// can supply an isolated instance and hosts can choose the backing store.
func NewService(source Source, cache Cache, logger *logging.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Extract converts the referenced document to plain text. It never returns
// an error: every failure path terminates in a Result carrying fallback
// guidance text and a structured Failure.
func (s *Service) Extract(ctx context.Context, req Request) Result {
	key := req.CacheKey()
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("extraction cache hit", "key", key)
		return cached
	}

	res := s.extract(ctx, req)
	s.cache.Set(key, res)

	if res.Usable() {
		s.logger.Info("extracted document",
			"filename", req.Filename,
			"kind", res.Kind,
			"chars", len(res.Text))
	} else {
		s.logger.Warn("extraction fell back to guidance text",
			"filename", req.Filename,
			"kind", res.Kind,
			"reason", res.Failure.Reason,
			"detail", res.Failure.Detail)
	}
	return res
}

func (s *Service) extract(ctx context.Context, req Request) Result {
	kind := ResolveKind(req.MimeType, req.Filename)
	if kind == KindUnsupported {
		// No fetch for formats we cannot parse anyway.
		return fallbackResult(kind, req, ReasonUnsupported, "format "+describeFormat(req))
	}

	content, err := s.source.Fetch(ctx, req.URL)
	if err != nil {
		return fallbackResult(kind, req, ReasonFetch, err.Error())
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = extractPDF(content)
	case KindPlainText:
		text, err = extractPlainText(content)
	case KindDOCX:
		text, err = extractDOCX(content)
	case KindPPTX:
		text, err = extractPPTX(content)
	case KindHTML:
		text, err = extractHTML(content)
	}
	if err != nil {
		if errors.Is(err, errNoText) {
			return fallbackResult(kind, req, ReasonNoText, err.Error())
		}
		return fallbackResult(kind, req, ReasonParse, err.Error())
	}

	text = strings.TrimSpace(text)
	if len(text) < MinTextLen {
		return fallbackResult(kind, req, ReasonTooShort, "extracted text shorter than minimum")
	}

	return Result{Text: text, Kind: kind}
}
