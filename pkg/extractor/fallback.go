// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// fallbackResult builds the Result for a failed or unsupported extraction.
// The Text is long-form guidance so that downstream prompting still has
// something coherent to work with.
func fallbackResult(kind Kind, req Request, reason FailureReason, detail string) Result {
	return Result{
		Text:    fallbackText(req, reason),
		Kind:    kind,
		Failure: &Failure{Reason: reason, Detail: detail},
	}
}

// fallbackText renders the user- and model-facing placeholder for a document
// whose content is unavailable. Each reason gets its own wording so the
// model can explain the situation instead of hallucinating content.
func fallbackText(req Request, reason FailureReason) string {
	name := req.Filename
	if name == "" {
		name = "this document"
	}

	switch reason {
	case ReasonUnsupported:
		return fmt.Sprintf(
			"This study material is %s named %q. Its content cannot be read automatically, "+
				"so answer questions with general study guidance for this type of material "+
				"rather than content-specific answers.",
			describeFormat(req), name)
	case ReasonFetch:
		return fmt.Sprintf(
			"The study material %q could not be downloaded for text extraction. "+
				"Offer general study guidance and suggest the student open the document directly.",
			name)
	case ReasonNoText:
		return fmt.Sprintf(
			"The document %q contains no machine-readable text. It is likely scanned, "+
				"image-only, or protected. Provide generic study guidance instead of "+
				"content-specific answers.",
			name)
	case ReasonTooShort:
		return fmt.Sprintf(
			"Very little readable text could be extracted from %q, not enough to answer "+
				"content questions reliably. Provide general study guidance instead.",
			name)
	default: // ReasonParse
		return fmt.Sprintf(
			"The document %q could not be fully processed for text extraction. "+
				"Provide general study guidance for this kind of material instead of "+
				"content-specific answers.",
			name)
	}
}

// describeFormat names the document type in plain words for the placeholder.
func describeFormat(req Request) string {
	switch strings.ToLower(filepath.Ext(req.Filename)) {
	case ".doc":
		return "a legacy Microsoft Word document"
	case ".ppt":
		return "a legacy PowerPoint presentation"
	case ".xls":
		return "a legacy Excel spreadsheet"
	}
	if req.MimeType != "" {
		return fmt.Sprintf("a document of type %q", req.MimeType)
	}
	return "a document of an unrecognized type"
}
