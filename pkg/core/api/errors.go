// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is the normalized failure shape every backend client returns for
// non-2xx responses. The orchestrator classifies it by status code and body
// text without knowing which provider produced it.
type APIError struct {
	Provider   string // backend name, e.g. "groq", "gemini"
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an *APIError if possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsModelNotFound reports whether the error indicates the requested model
// no longer exists (removed or decommissioned). The orchestrator rotates to
// the next configured model without consuming the retry budget.
func IsModelNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return apiErr.StatusCode == 404 ||
		strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "decommissioned") ||
		strings.Contains(msg, "does not exist")
}

// IsRateLimited reports whether the error is a rate limit or quota rejection.
func IsRateLimited(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return apiErr.StatusCode == 429 || strings.Contains(msg, "quota")
}

// IsOCRQuotaExceeded reports whether the backend rejected the request because
// the daily OCR allowance was exhausted. This is a distinct, provider-specific
// phrase that deserves its own user-facing explanation.
func IsOCRQuotaExceeded(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "ocr") && (strings.Contains(msg, "daily") || strings.Contains(msg, "limit"))
}

// IsAuthFailure reports whether the error indicates a bad or missing API key.
func IsAuthFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return apiErr.StatusCode == 401 || apiErr.StatusCode == 403 || strings.Contains(msg, "api key")
}

// IsOverloaded reports whether the error is a transient server overload that
// is worth retrying with backoff.
func IsOverloaded(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return apiErr.StatusCode == 503 ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "service unavailable")
}
