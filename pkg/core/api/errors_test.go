// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{
			name:  "404 is model not found",
			err:   &APIError{Provider: "groq", StatusCode: 404, Message: "not here"},
			check: IsModelNotFound,
			want:  true,
		},
		{
			name:  "decommissioned model",
			err:   &APIError{Provider: "groq", StatusCode: 400, Message: "model llama3-8b has been decommissioned"},
			check: IsModelNotFound,
			want:  true,
		},
		{
			name:  "model_not_found code",
			err:   &APIError{Provider: "groq", StatusCode: 400, Message: `{"error":{"code":"model_not_found"}}`},
			check: IsModelNotFound,
			want:  true,
		},
		{
			name:  "429 is rate limited",
			err:   &APIError{Provider: "groq", StatusCode: 429, Message: "slow down"},
			check: IsRateLimited,
			want:  true,
		},
		{
			name:  "quota phrase is rate limited",
			err:   &APIError{Provider: "gemini", StatusCode: 400, Message: "Quota exceeded for requests"},
			check: IsRateLimited,
			want:  true,
		},
		{
			name:  "daily OCR limit",
			err:   &APIError{Provider: "gemini", StatusCode: 400, Message: "daily OCR processing limit reached"},
			check: IsOCRQuotaExceeded,
			want:  true,
		},
		{
			name:  "401 is auth failure",
			err:   &APIError{Provider: "groq", StatusCode: 401, Message: "unauthorized"},
			check: IsAuthFailure,
			want:  true,
		},
		{
			name:  "invalid api key phrase",
			err:   &APIError{Provider: "gemini", StatusCode: 400, Message: "API key not valid"},
			check: IsAuthFailure,
			want:  true,
		},
		{
			name:  "503 is overloaded",
			err:   &APIError{Provider: "groq", StatusCode: 503, Message: "try later"},
			check: IsOverloaded,
			want:  true,
		},
		{
			name:  "overloaded phrase",
			err:   &APIError{Provider: "gemini", StatusCode: 500, Message: "The model is overloaded"},
			check: IsOverloaded,
			want:  true,
		},
		{
			name:  "service unavailable phrase",
			err:   &APIError{Provider: "gemini", StatusCode: 500, Message: "Service Unavailable"},
			check: IsOverloaded,
			want:  true,
		},
		{
			name:  "plain error is never classified",
			err:   errors.New("connection refused"),
			check: IsOverloaded,
			want:  false,
		},
		{
			name:  "500 is not rate limited",
			err:   &APIError{Provider: "groq", StatusCode: 500, Message: "boom"},
			check: IsRateLimited,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("classification = %v, want %v for %v", got, tt.want, tt.err)
			}
		})
	}
}

func TestAsAPIError_Wrapped(t *testing.T) {
	inner := &APIError{Provider: "groq", StatusCode: 429, Message: "limit"}
	wrapped := fmt.Errorf("send failed: %w", inner)

	apiErr, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatal("expected wrapped APIError to unwrap")
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if !IsRateLimited(wrapped) {
		t.Error("wrapped rate limit error should classify as rate limited")
	}
}
