// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/prvr/studychat-gw/pkg/extractor"
)

type extractRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

type extractResponse struct {
	Text    string             `json:"text"`
	Kind    extractor.Kind     `json:"kind"`
	Usable  bool               `json:"usable"`
	Failure *extractor.Failure `json:"failure,omitempty"`
}

// handleExtract handles POST /v1/extract. It always answers 200: extraction
// problems are reported in the body, never as HTTP errors.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	res := h.extract.Extract(r.Context(), extractor.Request{
		URL:      req.URL,
		Filename: req.Filename,
		MimeType: req.MimeType,
	})

	h.writeJSON(w, http.StatusOK, extractResponse{
		Text:    res.Text,
		Kind:    res.Kind,
		Usable:  res.Usable(),
		Failure: res.Failure,
	})
}
