// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/prvr/studychat-gw/pkg/core/chat"
	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/storage"
)

type sessionResponse struct {
	ID                  string `json:"id"`
	MaterialID          string `json:"material_id,omitempty"`
	Mode                string `json:"mode"`
	DocumentUsable      bool   `json:"document_usable"`
	DisableDocumentMode bool   `json:"disable_document_mode"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

func toSessionResponse(s *storage.Session) sessionResponse {
	return sessionResponse{
		ID:                  s.ID,
		MaterialID:          s.MaterialID,
		Mode:                s.Mode,
		DocumentUsable:      s.DocumentUsable,
		DisableDocumentMode: s.DisableDocumentMode,
		CreatedAt:           s.CreatedAt.Unix(),
		UpdatedAt:           s.UpdatedAt.Unix(),
	}
}

type messageResponse struct {
	ID               string `json:"id"`
	Role             string `json:"role"`
	Content          string `json:"content"`
	Category         string `json:"category,omitempty"`
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	SwitchedProvider bool   `json:"switched_provider,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}

func toMessageResponse(m *storage.Message) messageResponse {
	return messageResponse{
		ID:               m.ID,
		Role:             m.Role,
		Content:          m.Content,
		Category:         m.Category,
		Provider:         m.Provider,
		Model:            m.Model,
		SwitchedProvider: m.SwitchedProvider,
		CreatedAt:        m.CreatedAt.Unix(),
	}
}

type createSessionRequest struct {
	MaterialID string `json:"material_id,omitempty"`
	Document   *struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		MimeType string `json:"mime_type"`
	} `json:"document,omitempty"`
}

// handleCreateSession handles POST /v1/chat/sessions. A session may be bound
// to a registered material, to a direct document reference, or to nothing.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	opts := chat.CreateSessionOptions{MaterialID: req.MaterialID}
	switch {
	case req.Document != nil:
		opts.Document = &extractor.Request{
			URL:      req.Document.URL,
			Filename: req.Document.Filename,
			MimeType: req.Document.MimeType,
		}
	case req.MaterialID != "":
		m, err := h.materials.Get(r.Context(), req.MaterialID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		doc := h.materials.ExtractionRequest(m)
		opts.Document = &doc
	}

	session, err := h.chat.CreateSession(r.Context(), opts)
	if err != nil {
		h.logger.Error("Failed to create session", "error", err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// handleGetSession handles GET /v1/chat/sessions/{id}
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// handleDeleteSession handles DELETE /v1/chat/sessions/{id}
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.chat.DeleteSession(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage messageResponse `json:"user_message"`
	Reply       messageResponse `json:"reply"`
	Notice      string          `json:"notice,omitempty"`
}

// handleSendMessage handles POST /v1/chat/sessions/{id}/messages. The
// response always carries a reply entry: the assistant answer or a
// categorized error message, with an optional transient notice.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	res, err := h.chat.SendMessage(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage: toMessageResponse(res.UserMessage),
		Reply:       toMessageResponse(res.Reply),
		Notice:      res.Notice,
	})
}

// handleListMessages handles GET /v1/chat/sessions/{id}/messages
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.ListMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	data := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, toMessageResponse(m))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
	})
}

// handleClearMessages handles DELETE /v1/chat/sessions/{id}/messages
func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.ClearMessages(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": true,
	})
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// handleSetMode handles PUT /v1/chat/sessions/{id}/mode
func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	if req.Mode != chat.ModeDocument && req.Mode != chat.ModeGlobal {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "mode must be \"document\" or \"global\"")
		return
	}

	session, err := h.chat.SetMode(r.Context(), r.PathValue("id"), req.Mode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionResponse(session))
}
