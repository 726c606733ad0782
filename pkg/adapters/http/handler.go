// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package http is the HTTP adapter: JSON endpoints for extraction, material
// management and chat sessions.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prvr/studychat-gw/pkg/core/chat"
	"github.com/prvr/studychat-gw/pkg/core/materials"
	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/filestore"
	"github.com/prvr/studychat-gw/pkg/observability/logging"
	"github.com/prvr/studychat-gw/pkg/storage"
)

// Handler implements the HTTP adapter
type Handler struct {
	extract   *extractor.Service
	chat      *chat.Manager
	materials *materials.Service
	logger    *logging.Logger
	mux       *http.ServeMux
}

// New creates a new HTTP handler
func New(extract *extractor.Service, chatMgr *chat.Manager, materialsSvc *materials.Service, logger *logging.Logger) *Handler {
	h := &Handler{
		extract:   extract,
		chat:      chatMgr,
		materials: materialsSvc,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	// Register routes
	h.mux.HandleFunc("GET /health", h.handleHealth)

	// Extraction API
	h.mux.HandleFunc("POST /v1/extract", h.handleExtract)

	// Materials API
	h.mux.HandleFunc("POST /v1/materials", h.handleUploadMaterial)
	h.mux.HandleFunc("GET /v1/materials", h.handleListMaterials)
	h.mux.HandleFunc("GET /v1/materials/{id}", h.handleGetMaterial)
	h.mux.HandleFunc("DELETE /v1/materials/{id}", h.handleDeleteMaterial)
	h.mux.HandleFunc("POST /v1/materials/{id}/verify", h.handleVerifyMaterial)
	h.mux.HandleFunc("POST /v1/materials/{id}/extract", h.handleExtractMaterial)
	h.mux.HandleFunc("GET /v1/materials/{id}/file", h.handleMaterialFile)
	h.mux.HandleFunc("GET /v1/files", h.handleListFiles)

	// Chat API
	h.mux.HandleFunc("POST /v1/chat/sessions", h.handleCreateSession)
	h.mux.HandleFunc("GET /v1/chat/sessions/{id}", h.handleGetSession)
	h.mux.HandleFunc("DELETE /v1/chat/sessions/{id}", h.handleDeleteSession)
	h.mux.HandleFunc("POST /v1/chat/sessions/{id}/messages", h.handleSendMessage)
	h.mux.HandleFunc("GET /v1/chat/sessions/{id}/messages", h.handleListMessages)
	h.mux.HandleFunc("DELETE /v1/chat/sessions/{id}/messages", h.handleClearMessages)
	h.mux.HandleFunc("PUT /v1/chat/sessions/{id}/mode", h.handleSetMode)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	h.mux.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// writeDomainError maps service errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, storage.ErrMaterialNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, filestore.ErrFileNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, materials.ErrNoStoredFile):
		h.writeError(w, http.StatusNotFound, "no_stored_file", err.Error())
	case errors.Is(err, chat.ErrBusy):
		h.writeError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, chat.ErrDocumentModeUnavailable):
		h.writeError(w, http.StatusConflict, "document_mode_unavailable", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
