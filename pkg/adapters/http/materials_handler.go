// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prvr/studychat-gw/pkg/core/materials"
	"github.com/prvr/studychat-gw/pkg/filestore"
	"github.com/prvr/studychat-gw/pkg/storage"
)

const (
	maxUploadSize = 64 * 1024 * 1024 // 64 MB
)

type materialResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subject    string `json:"subject,omitempty"`
	Course     string `json:"course,omitempty"`
	Filename   string `json:"filename,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Status     string `json:"status"`
	UploadedBy string `json:"uploaded_by,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

func toMaterialResponse(m *storage.Material) materialResponse {
	return materialResponse{
		ID:         m.ID,
		Title:      m.Title,
		Subject:    m.Subject,
		Course:     m.Course,
		Filename:   m.Filename,
		MimeType:   m.MimeType,
		FileID:     m.FileID,
		SourceURL:  m.SourceURL,
		Status:     m.Status,
		UploadedBy: m.UploadedBy,
		CreatedAt:  m.CreatedAt.Unix(),
	}
}

// handleUploadMaterial handles POST /v1/materials. The multipart form
// carries either a "file" part or a "source_url" field.
func (h *Handler) handleUploadMaterial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.logger.Error("Failed to parse multipart form", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return
	}

	in := materials.UploadInput{
		Title:      r.FormValue("title"),
		Subject:    r.FormValue("subject"),
		Course:     r.FormValue("course"),
		UploadedBy: r.FormValue("uploaded_by"),
		SourceURL:  r.FormValue("source_url"),
		Filename:   r.FormValue("filename"),
		MimeType:   r.FormValue("mime_type"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			h.logger.Error("Failed to read upload", "error", err)
			h.writeError(w, http.StatusInternalServerError, "read_error", "Failed to read file content")
			return
		}
		in.Content = content
		if in.Filename == "" {
			in.Filename = header.Filename
		}
		if in.MimeType == "" {
			in.MimeType = header.Header.Get("Content-Type")
		}
	}

	m, err := h.materials.Upload(r.Context(), in)
	if err != nil {
		h.logger.Error("Failed to create material", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	h.logger.Info("Material uploaded", "material_id", m.ID, "title", m.Title)
	h.writeJSON(w, http.StatusOK, toMaterialResponse(m))
}

// handleListMaterials handles GET /v1/materials
func (h *Handler) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	after := query.Get("after")
	before := query.Get("before")
	status := query.Get("status")
	order := query.Get("order")
	if order == "" {
		order = "desc"
	}

	limit := 50
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	list, hasMore, err := h.materials.List(r.Context(), after, before, limit, order, status)
	if err != nil {
		h.logger.Error("Failed to list materials", "error", err)
		h.writeDomainError(w, err)
		return
	}

	data := make([]materialResponse, 0, len(list))
	for _, m := range list {
		data = append(data, toMaterialResponse(m))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     data,
		"has_more": hasMore,
	})
}

// handleGetMaterial handles GET /v1/materials/{id}
func (h *Handler) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := h.materials.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toMaterialResponse(m))
}

// handleDeleteMaterial handles DELETE /v1/materials/{id}
func (h *Handler) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.materials.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// handleVerifyMaterial handles POST /v1/materials/{id}/verify. The optional
// body selects the moderation outcome; the default is verified.
func (h *Handler) handleVerifyMaterial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Status == "" {
		req.Status = materials.StatusVerified
	}

	m, err := h.materials.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		if errors.Is(err, storage.ErrMaterialNotFound) {
			h.writeDomainError(w, err)
		} else {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toMaterialResponse(m))
}

// handleExtractMaterial handles POST /v1/materials/{id}/extract
func (h *Handler) handleExtractMaterial(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.materials.ExtractText(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.logger.Info("Material extracted",
		"material_id", r.PathValue("id"),
		"kind", res.Kind,
		"usable", res.Usable(),
		"duration", time.Since(start))

	h.writeJSON(w, http.StatusOK, extractResponse{
		Text:    res.Text,
		Kind:    res.Kind,
		Usable:  res.Usable(),
		Failure: res.Failure,
	})
}

type fileResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type,omitempty"`
	Bytes     int64  `json:"bytes"`
	Checksum  string `json:"checksum,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toFileResponse(f *filestore.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		Filename:  f.Filename,
		MimeType:  f.MimeType,
		Bytes:     f.Bytes,
		Checksum:  f.Checksum,
		CreatedAt: f.CreatedAt.Unix(),
	}
}

// handleMaterialFile handles GET /v1/materials/{id}/file. It reports the
// stored content metadata for uploads; URL-backed materials answer 404.
func (h *Handler) handleMaterialFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.materials.FileInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toFileResponse(f))
}

// handleListFiles handles GET /v1/files, the admin view of the content store.
func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	after := query.Get("after")
	before := query.Get("before")
	order := query.Get("order")
	if order == "" {
		order = "desc"
	}

	limit := 50
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	files, hasMore, err := h.materials.Files(r.Context(), after, before, limit, order)
	if err != nil {
		h.logger.Error("Failed to list files", "error", err)
		h.writeDomainError(w, err)
		return
	}

	data := make([]fileResponse, 0, len(files))
	for _, f := range files {
		data = append(data, toFileResponse(f))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     data,
		"has_more": hasMore,
	})
}
