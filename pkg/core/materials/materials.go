// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package materials manages uploaded study materials: content storage,
// catalog records, moderation status and text extraction.
package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/filestore"
	"github.com/prvr/studychat-gw/pkg/observability/logging"
	"github.com/prvr/studychat-gw/pkg/storage"
)

// Moderation states for a material record. Only verified materials are
// surfaced to students by default.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// fileStoreScheme prefixes pseudo-URLs that resolve to stored uploads
// instead of remote documents.
const fileStoreScheme = "filestore://"

// NewFileStoreSource returns an extractor.Source that resolves
// "filestore://<file_id>" references against files and delegates every other
// URL to remote. It lets one extraction service serve both uploaded and
// linked materials.
func NewFileStoreSource(files filestore.FileStore, remote extractor.Source) extractor.Source {
	return extractor.SourceFunc(func(ctx context.Context, url string) ([]byte, error) {
		if fileID, ok := strings.CutPrefix(url, fileStoreScheme); ok {
			return files.ReadFile(ctx, fileID)
		}
		return remote.Fetch(ctx, url)
	})
}

// Service owns the material lifecycle.
type Service struct {
	store   storage.MaterialStore
	files   filestore.FileStore
	extract *extractor.Service
	logger  *logging.Logger
}

// NewService creates a materials Service. The extractor must be built over a
// NewFileStoreSource-wrapped source so uploads are resolvable.
func NewService(store storage.MaterialStore, files filestore.FileStore, extract *extractor.Service, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{store: store, files: files, extract: extract, logger: logger}
}

// UploadInput describes a new material. Exactly one of Content or SourceURL
// must be set: Content goes to the filestore, SourceURL is recorded as a
// remote reference.
type UploadInput struct {
	Title      string
	Subject    string
	Course     string
	Filename   string
	MimeType   string
	UploadedBy string
	Content    []byte
	SourceURL  string
}

// Upload registers a new material in pending status.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*storage.Material, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("material title is required")
	}
	if (len(in.Content) == 0) == (in.SourceURL == "") {
		return nil, fmt.Errorf("exactly one of content or source_url is required")
	}

	m := &storage.Material{
		ID:         "mat_" + uuid.NewString(),
		Title:      in.Title,
		Subject:    in.Subject,
		Course:     in.Course,
		Filename:   in.Filename,
		MimeType:   in.MimeType,
		SourceURL:  in.SourceURL,
		Status:     StatusPending,
		UploadedBy: in.UploadedBy,
		CreatedAt:  time.Now().UTC(),
	}

	if len(in.Content) > 0 {
		file := &filestore.File{
			ID:        "file_" + uuid.NewString(),
			Filename:  in.Filename,
			MimeType:  in.MimeType,
			Bytes:     int64(len(in.Content)),
			Content:   in.Content,
			Checksum:  filestore.Checksum(in.Content),
			CreatedAt: m.CreatedAt,
		}
		if err := s.files.PutFile(ctx, file); err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		m.FileID = file.ID
	}

	if err := s.store.CreateMaterial(ctx, m); err != nil {
		if m.FileID != "" {
			_ = s.files.DeleteFile(ctx, m.FileID)
		}
		return nil, fmt.Errorf("create material: %w", err)
	}

	s.logger.Info("material uploaded",
		"material_id", m.ID,
		"title", m.Title,
		"bytes", len(in.Content),
		"source_url", m.SourceURL)
	return m, nil
}

// Get returns one material record.
func (s *Service) Get(ctx context.Context, materialID string) (*storage.Material, error) {
	return s.store.GetMaterial(ctx, materialID)
}

// List returns materials with cursor pagination. An empty status returns all.
func (s *Service) List(ctx context.Context, after, before string, limit int, order, status string) ([]*storage.Material, bool, error) {
	return s.store.ListMaterialsPaginated(ctx, after, before, limit, order, status)
}

// SetStatus moves a material through moderation.
func (s *Service) SetStatus(ctx context.Context, materialID, status string) (*storage.Material, error) {
	switch status {
	case StatusPending, StatusVerified, StatusRejected:
	default:
		return nil, fmt.Errorf("unknown material status: %q", status)
	}

	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}

	m.Status = status
	if err := s.store.UpdateMaterial(ctx, m); err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}

	s.logger.Info("material status changed", "material_id", m.ID, "status", status)
	return m, nil
}

// Delete removes the record and, for uploads, the stored content.
func (s *Service) Delete(ctx context.Context, materialID string) error {
	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMaterial(ctx, materialID); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if m.FileID != "" {
		if err := s.files.DeleteFile(ctx, m.FileID); err != nil {
			s.logger.Warn("orphaned material content", "file_id", m.FileID, "error", err)
		}
	}
	return nil
}

// ErrNoStoredFile marks a material that references a remote URL instead of
// an uploaded file.
var ErrNoStoredFile = errors.New("material has no stored file")

// FileInfo returns the stored content metadata (size, checksum) for an
// uploaded material.
func (s *Service) FileInfo(ctx context.Context, materialID string) (*filestore.File, error) {
	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if m.FileID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoStoredFile, materialID)
	}
	return s.files.StatFile(ctx, m.FileID)
}

// Files lists stored material content with cursor pagination. This is the
// admin's view of the content store itself, including uploads whose catalog
// record has been lost.
func (s *Service) Files(ctx context.Context, after, before string, limit int, order string) ([]*filestore.File, bool, error) {
	return s.files.ListFilesPaginated(ctx, after, before, limit, order)
}

// ExtractText resolves the material to its content reference and runs the
// extractor. Like the extractor itself it never fails on document problems;
// the only error is an unknown material.
func (s *Service) ExtractText(ctx context.Context, materialID string) (extractor.Result, error) {
	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return extractor.Result{}, err
	}
	return s.extract.Extract(ctx, s.ExtractionRequest(m)), nil
}

// ExtractionRequest builds the extractor request for a material, pointing at
// the filestore for uploads and at the remote URL otherwise.
func (s *Service) ExtractionRequest(m *storage.Material) extractor.Request {
	url := m.SourceURL
	if m.FileID != "" {
		url = fileStoreScheme + m.FileID
	}
	return extractor.Request{
		URL:      url,
		Filename: m.Filename,
		MimeType: m.MimeType,
	}
}
