// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore stores the raw bytes of uploaded study materials.
// Metadata about a material (title, subject, moderation status) lives in the
// storage layer; the filestore only knows about content blobs.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prvr/studychat-gw/pkg/provider"
)

// ErrFileNotFound is returned when a file does not exist.
var ErrFileNotFound = errors.New("file not found")

// Providers is the registry of file store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/prvr/studychat-gw/pkg/filestore/memory"
//	import _ "github.com/prvr/studychat-gw/pkg/filestore/filesystem"
//	import _ "github.com/prvr/studychat-gw/pkg/filestore/s3"
var Providers = provider.NewRegistry[FileStore]("file_store")

// File is one stored material blob. Checksum is the hex SHA-256 of the
// content, computed at upload time and kept with the metadata so downloads
// can be verified end to end.
type File struct {
	ID        string
	Filename  string
	MimeType  string
	Bytes     int64
	Content   []byte // populated for PutFile input; nil on StatFile output
	Checksum  string
	CreatedAt time.Time
}

// Checksum computes the hex SHA-256 digest filestore backends record for
// uploaded content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileStore defines the interface for pluggable material content backends.
type FileStore interface {
	// PutFile stores content and metadata for a new file ID.
	PutFile(ctx context.Context, file *File) error
	// StatFile returns metadata only; Content is nil.
	StatFile(ctx context.Context, fileID string) (*File, error)
	// ReadFile returns the raw content bytes.
	ReadFile(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
	// ListFilesPaginated returns files sorted by CreatedAt with
	// cursor-based pagination.
	ListFilesPaginated(ctx context.Context, after, before string, limit int, order string) ([]*File, bool, error)
	Close(ctx context.Context) error
}
