// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the persistence interface for chat sessions,
// transcripts and material records, with pluggable backends (memory, sqlite,
// postgres) registered through the provider registry.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/prvr/studychat-gw/pkg/provider"
)

// ErrSessionNotFound is returned when a chat session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrMaterialNotFound is returned when a material record does not exist.
var ErrMaterialNotFound = errors.New("material not found")

// Providers is the registry of storage backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/prvr/studychat-gw/pkg/storage/memory"
//	import _ "github.com/prvr/studychat-gw/pkg/storage/sqlite"
//	import _ "github.com/prvr/studychat-gw/pkg/storage/postgres"
var Providers = provider.NewRegistry[Store]("storage")

// Session is one chat session, optionally grounded in an extracted document.
type Session struct {
	ID                  string
	MaterialID          string // empty for free-standing sessions
	Mode                string // "document" or "global"
	DocumentText        string
	DocumentUsable      bool
	DisableDocumentMode bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Message is one transcript entry. Role is "user" or "ai"; error replies are
// ai messages carrying a Category. The transcript is append-only until the
// session is cleared wholesale.
type Message struct {
	ID               string
	Role             string
	Content          string
	Category         string // error category for categorized failure replies
	Provider         string // backend that produced an ai reply
	Model            string
	SwitchedProvider bool // reply came from the fallback provider
	CreatedAt        time.Time
}

// Material is an uploaded or linked study material record.
type Material struct {
	ID         string
	Title      string
	Subject    string
	Course     string
	Filename   string
	MimeType   string
	FileID     string // set when the content lives in the filestore
	SourceURL  string // set when the content lives at a remote URL
	Status     string // "pending", "verified", "rejected"
	UploadedBy string
	CreatedAt  time.Time
}

// SessionStore persists chat sessions and their transcripts.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// AppendMessage adds one transcript entry; ListMessages returns the
	// transcript in append order. ClearMessages wipes the transcript but
	// keeps the session.
	AppendMessage(ctx context.Context, sessionID string, msg *Message) error
	ListMessages(ctx context.Context, sessionID string) ([]*Message, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// MaterialStore persists material records.
type MaterialStore interface {
	CreateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, materialID string) (*Material, error)
	UpdateMaterial(ctx context.Context, m *Material) error
	DeleteMaterial(ctx context.Context, materialID string) error
	// ListMaterialsPaginated returns materials sorted by CreatedAt with
	// cursor-based pagination, optionally filtered by status.
	ListMaterialsPaginated(ctx context.Context, after, before string, limit int, order, status string) ([]*Material, bool, error)
}

// Store is the full persistence surface a backend implements.
type Store interface {
	SessionStore
	MaterialStore
	Close(ctx context.Context) error
}
