// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite implements storage.Store on an embedded SQLite database.
// It is the single-node deployment default: no external service, one file
// on disk, and ":memory:" for throwaway instances.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/prvr/studychat-gw/pkg/storage"

	_ "modernc.org/sqlite"
)

func init() {
	storage.Providers.Register("sqlite", func(_ context.Context, params map[string]string) (storage.Store, error) {
		dsn := params["dsn"]
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store requires a dsn parameter")
		}
		return New(dsn)
	})
}

// compile-time check
var _ storage.Store = (*Store)(nil)

// Store is a SQLite-backed implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store. The dsn is a file path or ":memory:".
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			material_id TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT 'global',
			document_text TEXT NOT NULL DEFAULT '',
			document_usable INTEGER NOT NULL DEFAULT 0,
			disable_document_mode INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			switched_provider INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_position ON messages(session_id, position)`,
		`CREATE TABLE IF NOT EXISTS materials (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			course TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			file_id TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			uploaded_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_materials_created ON materials(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_materials_status ON materials(status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite create tables: %w", err)
		}
	}
	return nil
}

// --- Session methods ---

func (s *Store) CreateSession(ctx context.Context, session *storage.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, material_id, mode, document_text, document_usable, disable_document_mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.MaterialID, session.Mode, session.DocumentText,
		session.DocumentUsable, session.DisableDocumentMode,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, material_id, mode, document_text, document_usable, disable_document_mode, created_at, updated_at
		 FROM sessions WHERE id = ?`, sessionID)

	var sess storage.Session
	err := row.Scan(&sess.ID, &sess.MaterialID, &sess.Mode, &sess.DocumentText,
		&sess.DocumentUsable, &sess.DisableDocumentMode, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, session *storage.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET material_id=?, mode=?, document_text=?, document_usable=?,
		        disable_document_mode=?, updated_at=?
		 WHERE id=?`,
		session.MaterialID, session.Mode, session.DocumentText, session.DocumentUsable,
		session.DisableDocumentMode, session.UpdatedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s: %w", session.ID, storage.ErrSessionNotFound)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id=?`, sessionID)
	return nil
}

// --- Message methods ---

func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg *storage.Message) error {
	if err := s.checkSession(ctx, sessionID); err != nil {
		return err
	}

	var maxPos int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) FROM messages WHERE session_id=?`,
		sessionID).Scan(&maxPos)
	if err != nil {
		return fmt.Errorf("get max position: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, category, provider, model, switched_provider, created_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, msg.Role, msg.Content, msg.Category,
		msg.Provider, msg.Model, msg.SwitchedProvider, msg.CreatedAt, maxPos+1,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]*storage.Message, error) {
	if err := s.checkSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, category, provider, model, switched_provider, created_at
		 FROM messages WHERE session_id=? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []*storage.Message{}
	for rows.Next() {
		var msg storage.Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.Category,
			&msg.Provider, &msg.Model, &msg.SwitchedProvider, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	if err := s.checkSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id=?`, sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func (s *Store) checkSession(ctx context.Context, sessionID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id=?`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	return nil
}

// --- Material methods ---

func (s *Store) CreateMaterial(ctx context.Context, m *storage.Material) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (id, title, subject, course, filename, mime_type, file_id, source_url, status, uploaded_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Subject, m.Course, m.Filename, m.MimeType,
		m.FileID, m.SourceURL, m.Status, m.UploadedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("material %s already exists", m.ID)
	}
	return nil
}

func (s *Store) GetMaterial(ctx context.Context, materialID string) (*storage.Material, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, subject, course, filename, mime_type, file_id, source_url, status, uploaded_by, created_at
		 FROM materials WHERE id = ?`, materialID)

	var m storage.Material
	err := row.Scan(&m.ID, &m.Title, &m.Subject, &m.Course, &m.Filename, &m.MimeType,
		&m.FileID, &m.SourceURL, &m.Status, &m.UploadedBy, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("material %s: %w", materialID, storage.ErrMaterialNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

func (s *Store) UpdateMaterial(ctx context.Context, m *storage.Material) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE materials SET title=?, subject=?, course=?, filename=?, mime_type=?,
		        file_id=?, source_url=?, status=?, uploaded_by=?
		 WHERE id=?`,
		m.Title, m.Subject, m.Course, m.Filename, m.MimeType,
		m.FileID, m.SourceURL, m.Status, m.UploadedBy, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("material %s: %w", m.ID, storage.ErrMaterialNotFound)
	}
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, materialID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE id=?`, materialID); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

func (s *Store) ListMaterialsPaginated(ctx context.Context, after, before string, limit int, order, status string) ([]*storage.Material, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	query := `SELECT id, title, subject, course, filename, mime_type, file_id, source_url, status, uploaded_by, created_at
	          FROM materials`
	var args []interface{}
	var where []string

	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	// Cursor direction follows the sort order: "after" always means further
	// down the listed page, so it compares > when ascending and < when
	// descending.
	afterCmp, beforeCmp := ">", "<"
	if order == "desc" {
		afterCmp, beforeCmp = "<", ">"
	}
	if after != "" {
		where = append(where, fmt.Sprintf("created_at %s (SELECT created_at FROM materials WHERE id = ?)", afterCmp))
		args = append(args, after)
	}
	if before != "" {
		where = append(where, fmt.Sprintf("created_at %s (SELECT created_at FROM materials WHERE id = ?)", beforeCmp))
		args = append(args, before)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at %s LIMIT ?", order)
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list materials paginated: %w", err)
	}
	defer rows.Close()

	var materials []*storage.Material
	for rows.Next() {
		var m storage.Material
		if err := rows.Scan(&m.ID, &m.Title, &m.Subject, &m.Course, &m.Filename, &m.MimeType,
			&m.FileID, &m.SourceURL, &m.Status, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(materials) > limit
	if hasMore {
		materials = materials[:limit]
	}
	return materials, hasMore, nil
}
