// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prvr/studychat-gw/pkg/storage"
)

func init() {
	storage.Providers.Register("memory", func(_ context.Context, _ map[string]string) (storage.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ storage.Store = (*Store)(nil)

// Store is an in-memory implementation of storage.Store. Sessions, their
// transcripts and material records live in maps guarded by one RWMutex.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*storage.Session
	messages  map[string][]*storage.Message
	materials map[string]*storage.Material
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]*storage.Session),
		messages:  make(map[string][]*storage.Message),
		materials: make(map[string]*storage.Material),
	}
}

// CreateSession creates a new session.
func (s *Store) CreateSession(_ context.Context, session *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(_ context.Context, sessionID string) (*storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}

	cp := *session
	return &cp, nil
}

// UpdateSession updates an existing session.
func (s *Store) UpdateSession(_ context.Context, session *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("session %s: %w", session.ID, storage.ErrSessionNotFound)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// DeleteSession deletes a session and its transcript.
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

// AppendMessage adds one transcript entry.
func (s *Store) AppendMessage(_ context.Context, sessionID string, msg *storage.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}

	cp := *msg
	s.messages[sessionID] = append(s.messages[sessionID], &cp)
	return nil
}

// ListMessages returns the transcript in append order.
func (s *Store) ListMessages(_ context.Context, sessionID string) ([]*storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}

	out := make([]*storage.Message, 0, len(s.messages[sessionID]))
	for _, msg := range s.messages[sessionID] {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

// ClearMessages wipes the transcript but keeps the session.
func (s *Store) ClearMessages(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}

	delete(s.messages, sessionID)
	return nil
}

// CreateMaterial creates a new material record.
func (s *Store) CreateMaterial(_ context.Context, m *storage.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.materials[m.ID]; exists {
		return fmt.Errorf("material %s already exists", m.ID)
	}

	cp := *m
	s.materials[m.ID] = &cp
	return nil
}

// GetMaterial retrieves a material record by ID.
func (s *Store) GetMaterial(_ context.Context, materialID string) (*storage.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.materials[materialID]
	if !exists {
		return nil, fmt.Errorf("material %s: %w", materialID, storage.ErrMaterialNotFound)
	}

	cp := *m
	return &cp, nil
}

// UpdateMaterial updates an existing material record.
func (s *Store) UpdateMaterial(_ context.Context, m *storage.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.materials[m.ID]; !exists {
		return fmt.Errorf("material %s: %w", m.ID, storage.ErrMaterialNotFound)
	}

	cp := *m
	s.materials[m.ID] = &cp
	return nil
}

// DeleteMaterial deletes a material record.
func (s *Store) DeleteMaterial(_ context.Context, materialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.materials, materialID)
	return nil
}

// ListMaterialsPaginated returns materials sorted by creation time with
// cursor-based pagination. after/before are material IDs; order is "asc" or
// "desc"; status filters when non-empty. The second return reports whether
// more results remain past the page.
func (s *Store) ListMaterialsPaginated(_ context.Context, after, before string, limit int, order, status string) ([]*storage.Material, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*storage.Material, 0, len(s.materials))
	for _, m := range s.materials {
		if status != "" && m.Status != status {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}

	sort.Slice(all, func(i, j int) bool {
		if order == "desc" {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].ID > all[j].ID
		}
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	start := 0
	if after != "" {
		for i, m := range all {
			if m.ID == after {
				start = i + 1
				break
			}
		}
	}
	end := len(all)
	if before != "" {
		for i, m := range all {
			if m.ID == before {
				end = i
				break
			}
		}
	}
	if start > end {
		start = end
	}

	page := all[start:end]
	hasMore := false
	if limit > 0 && len(page) > limit {
		page = page[:limit]
		hasMore = true
	}
	return page, hasMore, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
