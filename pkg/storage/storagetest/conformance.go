// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package storagetest provides a shared conformance test suite for
// storage.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prvr/studychat-gw/pkg/storage"
)

func makeSession(id string) *storage.Session {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &storage.Session{
		ID:             id,
		Mode:           "document",
		DocumentText:   "--- Page 1 ---\nPhotosynthesis overview",
		DocumentUsable: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func makeMessage(id, role, content string) *storage.Message {
	return &storage.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func makeMaterial(id, status string, createdAt time.Time) *storage.Material {
	return &storage.Material{
		ID:        id,
		Title:     "Biology Notes " + id,
		Subject:   "Biology",
		Course:    "BIO-101",
		Filename:  id + ".pdf",
		MimeType:  "application/pdf",
		Status:    status,
		CreatedAt: createdAt,
	}
}

// RunConformanceTests exercises a storage.Store implementation against the
// shared contract. The newStore function is called once per sub-test to
// provide an isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("SessionCreateAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		s := makeSession("sess_1")
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}

		got, err := store.GetSession(ctx, "sess_1")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if got.ID != s.ID || got.Mode != s.Mode || got.DocumentText != s.DocumentText {
			t.Errorf("GetSession returned unexpected session: %+v", got)
		}
		if !got.DocumentUsable {
			t.Errorf("expected DocumentUsable=true")
		}
	})

	t.Run("SessionUpdate", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		s := makeSession("sess_upd")
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}

		s.Mode = "global"
		s.DisableDocumentMode = true
		if err := store.UpdateSession(ctx, s); err != nil {
			t.Fatalf("UpdateSession: %v", err)
		}

		got, err := store.GetSession(ctx, "sess_upd")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if got.Mode != "global" || !got.DisableDocumentMode {
			t.Errorf("update not persisted: %+v", got)
		}
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		_, err := store.GetSession(ctx, "sess_nonexistent")
		if !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("GetSession expected ErrSessionNotFound, got: %v", err)
		}

		err = store.UpdateSession(ctx, makeSession("sess_nonexistent"))
		if !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("UpdateSession expected ErrSessionNotFound, got: %v", err)
		}
	})

	t.Run("SessionDelete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateSession(ctx, makeSession("sess_del")); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if err := store.AppendMessage(ctx, "sess_del", makeMessage("msg_1", "user", "hi")); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		if err := store.DeleteSession(ctx, "sess_del"); err != nil {
			t.Fatalf("DeleteSession: %v", err)
		}

		_, err := store.GetSession(ctx, "sess_del")
		if !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound after delete, got: %v", err)
		}
	})

	t.Run("MessagesAppendOrder", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateSession(ctx, makeSession("sess_msgs")); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}

		entries := []struct {
			id, role, content string
		}{
			{"msg_1", "user", "What is photosynthesis?"},
			{"msg_2", "ai", "It converts light into chemical energy."},
			{"msg_3", "user", "Where does it happen?"},
		}
		for _, e := range entries {
			if err := store.AppendMessage(ctx, "sess_msgs", makeMessage(e.id, e.role, e.content)); err != nil {
				t.Fatalf("AppendMessage(%s): %v", e.id, err)
			}
		}

		got, err := store.ListMessages(ctx, "sess_msgs")
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(got) != len(entries) {
			t.Fatalf("expected %d messages, got %d", len(entries), len(got))
		}
		for i, e := range entries {
			if got[i].ID != e.id || got[i].Role != e.role || got[i].Content != e.content {
				t.Errorf("message %d mismatch: %+v", i, got[i])
			}
		}
	})

	t.Run("MessagesMetadata", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateSession(ctx, makeSession("sess_meta")); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}

		msg := makeMessage("msg_meta", "ai", "answer")
		msg.Provider = "gemini"
		msg.Model = "gemini-2.0-flash"
		msg.SwitchedProvider = true
		if err := store.AppendMessage(ctx, "sess_meta", msg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		errMsg := makeMessage("msg_err", "ai", "The assistant is busy right now.")
		errMsg.Category = "rate_limit"
		if err := store.AppendMessage(ctx, "sess_meta", errMsg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		got, err := store.ListMessages(ctx, "sess_meta")
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if got[0].Provider != "gemini" || got[0].Model != "gemini-2.0-flash" || !got[0].SwitchedProvider {
			t.Errorf("reply metadata not persisted: %+v", got[0])
		}
		if got[1].Category != "rate_limit" {
			t.Errorf("error category not persisted: %+v", got[1])
		}
	})

	t.Run("MessagesClear", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.CreateSession(ctx, makeSession("sess_clear")); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if err := store.AppendMessage(ctx, "sess_clear", makeMessage("msg_1", "user", "hi")); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		if err := store.ClearMessages(ctx, "sess_clear"); err != nil {
			t.Fatalf("ClearMessages: %v", err)
		}

		got, err := store.ListMessages(ctx, "sess_clear")
		if err != nil {
			t.Fatalf("ListMessages after clear: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty transcript after clear, got %d messages", len(got))
		}

		// Session survives a clear.
		if _, err := store.GetSession(ctx, "sess_clear"); err != nil {
			t.Errorf("session should survive ClearMessages: %v", err)
		}
	})

	t.Run("MaterialCreateAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		m := makeMaterial("mat_1", "pending", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial: %v", err)
		}

		got, err := store.GetMaterial(ctx, "mat_1")
		if err != nil {
			t.Fatalf("GetMaterial: %v", err)
		}
		if got.Title != m.Title || got.Subject != m.Subject || got.Status != "pending" {
			t.Errorf("GetMaterial returned unexpected record: %+v", got)
		}
	})

	t.Run("MaterialUpdate", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		m := makeMaterial("mat_upd", "pending", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial: %v", err)
		}

		m.Status = "verified"
		if err := store.UpdateMaterial(ctx, m); err != nil {
			t.Fatalf("UpdateMaterial: %v", err)
		}

		got, err := store.GetMaterial(ctx, "mat_upd")
		if err != nil {
			t.Fatalf("GetMaterial: %v", err)
		}
		if got.Status != "verified" {
			t.Errorf("expected status verified, got %s", got.Status)
		}
	})

	t.Run("MaterialNotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		_, err := store.GetMaterial(ctx, "mat_nonexistent")
		if !errors.Is(err, storage.ErrMaterialNotFound) {
			t.Errorf("GetMaterial expected ErrMaterialNotFound, got: %v", err)
		}
	})

	t.Run("MaterialListPaginated", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		baseTime := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		statuses := []string{"verified", "pending", "verified", "verified", "pending"}
		for i, status := range statuses {
			m := makeMaterial("mat_list"+string(rune('a'+i)), status, baseTime.Add(time.Duration(i)*time.Second))
			if err := store.CreateMaterial(ctx, m); err != nil {
				t.Fatalf("CreateMaterial[%d]: %v", i, err)
			}
		}

		// List all ascending.
		materials, hasMore, err := store.ListMaterialsPaginated(ctx, "", "", 10, "asc", "")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated: %v", err)
		}
		if len(materials) != 5 {
			t.Errorf("expected 5 materials, got %d", len(materials))
		}
		if hasMore {
			t.Errorf("expected hasMore=false")
		}
		for i := 1; i < len(materials); i++ {
			if materials[i].CreatedAt.Before(materials[i-1].CreatedAt) {
				t.Errorf("materials not in ascending order at index %d", i)
			}
		}

		// Limit splits the page.
		materials, hasMore, err = store.ListMaterialsPaginated(ctx, "", "", 3, "asc", "")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated: %v", err)
		}
		if len(materials) != 3 {
			t.Errorf("expected 3 materials with limit=3, got %d", len(materials))
		}
		if !hasMore {
			t.Errorf("expected hasMore=true with limit=3 and 5 materials")
		}

		// Cursor resumes past the first page.
		rest, _, err := store.ListMaterialsPaginated(ctx, materials[2].ID, "", 10, "asc", "")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated(after): %v", err)
		}
		if len(rest) != 2 {
			t.Errorf("expected 2 materials after cursor, got %d", len(rest))
		}

		// Descending cursors advance down the newest-first page.
		newest, hasMore, err := store.ListMaterialsPaginated(ctx, "", "", 2, "desc", "")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated(desc): %v", err)
		}
		if len(newest) != 2 || !hasMore {
			t.Fatalf("expected 2 materials and hasMore=true descending, got %d/%v", len(newest), hasMore)
		}
		if newest[0].CreatedAt.Before(newest[1].CreatedAt) {
			t.Errorf("materials not in descending order: %v before %v", newest[0].CreatedAt, newest[1].CreatedAt)
		}
		descRest, _, err := store.ListMaterialsPaginated(ctx, newest[1].ID, "", 10, "desc", "")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated(desc after): %v", err)
		}
		if len(descRest) != 3 {
			t.Errorf("expected 3 materials after descending cursor, got %d", len(descRest))
		}
		if len(descRest) > 0 && !descRest[0].CreatedAt.Before(newest[1].CreatedAt) {
			t.Errorf("descending cursor did not advance past %v", newest[1].CreatedAt)
		}

		// Status filter.
		verified, _, err := store.ListMaterialsPaginated(ctx, "", "", 10, "asc", "verified")
		if err != nil {
			t.Fatalf("ListMaterialsPaginated(status): %v", err)
		}
		if len(verified) != 3 {
			t.Errorf("expected 3 verified materials, got %d", len(verified))
		}
		for _, m := range verified {
			if m.Status != "verified" {
				t.Errorf("expected status=verified, got %s", m.Status)
			}
		}
	})

	t.Run("MaterialDelete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		m := makeMaterial("mat_del", "pending", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial: %v", err)
		}
		if err := store.DeleteMaterial(ctx, "mat_del"); err != nil {
			t.Fatalf("DeleteMaterial: %v", err)
		}

		_, err := store.GetMaterial(ctx, "mat_del")
		if !errors.Is(err, storage.ErrMaterialNotFound) {
			t.Errorf("expected ErrMaterialNotFound after delete, got: %v", err)
		}
	})
}
