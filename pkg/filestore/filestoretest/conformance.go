// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestoretest provides a shared conformance test suite for
// filestore.FileStore implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package filestoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prvr/studychat-gw/pkg/filestore"
)

func makeFile(id, filename string, content []byte, createdAt time.Time) *filestore.File {
	return &filestore.File{
		ID:        id,
		Filename:  filename,
		MimeType:  "application/pdf",
		Bytes:     int64(len(content)),
		Content:   content,
		Checksum:  filestore.Checksum(content),
		CreatedAt: createdAt,
	}
}

// RunConformanceTests exercises a FileStore implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) filestore.FileStore) {
	t.Helper()

	t.Run("PutAndStat", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("%PDF-1.4 lecture notes")
		f := makeFile("file_abc123", "lecture1.pdf", content, time.Now().Truncate(time.Millisecond))

		if err := store.PutFile(ctx, f); err != nil {
			t.Fatalf("PutFile: %v", err)
		}

		got, err := store.StatFile(ctx, f.ID)
		if err != nil {
			t.Fatalf("StatFile: %v", err)
		}

		if got.ID != f.ID || got.Filename != f.Filename || got.MimeType != f.MimeType ||
			got.Bytes != f.Bytes || got.Checksum != f.Checksum {
			t.Errorf("StatFile returned unexpected metadata: %+v", got)
		}

		// Content should be nil from StatFile (metadata-only)
		if got.Content != nil {
			t.Errorf("expected Content to be nil from StatFile, got %d bytes", len(got.Content))
		}
	})

	t.Run("Read", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("slide deck bytes")
		f := makeFile("file_content1", "deck.pptx", content, time.Now().Truncate(time.Millisecond))

		if err := store.PutFile(ctx, f); err != nil {
			t.Fatalf("PutFile: %v", err)
		}

		got, err := store.ReadFile(ctx, f.ID)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}

		if string(got) != string(content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
		if filestore.Checksum(got) != f.Checksum {
			t.Errorf("checksum mismatch after round trip")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := makeFile("file_del1", "del.txt", []byte("del"), time.Now().Truncate(time.Millisecond))

		if err := store.PutFile(ctx, f); err != nil {
			t.Fatalf("PutFile: %v", err)
		}

		if err := store.DeleteFile(ctx, f.ID); err != nil {
			t.Fatalf("DeleteFile: %v", err)
		}

		_, err := store.StatFile(ctx, f.ID)
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		_, err := store.StatFile(ctx, "file_nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("StatFile expected ErrFileNotFound, got: %v", err)
		}

		_, err = store.ReadFile(ctx, "file_nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("ReadFile expected ErrFileNotFound, got: %v", err)
		}

		err = store.DeleteFile(ctx, "file_nonexistent")
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("DeleteFile expected ErrFileNotFound, got: %v", err)
		}
	})

	t.Run("ListPaginated", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		// Create files with distinct timestamps
		baseTime := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			f := makeFile(
				"file_list"+string(rune('a'+i)),
				"f"+string(rune('a'+i))+".pdf",
				[]byte("x"),
				baseTime.Add(time.Duration(i)*time.Second),
			)
			if err := store.PutFile(ctx, f); err != nil {
				t.Fatalf("PutFile[%d]: %v", i, err)
			}
		}

		// List all ascending
		files, hasMore, err := store.ListFilesPaginated(ctx, "", "", 10, "asc")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if len(files) != 5 {
			t.Errorf("expected 5 files, got %d", len(files))
		}
		if hasMore {
			t.Errorf("expected hasMore=false")
		}

		// Verify ordering (ascending)
		for i := 1; i < len(files); i++ {
			if files[i].CreatedAt.Before(files[i-1].CreatedAt) {
				t.Errorf("files not in ascending order at index %d", i)
			}
		}

		// List with limit
		files, hasMore, err = store.ListFilesPaginated(ctx, "", "", 3, "asc")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if len(files) != 3 {
			t.Errorf("expected 3 files, got %d", len(files))
		}
		if !hasMore {
			t.Errorf("expected hasMore=true with limit=3 and 5 files")
		}
	})

	t.Run("DuplicatePut", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := makeFile("file_dup1", "dup.txt", []byte("dup"), time.Now().Truncate(time.Millisecond))

		if err := store.PutFile(ctx, f); err != nil {
			t.Fatalf("first PutFile: %v", err)
		}

		// Memory backend rejects duplicates; filesystem/S3 overwrite is acceptable.
		// We just ensure no panic.
		_ = store.PutFile(ctx, f)
	})
}
