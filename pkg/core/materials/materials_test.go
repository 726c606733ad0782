// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/filestore"
	fsmemory "github.com/prvr/studychat-gw/pkg/filestore/memory"
	"github.com/prvr/studychat-gw/pkg/storage"
	"github.com/prvr/studychat-gw/pkg/storage/memory"
)

func newTestService(t *testing.T, remoteDocs map[string]string) (*Service, *fsmemory.Store) {
	t.Helper()

	files := fsmemory.New()
	remote := extractor.SourceFunc(func(_ context.Context, url string) ([]byte, error) {
		content, ok := remoteDocs[url]
		if !ok {
			return nil, fmt.Errorf("fetch %s: unexpected status 404", url)
		}
		return []byte(content), nil
	})
	extract := extractor.NewService(NewFileStoreSource(files, remote), extractor.NewMemoryCache(0), nil)

	return NewService(memory.New(), files, extract, nil), files
}

func TestUpload_StoresContentAndRecord(t *testing.T) {
	svc, files := newTestService(t, nil)
	content := []byte("Cell biology lecture notes covering mitosis and meiosis.")

	m, err := svc.Upload(context.Background(), UploadInput{
		Title:      "Cell Biology Lecture 3",
		Subject:    "Biology",
		Course:     "BIO-201",
		Filename:   "lecture3.txt",
		MimeType:   "text/plain",
		UploadedBy: "user_1",
		Content:    content,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if m.Status != StatusPending {
		t.Errorf("new material must start pending, got %s", m.Status)
	}
	if m.FileID == "" {
		t.Fatalf("upload must record a file ID")
	}

	stored, err := files.ReadFile(context.Background(), m.FileID)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(stored) != string(content) {
		t.Errorf("stored content mismatch")
	}
}

func TestUpload_RemoteReference(t *testing.T) {
	svc, _ := newTestService(t, nil)

	m, err := svc.Upload(context.Background(), UploadInput{
		Title:     "External PDF",
		Filename:  "paper.pdf",
		MimeType:  "application/pdf",
		SourceURL: "https://cdn.example.com/paper.pdf",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if m.FileID != "" {
		t.Errorf("remote material must not allocate a file ID")
	}
	if m.SourceURL != "https://cdn.example.com/paper.pdf" {
		t.Errorf("source URL not recorded: %+v", m)
	}
}

func TestUpload_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, UploadInput{Filename: "x.txt", Content: []byte("x")}); err == nil {
		t.Error("expected error for missing title")
	}
	if _, err := svc.Upload(ctx, UploadInput{Title: "t"}); err == nil {
		t.Error("expected error when neither content nor source_url is given")
	}
	if _, err := svc.Upload(ctx, UploadInput{Title: "t", Content: []byte("x"), SourceURL: "https://example.com/x"}); err == nil {
		t.Error("expected error when both content and source_url are given")
	}
}

func TestSetStatus_Moderation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{Title: "t", Filename: "n.txt", MimeType: "text/plain", Content: []byte("notes")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	verified, err := svc.SetStatus(ctx, m.ID, StatusVerified)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if verified.Status != StatusVerified {
		t.Errorf("expected verified, got %s", verified.Status)
	}

	if _, err := svc.SetStatus(ctx, m.ID, "published"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := svc.SetStatus(ctx, "mat_nope", StatusVerified); !errors.Is(err, storage.ErrMaterialNotFound) {
		t.Errorf("expected ErrMaterialNotFound, got: %v", err)
	}
}

func TestDelete_RemovesStoredContent(t *testing.T) {
	svc, files := newTestService(t, nil)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{Title: "t", Filename: "n.txt", MimeType: "text/plain", Content: []byte("notes")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.Get(ctx, m.ID); !errors.Is(err, storage.ErrMaterialNotFound) {
		t.Errorf("expected record gone, got: %v", err)
	}
	if _, err := files.ReadFile(ctx, m.FileID); err == nil {
		t.Errorf("expected stored content gone")
	}
}

func TestExtractText_Upload(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{
		Title:    "Notes",
		Filename: "notes.txt",
		MimeType: "text/plain",
		Content:  []byte("Enzymes lower the activation energy of reactions."),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := svc.ExtractText(ctx, m.ID)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !res.Usable() {
		t.Fatalf("expected usable extraction, got failure %+v", res.Failure)
	}
	if !strings.Contains(res.Text, "activation energy") {
		t.Errorf("unexpected text: %q", res.Text)
	}
}

func TestExtractText_RemoteURL(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{
		"https://cdn.example.com/summary.txt": "Osmosis moves water across membranes.",
	})
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{
		Title:     "Summary",
		Filename:  "summary.txt",
		MimeType:  "text/plain",
		SourceURL: "https://cdn.example.com/summary.txt",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := svc.ExtractText(ctx, m.ID)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !res.Usable() || !strings.Contains(res.Text, "Osmosis") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExtractText_FetchFailureIsStructured(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	m, err := svc.Upload(ctx, UploadInput{
		Title:     "Broken",
		Filename:  "gone.pdf",
		MimeType:  "application/pdf",
		SourceURL: "https://cdn.example.com/gone.pdf",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := svc.ExtractText(ctx, m.ID)
	if err != nil {
		t.Fatalf("ExtractText must not fail on fetch errors: %v", err)
	}
	if res.Usable() {
		t.Fatalf("expected failure result")
	}
	if res.Failure.Reason != extractor.ReasonFetch {
		t.Errorf("expected fetch_failed, got %s", res.Failure.Reason)
	}
	if res.Text == "" {
		t.Errorf("failure result must carry guidance text")
	}
}

func TestExtractText_UnknownMaterial(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.ExtractText(context.Background(), "mat_nope")
	if !errors.Is(err, storage.ErrMaterialNotFound) {
		t.Errorf("expected ErrMaterialNotFound, got: %v", err)
	}
}

func TestFileInfo_Upload(t *testing.T) {
	svc, _ := newTestService(t, nil)
	content := []byte("Thermodynamics summary: entropy always increases in a closed system.")

	m, err := svc.Upload(context.Background(), UploadInput{
		Title:    "Thermo Summary",
		Filename: "thermo.txt",
		MimeType: "text/plain",
		Content:  content,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	f, err := svc.FileInfo(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("FileInfo: %v", err)
	}
	if f.ID != m.FileID {
		t.Errorf("FileInfo returned file %s, want %s", f.ID, m.FileID)
	}
	if f.Bytes != int64(len(content)) {
		t.Errorf("Bytes = %d, want %d", f.Bytes, len(content))
	}
	if f.Checksum != filestore.Checksum(content) {
		t.Errorf("Checksum = %q, want %q", f.Checksum, filestore.Checksum(content))
	}
	if f.Content != nil {
		t.Errorf("FileInfo must not carry content bytes")
	}
}

func TestFileInfo_RemoteMaterial(t *testing.T) {
	svc, _ := newTestService(t, nil)

	m, err := svc.Upload(context.Background(), UploadInput{
		Title:     "External Notes",
		Filename:  "notes.pdf",
		MimeType:  "application/pdf",
		SourceURL: "https://cdn.example.com/notes.pdf",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, err = svc.FileInfo(context.Background(), m.ID)
	if !errors.Is(err, ErrNoStoredFile) {
		t.Errorf("expected ErrNoStoredFile, got %v", err)
	}
}

func TestFiles_ListsStoredContent(t *testing.T) {
	svc, _ := newTestService(t, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(context.Background(), UploadInput{
			Title:    fmt.Sprintf("Notes %d", i),
			Filename: fmt.Sprintf("notes%d.txt", i),
			MimeType: "text/plain",
			Content:  []byte(fmt.Sprintf("lecture notes number %d", i)),
		})
		if err != nil {
			t.Fatalf("Upload[%d]: %v", i, err)
		}
	}

	files, hasMore, err := svc.Files(context.Background(), "", "", 10, "asc")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 3 || hasMore {
		t.Errorf("expected 3 files and hasMore=false, got %d/%v", len(files), hasMore)
	}
}
