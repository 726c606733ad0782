// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prvr/studychat-gw/pkg/storage"
	"github.com/prvr/studychat-gw/pkg/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.RunConformanceTests(t, func(t *testing.T) storage.Store {
		s, err := New(filepath.Join(t.TempDir(), "studychat.db"))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestConformance_InMemory(t *testing.T) {
	storagetest.RunConformanceTests(t, func(t *testing.T) storage.Store {
		s, err := New(":memory:")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestRegistered(t *testing.T) {
	store, err := storage.Providers.New(context.Background(), "sqlite", map[string]string{
		"dsn": filepath.Join(t.TempDir(), "studychat.db"),
	})
	if err != nil {
		t.Fatalf("Providers.New(sqlite): %v", err)
	}
	defer store.Close(context.Background())

	if _, ok := store.(*Store); !ok {
		t.Errorf("expected *sqlite.Store, got %T", store)
	}
}

func TestNew_RequiresDSN(t *testing.T) {
	_, err := storage.Providers.New(context.Background(), "sqlite", nil)
	if err == nil {
		t.Error("expected error without dsn parameter, got nil")
	}
}
