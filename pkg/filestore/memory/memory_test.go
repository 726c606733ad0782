// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"context"
	"testing"

	"github.com/prvr/studychat-gw/pkg/filestore"
	"github.com/prvr/studychat-gw/pkg/filestore/filestoretest"
	"github.com/prvr/studychat-gw/pkg/filestore/memory"
)

func TestMemoryConformance(t *testing.T) {
	filestoretest.RunConformanceTests(t, func(t *testing.T) filestore.FileStore {
		return memory.New()
	})
}

func TestRegistered(t *testing.T) {
	store, err := filestore.Providers.New(context.Background(), "memory", nil)
	if err != nil {
		t.Fatalf("Providers.New(memory): %v", err)
	}
	defer store.Close(context.Background())

	if _, ok := store.(*memory.Store); !ok {
		t.Errorf("expected *memory.Store, got %T", store)
	}
}
