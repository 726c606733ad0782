// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prvr/studychat-gw/pkg/core/api"
	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/storage"
	"github.com/prvr/studychat-gw/pkg/storage/memory"
)

func newTestManager(t *testing.T, client api.ChatCompletionClient, docs map[string]string) (*Manager, storage.Store) {
	t.Helper()

	source := extractor.SourceFunc(func(_ context.Context, url string) ([]byte, error) {
		content, ok := docs[url]
		if !ok {
			return nil, fmt.Errorf("fetch %s: unexpected status 404", url)
		}
		return []byte(content), nil
	})
	extract := extractor.NewService(source, extractor.NewMemoryCache(0), nil)

	store := memory.New()
	orch := NewOrchestrator([]Provider{
		{Name: "groq", Client: client, Models: []string{"llama-a"}},
	}, nil)
	orch.sleep = func(context.Context, time.Duration) error { return nil }

	return NewManager(store, orch, extract, nil), store
}

func TestCreateSession_WithUsableDocument(t *testing.T) {
	docs := map[string]string{
		"https://cdn.example.com/notes.txt": "Photosynthesis converts light energy into chemical energy.",
	}
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), docs)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{
		Document: &extractor.Request{
			URL:      "https://cdn.example.com/notes.txt",
			Filename: "notes.txt",
			MimeType: "text/plain",
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if session.Mode != ModeDocument {
		t.Errorf("expected document mode, got %s", session.Mode)
	}
	if session.DisableDocumentMode {
		t.Errorf("document mode must be enabled for a usable extraction")
	}
	if !strings.Contains(session.DocumentText, "Photosynthesis") {
		t.Errorf("document text not bound: %q", session.DocumentText)
	}
}

func TestCreateSession_ExtractionFailureDisablesDocumentMode(t *testing.T) {
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{
		Document: &extractor.Request{
			URL:      "https://cdn.example.com/missing.pdf",
			Filename: "missing.pdf",
			MimeType: "application/pdf",
		},
	})
	if err != nil {
		t.Fatalf("CreateSession must not fail on extraction failure: %v", err)
	}

	if session.Mode != ModeGlobal {
		t.Errorf("expected global mode after failed extraction, got %s", session.Mode)
	}
	if !session.DisableDocumentMode {
		t.Errorf("document mode must be disabled after failed extraction")
	}
	if session.DocumentText == "" {
		t.Errorf("fallback guidance text must still be bound")
	}
}

func TestCreateSession_NoDocument(t *testing.T) {
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Mode != ModeGlobal || !session.DisableDocumentMode {
		t.Errorf("free-standing session must start global with document mode disabled: %+v", session)
	}
}

func TestSendMessage_DocumentModeGroundsPrompt(t *testing.T) {
	client := api.NewMockChatCompletionClient(api.MockReply{Content: "Chlorophyll absorbs light."})
	docs := map[string]string{
		"https://cdn.example.com/notes.txt": "Chlorophyll is the green pigment in plants.",
	}
	m, _ := newTestManager(t, client, docs)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{
		Document: &extractor.Request{
			URL:      "https://cdn.example.com/notes.txt",
			Filename: "notes.txt",
			MimeType: "text/plain",
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	res, err := m.SendMessage(context.Background(), session.ID, "What absorbs light?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if res.Reply.Content != "Chlorophyll absorbs light." {
		t.Errorf("unexpected reply: %q", res.Reply.Content)
	}
	if res.Reply.Provider != "groq" || res.Reply.Model != "llama-a" {
		t.Errorf("reply attribution missing: %+v", res.Reply)
	}
	if res.Notice != "" {
		t.Errorf("success must not carry a notice, got %q", res.Notice)
	}

	calls := client.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(calls))
	}
	var sawDocument bool
	for _, msg := range calls[0].Messages {
		if strings.Contains(msg.Content, "Chlorophyll is the green pigment") {
			sawDocument = true
		}
	}
	if !sawDocument {
		t.Errorf("document content not embedded in prompt: %+v", calls[0].Messages)
	}
}

func TestSendMessage_AppendsUserMessageBeforeCall(t *testing.T) {
	client := api.NewMockChatCompletionClient(
		api.MockReply{Err: &api.APIError{Provider: "groq", StatusCode: 429, Message: "rate limit reached"}},
	)
	m, store := newTestManager(t, client, nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	res, err := m.SendMessage(context.Background(), session.ID, "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if res.Reply.Category != string(CategoryRateLimit) {
		t.Errorf("expected categorized error reply, got %+v", res.Reply)
	}
	if res.Notice == "" {
		t.Errorf("categorized failure must carry a notice")
	}

	msgs, err := store.ListMessages(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user message + error reply, got %d messages", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("user message must be persisted even when the send fails: %+v", msgs[0])
	}
	if msgs[1].Role != "ai" || msgs[1].Category != string(CategoryRateLimit) {
		t.Errorf("error reply not persisted as categorized ai message: %+v", msgs[1])
	}
}

func TestSendMessage_GlobalModeCarriesHistory(t *testing.T) {
	client := api.NewMockChatCompletionClient(
		api.MockReply{Content: "first answer"},
		api.MockReply{Content: "second answer"},
	)
	m, _ := newTestManager(t, client, nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := m.SendMessage(context.Background(), session.ID, "first question"); err != nil {
		t.Fatalf("first SendMessage: %v", err)
	}
	if _, err := m.SendMessage(context.Background(), session.ID, "second question"); err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(calls))
	}
	var sawFirstExchange bool
	for _, msg := range calls[1].Messages {
		if msg.Content == "first answer" && msg.Role == "assistant" {
			sawFirstExchange = true
		}
	}
	if !sawFirstExchange {
		t.Errorf("second prompt must carry the first exchange: %+v", calls[1].Messages)
	}
}

// blockingClient parks inside CreateChatCompletion until released, so tests
// can hold a send in flight.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingClient() *blockingClient {
	return &blockingClient{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingClient) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &api.ChatCompletionResponse{
		Model:   req.Model,
		Choices: []api.Choice{{Message: api.Message{Role: "assistant", Content: "done"}}},
	}, nil
}

func TestSendMessage_BusyGuard(t *testing.T) {
	client := newBlockingClient()
	m, _ := newTestManager(t, client, nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.SendMessage(context.Background(), session.ID, "slow question")
		done <- err
	}()

	<-client.entered

	_, err = m.SendMessage(context.Background(), session.ID, "impatient question")
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy while a send is in flight, got: %v", err)
	}

	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight SendMessage: %v", err)
	}

	// The guard is released after the send completes.
	if _, err := m.SendMessage(context.Background(), session.ID, "follow-up"); err != nil {
		t.Errorf("SendMessage after release: %v", err)
	}
}

func TestSendMessage_UnknownSession(t *testing.T) {
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), nil)

	_, err := m.SendMessage(context.Background(), "sess_nope", "q")
	if !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestSetMode_RejectedWhenDocumentModeDisabled(t *testing.T) {
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err = m.SetMode(context.Background(), session.ID, ModeDocument)
	if !errors.Is(err, ErrDocumentModeUnavailable) {
		t.Errorf("expected ErrDocumentModeUnavailable, got: %v", err)
	}
}

func TestSetMode_SwitchesBetweenModes(t *testing.T) {
	docs := map[string]string{
		"https://cdn.example.com/notes.txt": "Mitosis has four phases: prophase, metaphase, anaphase, telophase.",
	}
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), docs)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{
		Document: &extractor.Request{
			URL:      "https://cdn.example.com/notes.txt",
			Filename: "notes.txt",
			MimeType: "text/plain",
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	updated, err := m.SetMode(context.Background(), session.ID, ModeGlobal)
	if err != nil {
		t.Fatalf("SetMode(global): %v", err)
	}
	if updated.Mode != ModeGlobal {
		t.Errorf("expected global mode, got %s", updated.Mode)
	}

	updated, err = m.SetMode(context.Background(), session.ID, ModeDocument)
	if err != nil {
		t.Fatalf("SetMode(document): %v", err)
	}
	if updated.Mode != ModeDocument {
		t.Errorf("expected document mode, got %s", updated.Mode)
	}
}

func TestSetMode_UnknownMode(t *testing.T) {
	m, _ := newTestManager(t, api.NewMockChatCompletionClient(), nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := m.SetMode(context.Background(), session.ID, "hybrid"); err == nil {
		t.Error("expected error for unknown mode, got nil")
	}
}

func TestClearMessages(t *testing.T) {
	client := api.NewMockChatCompletionClient(api.MockReply{Content: "answer"})
	m, store := newTestManager(t, client, nil)

	session, err := m.CreateSession(context.Background(), CreateSessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.SendMessage(context.Background(), session.ID, "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := m.ClearMessages(context.Background(), session.ID); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}

	msgs, err := store.ListMessages(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty transcript after clear, got %d messages", len(msgs))
	}
}
