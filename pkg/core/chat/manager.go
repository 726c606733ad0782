// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/observability/logging"
	"github.com/prvr/studychat-gw/pkg/storage"
)

// ErrBusy is returned when a send is already in flight for the session.
// Exactly one send runs per session at a time; the transcript stays strictly
// append-ordered.
var ErrBusy = errors.New("a message is already being processed for this session")

// ErrDocumentModeUnavailable is returned when the caller tries to switch a
// session into document mode after extraction failed. The toggle is inert.
var ErrDocumentModeUnavailable = errors.New("document mode is unavailable for this session")

// Manager owns chat sessions: creation (with optional document grounding),
// mode switching, sending, and transcript access.
type Manager struct {
	store   storage.Store
	orch    *Orchestrator
	extract *extractor.Service
	logger  *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewManager creates a session Manager.
func NewManager(store storage.Store, orch *Orchestrator, extract *extractor.Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		store:    store,
		orch:     orch,
		extract:  extract,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// CreateSessionOptions binds a new session to a document, by material record
// or by direct reference. All fields optional: with no document the session
// starts in global mode with document mode disabled.
type CreateSessionOptions struct {
	MaterialID string
	Document   *extractor.Request
}

// CreateSession creates a session. When a document is supplied it is
// extracted up front; a failed extraction leaves the session usable but in
// global mode with the document-mode toggle disabled.
func (m *Manager) CreateSession(ctx context.Context, opts CreateSessionOptions) (*storage.Session, error) {
	now := time.Now().UTC()
	session := &storage.Session{
		ID:                  "sess_" + uuid.NewString(),
		MaterialID:          opts.MaterialID,
		Mode:                ModeGlobal,
		DisableDocumentMode: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if opts.Document != nil {
		res := m.extract.Extract(ctx, *opts.Document)
		session.DocumentText = res.Text
		session.DocumentUsable = res.Usable()
		if res.Usable() {
			session.Mode = ModeDocument
			session.DisableDocumentMode = false
		}
	}

	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Info("created chat session",
		"session_id", session.ID,
		"mode", session.Mode,
		"document_usable", session.DocumentUsable)
	return session, nil
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*storage.Session, error) {
	return m.store.GetSession(ctx, sessionID)
}

// DeleteSession removes a session and its transcript.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	return m.store.DeleteSession(ctx, sessionID)
}

// ListMessages returns the session transcript in append order.
func (m *Manager) ListMessages(ctx context.Context, sessionID string) ([]*storage.Message, error) {
	return m.store.ListMessages(ctx, sessionID)
}

// ClearMessages wipes the transcript wholesale, keeping the session.
func (m *Manager) ClearMessages(ctx context.Context, sessionID string) error {
	return m.store.ClearMessages(ctx, sessionID)
}

// SetMode switches the prompting mode. Switching into document mode is
// rejected while the gate is on.
func (m *Manager) SetMode(ctx context.Context, sessionID, mode string) (*storage.Session, error) {
	if mode != ModeDocument && mode != ModeGlobal {
		return nil, fmt.Errorf("unknown chat mode: %q", mode)
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if mode == ModeDocument && session.DisableDocumentMode {
		return nil, ErrDocumentModeUnavailable
	}

	session.Mode = mode
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// SendResult is the outcome of one send: the appended user message, the
// appended assistant (or categorized error) message, and an optional
// transient notice for the toast layer.
type SendResult struct {
	UserMessage *storage.Message
	Reply       *storage.Message
	Notice      string
}

// SendMessage appends the user question, runs the orchestrator, and appends
// exactly one reply: the assistant answer or a categorized error message.
// The user message is appended before any network work begins.
func (m *Manager) SendMessage(ctx context.Context, sessionID, question string) (*SendResult, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !m.acquire(sessionID) {
		return nil, ErrBusy
	}
	defer m.release(sessionID)

	history, err := m.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	userMsg := &storage.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      "user",
		Content:   question,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	var prompt = BuildGlobalPrompt(history, question)
	if session.Mode == ModeDocument && !session.DisableDocumentMode {
		prompt = BuildDocumentPrompt(session.DocumentText, session.DocumentUsable, question)
	}

	reply, failure := m.orch.Send(ctx, prompt)

	replyMsg := &storage.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      "ai",
		CreatedAt: time.Now().UTC(),
	}
	notice := ""
	if failure != nil {
		replyMsg.Content = failure.Message
		replyMsg.Category = string(failure.Category)
		notice = failure.Notice
	} else {
		replyMsg.Content = reply.Content
		replyMsg.Provider = reply.Provider
		replyMsg.Model = reply.Model
		replyMsg.SwitchedProvider = reply.SwitchedProvider
	}
	if err := m.store.AppendMessage(ctx, sessionID, replyMsg); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	return &SendResult{
		UserMessage: userMsg,
		Reply:       replyMsg,
		Notice:      notice,
	}, nil
}

func (m *Manager) acquire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[sessionID]; busy {
		return false
	}
	m.inflight[sessionID] = struct{}{}
	return true
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, sessionID)
}
