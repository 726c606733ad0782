// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockReply is one scripted outcome for the mock client. Exactly one of
// Content or Err is used.
type MockReply struct {
	Content string
	Err     error
}

// MockChatCompletionClient is a scriptable ChatCompletionClient for tests.
// Scripted replies are consumed in order; once the script is exhausted the
// client echoes the user message back. All calls are recorded.
type MockChatCompletionClient struct {
	mu     sync.Mutex
	script []MockReply
	calls  []*ChatCompletionRequest
}

// NewMockChatCompletionClient creates a new mock client with an optional
// reply script.
func NewMockChatCompletionClient(script ...MockReply) *MockChatCompletionClient {
	return &MockChatCompletionClient{script: script}
}

// Enqueue appends scripted replies.
func (m *MockChatCompletionClient) Enqueue(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
}

// Calls returns a copy of every request the client has received.
func (m *MockChatCompletionClient) Calls() []*ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ChatCompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (m *MockChatCompletionClient) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	var reply *MockReply
	if len(m.script) > 0 {
		reply = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if reply != nil && reply.Err != nil {
		return nil, reply.Err
	}

	content := ""
	if reply != nil {
		content = reply.Content
	} else {
		userMessage := ""
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				userMessage = msg.Content
			}
		}
		content = fmt.Sprintf("Mock response to: %s", userMessage)
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Model:   req.Model,
		Created: time.Now().Unix(),
		Choices: []Choice{
			{
				Index: 0,
				Message: Message{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: Usage{
			PromptTokens:     estimateTokens(req.Messages),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req.Messages) + len(content)/4,
		},
	}, nil
}

// estimateTokens provides a rough token count using ~4 characters per token.
func estimateTokens(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content) / 4
	}
	return total
}
