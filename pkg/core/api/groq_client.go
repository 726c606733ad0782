// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient implements ChatCompletionClient using the official OpenAI Go SDK.
// Groq exposes an OpenAI-compatible chat completions API, so the same client
// also talks to OpenAI itself or any other compatible backend via baseURL.
type GroqClient struct {
	client openai.Client
}

// NewGroqClient creates a client for the Groq chat completions API. An empty
// baseURL targets the hosted Groq endpoint.
func NewGroqClient(baseURL, apiKey string) *GroqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// Dummy key keeps the SDK happy against local compatible backends.
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &GroqClient{
		client: openai.NewClient(opts...),
	}
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (c *GroqClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, normalizeGroqError(err)
	}

	choices := make([]Choice, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		choices = append(choices, Choice{
			Index: int(choice.Index),
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}

	return &ChatCompletionResponse{
		ID:      completion.ID,
		Model:   completion.Model,
		Created: completion.Created,
		Choices: choices,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// normalizeGroqError converts SDK errors into *APIError so the retry logic
// can classify them uniformly.
func normalizeGroqError(err error) error {
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		msg := sdkErr.Message
		if msg == "" {
			msg = sdkErr.Error()
		}
		return &APIError{
			Provider:   "groq",
			StatusCode: sdkErr.StatusCode,
			Message:    msg,
		}
	}
	return fmt.Errorf("groq chat completion: %w", err)
}
