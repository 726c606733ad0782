// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat turns a student question plus available context (an extracted
// document or conversation history) into exactly one assistant reply or one
// categorized error reply, using two interchangeable LLM backends with a
// layered retry policy: model rotation, one-shot provider fallback, and
// exponential backoff on overload.
package chat

import (
	"context"
	"time"

	"github.com/prvr/studychat-gw/pkg/core/api"
	"github.com/prvr/studychat-gw/pkg/observability/logging"
)

// Provider is one configured LLM backend with its ordered model list.
type Provider struct {
	Name   string
	Client api.ChatCompletionClient
	Models []string
}

// sendState is the explicit state of one send operation.
type sendState int

const (
	stateSending sendState = iota
	stateRetryingModel
	stateRetryingProvider
	stateRetryingBackoff
	stateSucceeded
	stateFailed
)

// ErrorCategory classifies a terminal send failure.
type ErrorCategory string

const (
	CategoryRateLimit ErrorCategory = "rate_limit"
	CategoryOCRQuota  ErrorCategory = "ocr_quota"
	CategoryAuth      ErrorCategory = "auth"
	CategoryOverload  ErrorCategory = "overload_exhausted"
	CategoryGeneric   ErrorCategory = "generic"
)

// Reply is a successful send outcome.
type Reply struct {
	Content          string
	Provider         string
	Model            string
	SwitchedProvider bool
}

// SendFailure is a terminal send outcome. Message is user-facing transcript
// text; Notice is the shorter transient notification.
type SendFailure struct {
	Category ErrorCategory
	Message  string
	Notice   string
	Cause    error
}

const (
	maxOverloadRetries = 3
	backoffBase        = time.Second
)

// Orchestrator drives the retry/fallback policy over the configured
// providers. The first provider is primary; the second, when present, is the
// one-shot fallback tried after the primary's models are exhausted.
type Orchestrator struct {
	providers   []Provider
	temperature float64
	maxTokens   int
	logger      *logging.Logger

	// sleep is replaceable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator over the given providers. An empty
// provider list is tolerated: every Send then fails with the auth category.
func NewOrchestrator(providers []Provider, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		providers:   providers,
		temperature: 0.7,
		maxTokens:   1024,
		logger:      logger,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send runs one send operation to completion: one Reply or one SendFailure,
// never both, never an unclassified error.
func (o *Orchestrator) Send(ctx context.Context, messages []api.Message) (*Reply, *SendFailure) {
	// A server started without a keyed provider still answers every send
	// with a categorized reply.
	if len(o.providers) == 0 || len(o.providers[0].Models) == 0 {
		return nil, o.failure(&api.APIError{
			StatusCode: 401,
			Message:    "no chat provider configured, missing api key",
		})
	}

	provider := &o.providers[0]
	modelIdx := 0
	switched := false
	overloadRetries := 0

	state := stateSending
	for {
		switch state {
		case stateSending:
			model := provider.Models[modelIdx]
			resp, err := provider.Client.CreateChatCompletion(ctx, &api.ChatCompletionRequest{
				Model:       model,
				Messages:    messages,
				Temperature: &o.temperature,
				MaxTokens:   &o.maxTokens,
			})
			if err == nil {
				if content := resp.FirstContent(); content != "" {
					o.logger.Info("chat completion succeeded",
						"provider", provider.Name,
						"model", model,
						"switched", switched)
					return &Reply{
						Content:          content,
						Provider:         provider.Name,
						Model:            model,
						SwitchedProvider: switched,
					}, nil
				}
				err = &api.APIError{Provider: provider.Name, StatusCode: 200, Message: "empty completion"}
			}
			state = o.classify(err, provider, model, switched, overloadRetries)
			if state == stateFailed {
				return nil, o.failure(err)
			}

		case stateRetryingModel:
			modelIdx++
			o.logger.Warn("rotating to next model",
				"provider", provider.Name,
				"model", provider.Models[modelIdx])
			state = stateSending

		case stateRetryingProvider:
			switched = true
			provider = &o.providers[1]
			modelIdx = 0
			o.logger.Warn("falling back to alternate provider",
				"provider", provider.Name,
				"model", provider.Models[0])
			state = stateSending

		case stateRetryingBackoff:
			overloadRetries++
			wait := backoffBase << (overloadRetries - 1) // 1s, 2s, 4s
			o.logger.Warn("backend overloaded, backing off",
				"provider", provider.Name,
				"retry", overloadRetries,
				"wait", wait)
			if err := o.sleep(ctx, wait); err != nil {
				return nil, o.failure(err)
			}
			state = stateSending
		}
	}
}

// classify maps a send error onto the next state. Model rotation does not
// consume the overload retry budget; terminal categories short-circuit
// without entering the backoff loop.
func (o *Orchestrator) classify(err error, provider *Provider, model string, switched bool, overloadRetries int) sendState {
	switch {
	case api.IsModelNotFound(err):
		idx := indexOf(provider.Models, model)
		if idx >= 0 && idx+1 < len(provider.Models) && !switched {
			return stateRetryingModel
		}
		if !switched && len(o.providers) > 1 && len(o.providers[1].Models) > 0 {
			return stateRetryingProvider
		}
		return stateFailed
	case api.IsOCRQuotaExceeded(err):
		return stateFailed
	case api.IsRateLimited(err):
		return stateFailed
	case api.IsAuthFailure(err):
		return stateFailed
	case api.IsOverloaded(err):
		if overloadRetries < maxOverloadRetries {
			return stateRetryingBackoff
		}
		return stateFailed
	default:
		return stateFailed
	}
}

// failure builds the terminal SendFailure for err.
func (o *Orchestrator) failure(err error) *SendFailure {
	category := CategoryGeneric
	switch {
	case api.IsOCRQuotaExceeded(err):
		category = CategoryOCRQuota
	case api.IsRateLimited(err):
		category = CategoryRateLimit
	case api.IsAuthFailure(err):
		category = CategoryAuth
	case api.IsOverloaded(err):
		category = CategoryOverload
	}

	message, notice := failureText(category)
	o.logger.Error("chat send failed",
		"category", category,
		"error", err)
	return &SendFailure{
		Category: category,
		Message:  message,
		Notice:   notice,
		Cause:    err,
	}
}

func indexOf(models []string, model string) int {
	for i, m := range models {
		if m == model {
			return i
		}
	}
	return -1
}
