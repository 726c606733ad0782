// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"

	"github.com/prvr/studychat-gw/pkg/core/api"
	"github.com/prvr/studychat-gw/pkg/extractor"
	"github.com/prvr/studychat-gw/pkg/storage"
)

// Mode selects the prompting strategy for a session.
const (
	ModeDocument = "document"
	ModeGlobal   = "global"
)

// historyWindow is how many trailing transcript entries global mode carries
// as conversation context.
const historyWindow = 6

const documentSystemPrompt = "You are a study assistant helping a student understand one specific document. " +
	"Answer ONLY from the document content between the markers below. " +
	"If the answer is not in the document, say that the document does not cover it and do not answer from outside knowledge. " +
	"Always reply in the same language the document is written in."

const guidanceSystemPrompt = "You are a study assistant. The content of the student's document is not available, " +
	"so do not invent or guess what it says. Offer general study guidance for this kind of material: " +
	"how to approach it, what to focus on, and how to prepare from it."

const globalSystemPrompt = "You are a study assistant for students sharing academic materials. " +
	"Answer clearly and concisely, and reply in the language the student writes in."

// BuildDocumentPrompt constructs the document-mode prompt. A usable
// extraction is embedded verbatim in a fenced block and the model is
// restricted to it; an unusable one downgrades to generic study guidance so
// the model never pretends to know unreadable content.
func BuildDocumentPrompt(documentText string, usable bool, question string) []api.Message {
	if !usable || len(documentText) < extractor.MinTextLen {
		return []api.Message{
			{Role: "system", Content: guidanceSystemPrompt},
			{Role: "user", Content: question},
		}
	}

	return []api.Message{
		{Role: "system", Content: documentSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Document content:\n```\n%s\n```\n\nQuestion: %s",
			documentText, question)},
	}
}

// BuildGlobalPrompt constructs the global-mode prompt from the trailing
// conversation history plus the new question, with no document grounding.
func BuildGlobalPrompt(history []*storage.Message, question string) []api.Message {
	msgs := []api.Message{{Role: "system", Content: globalSystemPrompt}}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, m := range history[start:] {
		role := "user"
		if m.Role == "ai" {
			role = "assistant"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Content})
	}

	return append(msgs, api.Message{Role: "user", Content: question})
}
