// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// failureText maps a terminal error category to its transcript message and
// the shorter transient notice. The transcript message is the durable record
// the student scrolls back through, so it carries the full explanation and
// remediation steps; the notice is for a toast layer on top.
func failureText(category ErrorCategory) (message, notice string) {
	switch category {
	case CategoryRateLimit:
		return "The AI service is receiving too many requests right now and has temporarily " +
				"rate-limited this app.\n\n" +
				"What you can do:\n" +
				"- Wait a minute or two and ask again\n" +
				"- Keep questions short while the limit is active\n\n" +
				"Your message was not lost; just resend it in a moment.",
			"AI rate limit reached. Try again in a minute."
	case CategoryOCRQuota:
		return "The daily allowance for reading scanned documents (OCR) has been used up.\n\n" +
				"What you can do:\n" +
				"- Try again tomorrow when the allowance resets\n" +
				"- Ask general questions about the topic instead; those still work\n",
			"Daily OCR limit reached."
	case CategoryAuth:
		return "The AI service rejected this app's credentials, so your question could not be " +
				"processed.\n\n" +
				"What you can do:\n" +
				"- Refresh the page and try once more\n" +
				"- If it keeps happening, report it to support; this needs a configuration fix " +
				"on our side\n",
			"AI service authentication failed."
	case CategoryOverload:
		return "The AI service is overloaded and did not recover after several automatic " +
				"retries.\n\n" +
				"What you can do:\n" +
				"- Wait a little while and resend your question\n" +
				"- Peak hours are busier; off-peak usually responds immediately\n",
			"AI service overloaded. Please retry shortly."
	default:
		return "Something went wrong while processing your question and the AI could not " +
				"produce an answer.\n\n" +
				"What you can do:\n" +
				"- Resend the question\n" +
				"- Refresh the page if the problem persists\n" +
				"- Contact support if it still fails after that\n",
			"The AI request failed. Please try again."
	}
}
