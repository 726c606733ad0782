// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// extractHTML returns the visible text of an HTML page. Non-content subtrees
// (scripts, styles, head metadata) are skipped and whitespace is collapsed
// the same way the OOXML run collector does it, so HTML and DOCX materials
// prompt identically.
func extractHTML(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		// Fall back to raw text if HTML is malformed
		return string(content), nil
	}

	fragments := collectVisibleText(doc, nil)
	if len(fragments) == 0 {
		return "", fmt.Errorf("%w in HTML body", errNoText)
	}
	return strings.Join(strings.Fields(strings.Join(fragments, " ")), " "), nil
}

// collectVisibleText walks the node tree depth-first, appending the text of
// every visible text node to fragments.
func collectVisibleText(n *html.Node, fragments []string) []string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head", "template":
			return fragments
		}
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			fragments = append(fragments, text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fragments = collectVisibleText(c, fragments)
	}
	return fragments
}
