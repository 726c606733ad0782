// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import "strings"

// extractPlainText decodes the content as text and trims surrounding
// whitespace.
func extractPlainText(content []byte) (string, error) {
	return strings.TrimSpace(string(content)), nil
}
