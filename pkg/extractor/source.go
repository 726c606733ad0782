// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Source retrieves the raw bytes of a document. The HTTP source serves
// remote material URLs; stored uploads are served through a SourceFunc
// adapter over the filestore.
type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// DefaultMaxFetchBytes caps document downloads at 25 MiB.
const DefaultMaxFetchBytes = 25 << 20

// HTTPSource fetches documents over plain HTTP GET.
type HTTPSource struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPSource creates an HTTPSource. Non-positive arguments select the
// defaults (30s timeout, 25 MiB cap).
func NewHTTPSource(timeout time.Duration, maxBytes int64) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &HTTPSource{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("fetch %s: document exceeds %d byte limit", url, s.maxBytes)
	}
	return data, nil
}
