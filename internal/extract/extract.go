// Package extract resolves social-media page URLs into raw media URLs via an
// external extractor service.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Media is what the extractor recovers from a page: the primary media URL
// (usually a video) and any thumbnail URLs.
type Media struct {
	URL        string   `json:"url"`
	Thumbnails []string `json:"thumbnails"`
}

type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*Media, error)
}

// HTTPExtractor is a client for a resolver service exposing
// GET /api/media?url=<page>.
type HTTPExtractor struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) (*Media, error) {
	reqURL := fmt.Sprintf("%s/api/media?url=%s", e.baseURL, url.QueryEscape(pageURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	var media Media
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if media.URL == "" && len(media.Thumbnails) == 0 {
		return nil, fmt.Errorf("extractor found no media at %s", pageURL)
	}

	return &media, nil
}
