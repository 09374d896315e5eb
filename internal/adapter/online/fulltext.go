package online

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
)

const maxPageBytes = 5 << 20

// ReadabilityExtractor downloads an article page and extracts its main text.
type ReadabilityExtractor struct {
	client    *http.Client
	limiter   *HostRateLimiter
	userAgent string
}

func NewReadabilityExtractor(client *http.Client, limiter *HostRateLimiter, userAgent string) *ReadabilityExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReadabilityExtractor{
		client:    client,
		limiter:   limiter,
		userAgent: userAgent,
	}
}

func (e *ReadabilityExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme: %q", pageURL.Scheme)
	}

	if e.limiter != nil {
		if err := e.limiter.WaitForHost(ctx, rawURL); err != nil {
			return "", fmt.Errorf("rate limiting failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %w", err)
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render article text: %w", err)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(buf.String(), " ")), nil
}
