package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fincheck/internal/adapter/chunker"
	"fincheck/internal/adapter/logging"
	"fincheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapExtractor map[string]string

func (m mapExtractor) Extract(ctx context.Context, url string) (string, error) {
	if t, ok := m[url]; ok {
		return t, nil
	}
	return "", errors.New("not found")
}

type fakeFeeds map[string][]domain.Article

func (f fakeFeeds) ReadFeed(ctx context.Context, feedURL string, limit int) ([]domain.Article, error) {
	entries, ok := f[feedURL]
	if !ok {
		return nil, errors.New("feed down")
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestIngestURLs(t *testing.T) {
	dir := t.TempDir()
	ext := mapExtractor{
		"https://www.reuters.com/markets/tesla-q3": words(50),
		"https://apnews.com/short":                 words(10),
	}
	u := NewIngestUseCase(dir, ext, nil, logging.Discard())

	res, err := u.IngestURLs(context.Background(), []string{
		"https://www.reuters.com/markets/tesla-q3",
		"https://apnews.com/short",
		"https://missing.example/x",
	}, nil)
	require.NoError(t, err)

	require.Len(t, res.Saved, 1)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)

	raw, err := os.ReadFile(res.Saved[0])
	require.NoError(t, err)
	doc := chunker.NewDocument("id", res.Saved[0], time.Now(), string(raw))
	assert.Equal(t, "reuters.com", doc.Source)
	assert.Equal(t, "https://www.reuters.com/markets/tesla-q3", doc.URL)
	assert.Equal(t, words(50), doc.Body)
	assert.Equal(t, "web-reuters-com-www-reuters-com-markets-tesla-q3.txt", filepath.Base(res.Saved[0]))
}

func TestIngestFeedsPrefersFullText(t *testing.T) {
	dir := t.TempDir()
	feeds := fakeFeeds{
		"https://www.sec.gov/news/pressreleases.rss": {
			{Title: "SEC charges firm", URL: "https://www.sec.gov/a", Published: "Mon, 06 Oct 2025", Text: words(45)},
			{Title: "Short summary", URL: "https://www.sec.gov/b", Text: words(5)},
			{Title: "Full page", URL: "https://www.sec.gov/c", Text: words(5)},
		},
	}
	ext := mapExtractor{"https://www.sec.gov/c": words(70)}
	u := NewIngestUseCase(dir, ext, feeds, logging.Discard())

	res, err := u.IngestFeeds(context.Background(), []string{"https://www.sec.gov/news/pressreleases.rss", "https://down.example/rss"}, 10, nil)
	require.NoError(t, err)

	assert.Len(t, res.Saved, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)

	raw, err := os.ReadFile(res.Saved[0])
	require.NoError(t, err)
	meta, body := chunker.ParseHeader(string(raw))
	assert.Equal(t, "SEC charges firm", meta["title"])
	assert.Equal(t, "sec.gov", meta["source"])
	assert.Equal(t, "Mon, 06 Oct 2025", meta["date"])
	assert.Equal(t, words(45), body)

	raw, err = os.ReadFile(res.Saved[1])
	require.NoError(t, err)
	_, body = chunker.ParseHeader(string(raw))
	assert.Equal(t, words(70), body)
}

func TestIngestUniqueNames(t *testing.T) {
	dir := t.TempDir()
	feeds := fakeFeeds{"https://x.com/rss": {
		{Title: "Same", URL: "https://x.com/1", Text: words(40)},
		{Title: "Same", URL: "https://x.com/2", Text: words(40)},
	}}
	u := NewIngestUseCase(dir, mapExtractor{}, feeds, logging.Discard())

	res, err := u.IngestFeeds(context.Background(), []string{"https://x.com/rss"}, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Saved, 2)
	assert.Equal(t, "rss-x-com-same.txt", filepath.Base(res.Saved[0]))
	assert.Equal(t, "rss-x-com-same-2.txt", filepath.Base(res.Saved[1]))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "tesla-q3-deliveries-beat", Slugify("  Tesla Q3: Deliveries -- BEAT! "))
	assert.Equal(t, "doc", Slugify("???"))
	assert.Len(t, Slugify(strings.Repeat("ab ", 60)), 80)
}
