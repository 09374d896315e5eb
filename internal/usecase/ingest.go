package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"fincheck/internal/domain"
	"fincheck/internal/port"
)

const (
	// minIngestWords is the shortest body worth saving.
	minIngestWords = 40
	// fullTextWords is below which extracted page text loses to the feed summary.
	fullTextWords = 60
	maxSlugLen    = 80
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// FeedReader lists entries of one syndication feed.
type FeedReader interface {
	ReadFeed(ctx context.Context, feedURL string, limit int) ([]domain.Article, error)
}

// IngestUseCase writes web articles into the raw corpus directory using the
// "key: value" header convention the indexer reads.
type IngestUseCase struct {
	dir       string
	extractor port.TextExtractor
	feeds     FeedReader
	logger    *slog.Logger
}

func NewIngestUseCase(dir string, extractor port.TextExtractor, feeds FeedReader, logger *slog.Logger) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		dir:       dir,
		extractor: extractor,
		feeds:     feeds,
		logger:    logger.With("component", "ingest"),
	}
}

// IngestResult reports what an ingest run wrote.
type IngestResult struct {
	Saved   []string
	Skipped int
	Errors  []string
}

// IngestURLs extracts each page and saves the ones with enough text.
func (u *IngestUseCase) IngestURLs(ctx context.Context, urls []string, progress ProgressFunc) (*IngestResult, error) {
	result := &IngestResult{}
	for i, raw := range urls {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		text, err := u.extractor.Extract(ctx, raw)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", raw, err))
		} else {
			u.save(ctx, result, domain.Article{URL: raw, Source: hostOf(raw), Text: text}, "web")
		}

		if progress != nil {
			progress(i+1, len(urls))
		}
	}
	return result, nil
}

// IngestFeeds saves up to perFeed entries from each feed. Each entry's page
// text is extracted; the feed summary is used when the page yields less.
func (u *IngestUseCase) IngestFeeds(ctx context.Context, feeds []string, perFeed int, progress ProgressFunc) (*IngestResult, error) {
	if perFeed <= 0 {
		perFeed = 20
	}
	result := &IngestResult{}
	for i, feedURL := range feeds {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entries, err := u.feeds.ReadFeed(ctx, feedURL, perFeed)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", feedURL, err))
			u.logger.WarnContext(ctx, "feed skipped", "feed", feedURL, "error", err)
		}
		for _, entry := range entries {
			entry.Source = hostOf(feedURL)
			if text, err := u.extractor.Extract(ctx, entry.URL); err == nil && wordCount(text) >= fullTextWords {
				entry.Text = text
			}
			u.save(ctx, result, entry, "rss")
		}

		if progress != nil {
			progress(i+1, len(feeds))
		}
	}
	return result, nil
}

func (u *IngestUseCase) save(ctx context.Context, result *IngestResult, a domain.Article, prefix string) {
	if wordCount(a.Text) < minIngestWords {
		result.Skipped++
		return
	}

	path, err := u.write(a, prefix)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", a.URL, err))
		return
	}
	result.Saved = append(result.Saved, path)
	u.logger.DebugContext(ctx, "article saved", "url", a.URL, "path", path)
}

func (u *IngestUseCase) write(a domain.Article, prefix string) (string, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", err
	}

	name := a.Title
	if name == "" {
		name = strings.TrimPrefix(a.URL, "https://")
	}
	path := uniquePath(u.dir, Slugify(prefix+"-"+a.Source+"-"+name))

	var b strings.Builder
	writeHeader(&b, "title", a.Title)
	writeHeader(&b, "source", a.Source)
	writeHeader(&b, "date", a.Published)
	writeHeader(&b, "url", a.URL)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(a.Text))
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func writeHeader(b *strings.Builder, key, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", key, value)
}

// Slugify lowercases s and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "doc"
	}
	return s
}

func uniquePath(dir, base string) string {
	path := filepath.Join(dir, base+".txt")
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.txt", base, i))
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "web"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
