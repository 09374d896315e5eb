package online

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"fincheck/internal/adapter/metrics"
	"fincheck/internal/domain"
	"fincheck/internal/port"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

var spaceRe = regexp.MustCompile(`\s+`)

// FeedSource reads RSS/Atom feeds. Entry summaries are stripped of markup.
// A feed that fails to load is logged and skipped.
type FeedSource struct {
	feeds     []string
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
	logger    *slog.Logger
}

func NewFeedSource(feeds []string, userAgent string, client *http.Client, logger *slog.Logger) *FeedSource {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedSource{
		feeds:     feeds,
		client:    client,
		userAgent: userAgent,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

func (s *FeedSource) Name() string {
	return "rss"
}

func (s *FeedSource) Feeds() []string {
	return s.feeds
}

func (s *FeedSource) Fetch(ctx context.Context, req port.SourceRequest) ([]domain.Article, error) {
	if len(s.feeds) == 0 || req.MaxItems <= 0 {
		return nil, nil
	}

	perFeed := req.MaxItems/len(s.feeds) + 1

	var items []domain.Article
	var failed int
	for _, feedURL := range s.feeds {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		entries, err := s.fetchFeed(ctx, feedURL, perFeed)
		if err != nil {
			failed++
			s.logger.WarnContext(ctx, "feed fetch failed", "feed", feedURL, "error", err)
			metrics.RecordSourceError(s.Name())
			continue
		}
		items = append(items, entries...)
	}

	if failed == len(s.feeds) {
		return nil, fmt.Errorf("all %d feeds failed", failed)
	}
	if len(items) > req.MaxItems {
		items = items[:req.MaxItems]
	}
	return items, nil
}

// ReadFeed returns up to limit titled entries of one feed with markup-free
// summaries as text.
func (s *FeedSource) ReadFeed(ctx context.Context, feedURL string, limit int) ([]domain.Article, error) {
	return s.fetchFeed(ctx, feedURL, limit)
}

func (s *FeedSource) fetchFeed(ctx context.Context, feedURL string, limit int) ([]domain.Article, error) {
	feed, err := s.Parse(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	source := "rss"
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		source = u.Host
	}

	var out []domain.Article
	for _, item := range feed.Items {
		if len(out) == limit {
			break
		}
		if item.Title == "" || item.Link == "" {
			continue
		}
		out = append(out, domain.Article{
			Title:     strings.TrimSpace(item.Title),
			URL:       item.Link,
			Source:    source,
			Published: item.Published,
			Text:      s.StripMarkup(item.Description),
		})
	}
	return out, nil
}

// Parse downloads and parses one feed.
func (s *FeedSource) Parse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.Client = s.client
	if s.userAgent != "" {
		fp.UserAgent = s.userAgent
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// StripMarkup returns markup as plain text with whitespace collapsed.
func (s *FeedSource) StripMarkup(markup string) string {
	if markup == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(markup))
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
