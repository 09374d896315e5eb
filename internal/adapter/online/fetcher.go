package online

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fincheck/internal/adapter/metrics"
	"fincheck/internal/domain"
	"fincheck/internal/port"
	"golang.org/x/sync/errgroup"
)

// FetcherConfig holds the online fallback settings.
type FetcherConfig struct {
	Days         int
	TopK         int
	Timeout      time.Duration
	MinWords     int
	FullTextJobs int
}

// Fetcher gathers candidates from every source concurrently, drops hosts
// outside the allowlist, fills in short bodies from the article page and
// ranks what is left. Failures only reduce the result.
type Fetcher struct {
	sources   []port.ArticleSource
	allowlist *Allowlist
	extractor port.TextExtractor
	ranker    *Ranker
	cfg       FetcherConfig
	logger    *slog.Logger
}

func NewFetcher(sources []port.ArticleSource, allowlist *Allowlist, extractor port.TextExtractor, ranker *Ranker, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.Days <= 0 {
		cfg.Days = 14
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = 40
	}
	if cfg.FullTextJobs <= 0 {
		cfg.FullTextJobs = 4
	}
	if allowlist == nil {
		allowlist = ParseAllowlist("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		sources:   sources,
		allowlist: allowlist,
		extractor: extractor,
		ranker:    ranker,
		cfg:       cfg,
		logger:    logger.With("component", "online"),
	}
}

func (f *Fetcher) FetchOnlineEvidence(ctx context.Context, q port.OnlineQuery) []domain.EvidenceItem {
	days := q.Days
	if days <= 0 {
		days = f.cfg.Days
	}
	maxArticles := q.MaxArticles
	if maxArticles <= 0 {
		maxArticles = f.cfg.TopK * 4
	}
	search := q.Query
	if len(q.Keywords) > 0 {
		search = strings.Join(q.Keywords, " ")
	}

	candidates := f.collect(ctx, port.SourceRequest{Query: search, Days: days, MaxItems: maxArticles})
	metrics.RecordArticles("fetched", len(candidates))
	if len(candidates) == 0 {
		return nil
	}

	allowed := candidates[:0]
	for _, a := range candidates {
		if f.allowlist.Allows(a.URL) {
			allowed = append(allowed, a)
		}
	}
	metrics.RecordArticles("allowed", len(allowed))
	f.logger.DebugContext(ctx, "online candidates filtered",
		"fetched", len(candidates),
		"allowed", len(allowed))
	if len(allowed) == 0 {
		return nil
	}

	f.fillFullText(ctx, allowed)

	items, err := f.ranker.Rank(ctx, q.Query, allowed, f.cfg.TopK)
	if err != nil {
		f.logger.WarnContext(ctx, "online ranking failed", "error", err)
		metrics.RecordSourceError("ranker")
		return nil
	}
	metrics.RecordArticles("ranked", len(items))
	return items
}

// collect runs every source in parallel and concatenates results in source
// order, keeping at most req.MaxItems candidates overall.
func (f *Fetcher) collect(ctx context.Context, req port.SourceRequest) []domain.Article {
	results := make([][]domain.Article, len(f.sources))

	var g errgroup.Group
	for i, src := range f.sources {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
			defer cancel()

			articles, err := src.Fetch(sctx, req)
			if err != nil {
				f.logger.WarnContext(ctx, "online source failed", "source", src.Name(), "error", err)
				metrics.RecordSourceError(src.Name())
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Article
	for _, r := range results {
		all = append(all, r...)
	}
	if req.MaxItems > 0 && len(all) > req.MaxItems {
		all = all[:req.MaxItems]
	}
	return all
}

// fillFullText replaces short bodies with the extracted page text when the
// extraction succeeds and is longer.
func (f *Fetcher) fillFullText(ctx context.Context, articles []domain.Article) {
	if f.extractor == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.FullTextJobs)
	for i := range articles {
		words := len(strings.Fields(articles[i].Text))
		if words >= f.cfg.MinWords {
			continue
		}
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, f.cfg.Timeout)
			defer cancel()

			text, err := f.extractor.Extract(ectx, articles[i].URL)
			if err != nil {
				f.logger.DebugContext(ctx, "full text extraction failed", "url", articles[i].URL, "error", err)
				metrics.RecordSourceError("fulltext")
				return nil
			}
			if len(strings.Fields(text)) > words {
				articles[i].Text = text
			}
			return nil
		})
	}
	_ = g.Wait()
}
