// Package app wires configuration into adapters and use cases. Components
// are built on first use so that commands which never call the language
// model do not need an API key.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fincheck/config"
	"fincheck/internal/adapter/analyzer"
	"fincheck/internal/adapter/cache"
	"fincheck/internal/adapter/chunker"
	"fincheck/internal/adapter/embedding"
	"fincheck/internal/adapter/fs"
	"fincheck/internal/adapter/llm"
	"fincheck/internal/adapter/logging"
	"fincheck/internal/adapter/memstore"
	"fincheck/internal/adapter/online"
	"fincheck/internal/adapter/store"
	"fincheck/internal/port"
	"fincheck/internal/usecase"
)

// App holds the shared components of one process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embedder  port.Embedder
	query     port.Embedder
	retriever *usecase.EvidenceRetriever
	cached    port.Retriever
	results   *cache.QueryCache
	fetcher   *online.Fetcher
	feeds     *online.FeedSource
	extractor *online.ReadabilityExtractor
	keywords  *analyzer.KeywordExtractor
	chat      port.ChatCompleter
	sessions  port.SessionStore
	queryLog  *logging.QueryLogger
	client    *http.Client

	closers []func() error
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.OnlineTimeout()},
	}
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases files opened by the components.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Embedder returns the corpus embedder selected by embedding.provider.
func (a *App) Embedder() (port.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}

	c := a.cfg.Embedding
	switch c.Provider {
	case "hash":
		a.embedder = embedding.NewHashEmbedder(c.Dimension)
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(c.APIKeyEnv, c.Model, c.BaseURL, c.Dimension, c.BatchSize, a.cfg.EmbeddingTimeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		a.embedder = e
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", c.Provider)
	}
	return a.embedder, nil
}

// queryEmbedder is the corpus embedder behind an LRU of recent texts.
func (a *App) queryEmbedder() (port.Embedder, error) {
	if a.query != nil {
		return a.query, nil
	}
	e, err := a.Embedder()
	if err != nil {
		return nil, err
	}
	a.query = cache.NewCachedEmbedder(e, a.cfg.Embedding.CacheSize, time.Hour)
	return a.query, nil
}

// IndexUseCase builds the corpus indexer.
func (a *App) IndexUseCase() (*usecase.IndexUseCase, error) {
	e, err := a.Embedder()
	if err != nil {
		return nil, err
	}
	c := a.cfg
	return usecase.NewIndexUseCase(
		store.NewBoltIndexStore(c.Index.Path),
		fs.NewWalker(c.Corpus.Includes, c.Corpus.Excludes),
		chunker.NewWordChunker(c.Index.ChunkSize, c.Index.ChunkOverlap),
		e,
		c.Index.ChunkSize,
		c.Index.ChunkOverlap,
		a.logger,
	), nil
}

// Retriever returns the evidence retriever, initialising it when it is not
// ready yet, and the cached view the use cases query through. On an Init
// failure the components are still kept so a later call or Reload can retry.
func (a *App) Retriever(ctx context.Context) (*usecase.EvidenceRetriever, port.Retriever, error) {
	r, cached, err := a.evidence()
	if err != nil {
		return nil, nil, err
	}
	if !r.Ready() {
		if err := r.Init(ctx); err != nil {
			return r, cached, err
		}
	}
	return r, cached, nil
}

// Reload re-reads the index from disk and drops cached results.
func (a *App) Reload(ctx context.Context) error {
	r, _, err := a.evidence()
	if err != nil {
		return err
	}
	if err := r.Init(ctx); err != nil {
		return err
	}
	a.results.Invalidate()
	return nil
}

func (a *App) evidence() (*usecase.EvidenceRetriever, port.Retriever, error) {
	if a.retriever != nil {
		return a.retriever, a.cached, nil
	}

	e, err := a.queryEmbedder()
	if err != nil {
		return nil, nil, err
	}
	c := a.cfg
	if c.Index.MetadataPath != "" && c.Index.MetadataPath != c.Index.Path {
		a.logger.Warn("metadata path ignored, metadata is stored with the index", "metadata_path", c.Index.MetadataPath, "index_path", c.Index.Path)
	}

	a.retriever = usecase.NewEvidenceRetriever(store.NewBoltIndexStore(c.Index.Path), e, c.Index.ChunkSize, c.Index.ChunkOverlap, a.logger)
	a.results = cache.NewQueryCache(c.Retrieve.CacheSize, time.Duration(c.Retrieve.CacheTTLSeconds)*time.Second)
	a.cached = cache.NewCachedRetriever(a.retriever, a.results)
	return a.retriever, a.cached, nil
}

// Extractor returns the readability extractor shared by the online fetcher
// and ingestion.
func (a *App) Extractor() *online.ReadabilityExtractor {
	if a.extractor == nil {
		limiter := online.NewHostRateLimiter(time.Duration(a.cfg.Online.HostIntervalMS) * time.Millisecond)
		a.extractor = online.NewReadabilityExtractor(a.client, limiter, a.cfg.Online.UserAgent)
	}
	return a.extractor
}

// Feeds returns the feed source over the configured feed lists.
func (a *App) Feeds() (*online.FeedSource, error) {
	if a.feeds != nil {
		return a.feeds, nil
	}
	list, err := online.LoadFeedList(a.cfg.Online.FeedFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed lists: %w", err)
	}
	a.feeds = online.NewFeedSource(list, a.cfg.Online.UserAgent, a.client, a.logger)
	return a.feeds, nil
}

// Online returns the online evidence fetcher.
func (a *App) Online() (*online.Fetcher, error) {
	if a.fetcher != nil {
		return a.fetcher, nil
	}

	e, err := a.queryEmbedder()
	if err != nil {
		return nil, err
	}
	feeds, err := a.Feeds()
	if err != nil {
		return nil, err
	}

	c := a.cfg.Online
	news := online.NewNewsAPISource(c.NewsAPIURL, os.Getenv(c.NewsAPIKeyEnv), c.UserAgent, a.client)
	allow := online.ParseAllowlist(c.AllowDomains)
	if allow.Empty() {
		a.logger.Warn("online allowlist is empty, every host is trusted")
	}

	a.fetcher = online.NewFetcher(
		[]port.ArticleSource{news, feeds},
		allow,
		a.Extractor(),
		online.NewRanker(e),
		online.FetcherConfig{
			Days:     c.Days,
			TopK:     c.TopK,
			Timeout:  a.cfg.OnlineTimeout(),
			MinWords: c.MinWords,
		},
		a.logger,
	)
	return a.fetcher, nil
}

// Keywords returns the keyword extractor with the optional symbol list.
func (a *App) Keywords() (*analyzer.KeywordExtractor, error) {
	if a.keywords != nil {
		return a.keywords, nil
	}
	symbols, err := analyzer.LoadSymbols(a.cfg.Keywords.SymbolsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	a.keywords = analyzer.NewKeywordExtractor(symbols, a.cfg.Keywords.Max)
	return a.keywords, nil
}

// LLM returns the chat completer.
func (a *App) LLM() (port.ChatCompleter, error) {
	if a.chat != nil {
		return a.chat, nil
	}
	c := a.cfg.LLM
	client, err := llm.NewOpenAIChat(c.APIKeyEnv, c.Model, c.BaseURL, c.Temperature, a.cfg.LLMTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.chat = client
	return a.chat, nil
}

// Sessions returns the chat session store selected by chat.session_store.
func (a *App) Sessions() (port.SessionStore, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}
	switch a.cfg.Chat.SessionStore {
	case "bolt":
		s, err := store.NewBoltSessionStore(a.cfg.Chat.SessionPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		a.sessions = s
	default:
		a.sessions = memstore.NewSessionStore(a.cfg.Chat.MaxSessions, time.Duration(a.cfg.Chat.SessionTTLSeconds)*time.Second)
	}
	return a.sessions, nil
}

// QueryLog returns the audit log, or nil when logging.query_log is empty.
func (a *App) QueryLog() (*logging.QueryLogger, error) {
	if a.queryLog != nil || a.cfg.Logging.QueryLog == "" {
		return a.queryLog, nil
	}
	l, err := logging.OpenQueryLog(a.cfg.Logging.QueryLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	a.closers = append(a.closers, l.Close)
	a.queryLog = l
	return a.queryLog, nil
}

type checkDeps struct {
	retriever port.Retriever
	online    *online.Fetcher
	keywords  *analyzer.KeywordExtractor
	llm       port.ChatCompleter
	queryLog  *logging.QueryLogger
}

// checkDeps gathers the shared use case dependencies. The retriever is not
// initialised here; callers decide whether a missing index is fatal.
func (a *App) checkDeps() (*checkDeps, error) {
	_, retriever, err := a.evidence()
	if err != nil {
		return nil, err
	}
	fetcher, err := a.Online()
	if err != nil {
		return nil, err
	}
	keywords, err := a.Keywords()
	if err != nil {
		return nil, err
	}
	completer, err := a.LLM()
	if err != nil {
		return nil, err
	}
	queryLog, err := a.QueryLog()
	if err != nil {
		return nil, err
	}
	return &checkDeps{
		retriever: retriever,
		online:    fetcher,
		keywords:  keywords,
		llm:       completer,
		queryLog:  queryLog,
	}, nil
}

// CheckUseCase builds the claim checker.
func (a *App) CheckUseCase() (*usecase.CheckUseCase, error) {
	d, err := a.checkDeps()
	if err != nil {
		return nil, err
	}
	c := a.cfg
	return usecase.NewCheckUseCase(d.retriever, d.online, d.keywords, d.llm, usecase.CheckConfig{
		TopK:            c.Retrieve.TopK,
		SupportedTh:     c.Verdict.SupportedTh,
		UncertainTh:     c.Verdict.UncertainTh,
		FallbackEnabled: c.Online.FallbackEnabled,
		OnlineDays:      c.Online.Days,
		OnlineTopK:      c.Online.TopK,
	}, d.queryLog, a.logger), nil
}

// ChatUseCase builds the chat answerer.
func (a *App) ChatUseCase() (*usecase.ChatUseCase, error) {
	d, err := a.checkDeps()
	if err != nil {
		return nil, err
	}
	sessions, err := a.Sessions()
	if err != nil {
		return nil, err
	}
	c := a.cfg
	return usecase.NewChatUseCase(d.retriever, d.online, d.keywords, d.llm, sessions, usecase.ChatConfig{
		TopK:            c.Retrieve.TopK,
		HistoryLimit:    c.Chat.HistoryLimit,
		FallbackEnabled: c.Online.FallbackEnabled,
		OnlineDays:      c.Online.Days,
		OnlineTopK:      c.Online.TopK,
	}, d.queryLog, a.logger), nil
}

// IngestUseCase builds the corpus ingester writing into corpus.dir.
func (a *App) IngestUseCase() (*usecase.IngestUseCase, error) {
	feeds, err := a.Feeds()
	if err != nil {
		return nil, err
	}
	return usecase.NewIngestUseCase(a.cfg.Corpus.Dir, a.Extractor(), feeds, a.logger), nil
}
