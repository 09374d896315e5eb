package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/adapter/metrics"
	"fincheck/internal/domain"
	"fincheck/internal/port"
)

// CheckConfig holds the verdict and fallback settings.
type CheckConfig struct {
	TopK            int
	SupportedTh     float64
	UncertainTh     float64 // reserved: reported, never consulted
	FallbackEnabled bool
	OnlineDays      int
	OnlineTopK      int
}

// CheckResult is the outcome of one claim check.
type CheckResult struct {
	Claim    string                `json:"claim"`
	Result   domain.VerdictResult  `json:"result"`
	Evidence []domain.EvidenceItem `json:"evidence"`
	Expanded bool                  `json:"expanded"`
}

// CheckUseCase produces a verdict from local evidence and, when that verdict
// is weak, makes one more attempt with online evidence added.
type CheckUseCase struct {
	retriever port.Retriever
	online    port.OnlineSearcher
	keywords  port.KeywordExtractor
	llm       port.ChatCompleter
	cfg       CheckConfig
	queryLog  *logging.QueryLogger
	logger    *slog.Logger
}

// NewCheckUseCase wires a check pipeline. online and queryLog may be nil.
func NewCheckUseCase(
	retriever port.Retriever,
	online port.OnlineSearcher,
	keywords port.KeywordExtractor,
	llm port.ChatCompleter,
	cfg CheckConfig,
	queryLog *logging.QueryLogger,
	logger *slog.Logger,
) *CheckUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.OnlineTopK <= 0 {
		cfg.OnlineTopK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckUseCase{
		retriever: retriever,
		online:    online,
		keywords:  keywords,
		llm:       llm,
		cfg:       cfg,
		queryLog:  queryLog,
		logger:    logger.With("component", "check"),
	}
}

// ShouldExpand reports whether a verdict is weak enough to go online:
// fallback is enabled and the label is Unverifiable or the confidence is
// below the support threshold.
func (u *CheckUseCase) ShouldExpand(v domain.VerdictResult) bool {
	if !u.cfg.FallbackEnabled {
		return false
	}
	return strings.EqualFold(v.Verdict, domain.VerdictUnverifiable) || v.Confidence < u.cfg.SupportedTh
}

// Check verifies one claim. Retrieval failures and upstream failures are
// returned; online failures only mean no retry happens.
func (u *CheckUseCase) Check(ctx context.Context, claim string) (*CheckResult, error) {
	start := time.Now()

	evidence, err := u.retriever.Retrieve(ctx, claim, u.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	result, err := u.verdict(ctx, claim, evidence)
	if err != nil {
		return nil, err
	}

	out := &CheckResult{Claim: claim, Result: result, Evidence: evidence}

	switch {
	case !u.ShouldExpand(result):
		metrics.RecordFallback("not_needed")
	default:
		online := u.expand(ctx, claim)
		if len(online) == 0 {
			metrics.RecordFallback("no_online_evidence")
			break
		}

		combined := make([]domain.EvidenceItem, 0, len(evidence)+len(online))
		combined = append(combined, evidence...)
		combined = append(combined, online...)

		retried, err := u.verdict(ctx, claim, combined)
		if err != nil {
			return nil, err
		}
		metrics.RecordFallback("retried")
		u.logger.InfoContext(ctx, "verdict retried with online evidence",
			"initial", result.Verdict,
			"initial_confidence", result.Confidence,
			"verdict", retried.Verdict,
			"confidence", retried.Confidence,
			"online", len(online))

		out.Result = retried
		out.Evidence = combined
		out.Expanded = true
	}

	metrics.RecordVerdict(out.Result.Verdict, out.Expanded)
	u.audit(ctx, out, time.Since(start))
	return out, nil
}

func (u *CheckUseCase) verdict(ctx context.Context, claim string, evidence []domain.EvidenceItem) (domain.VerdictResult, error) {
	prompt, err := BuildVerdictPrompt(claim, evidence)
	if err != nil {
		return domain.VerdictResult{}, err
	}
	content, err := CompleteStructured(ctx, u.llm, prompt, VerdictMaxTokens, u.logger)
	if err != nil {
		return domain.VerdictResult{}, err
	}
	return DecodeVerdict(ParseStructured(content)), nil
}

func (u *CheckUseCase) expand(ctx context.Context, claim string) []domain.EvidenceItem {
	if u.online == nil {
		return nil
	}
	var kw []string
	if u.keywords != nil {
		kw = u.keywords.Extract(claim)
	}
	return u.online.FetchOnlineEvidence(ctx, port.OnlineQuery{
		Query:       claim,
		Days:        u.cfg.OnlineDays,
		MaxArticles: u.cfg.OnlineTopK * 4,
		Keywords:    kw,
	})
}

func (u *CheckUseCase) audit(ctx context.Context, res *CheckResult, elapsed time.Duration) {
	err := u.queryLog.Log(logging.QueryRecord{
		RequestID:  logging.RequestID(ctx),
		Kind:       "check",
		Query:      res.Claim,
		Verdict:    res.Result.Verdict,
		Confidence: res.Result.Confidence,
		Expanded:   res.Expanded,
		Evidence:   len(res.Evidence),
		Sources:    evidenceSources(res.Evidence),
		DurationMS: elapsed.Milliseconds(),
	})
	if err != nil {
		u.logger.WarnContext(ctx, "failed to write query log", "error", err)
	}
}

// evidenceSources lists distinct sources in order of appearance.
func evidenceSources(items []domain.EvidenceItem) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if _, ok := seen[it.Source]; ok {
			continue
		}
		seen[it.Source] = struct{}{}
		out = append(out, it.Source)
	}
	return out
}
