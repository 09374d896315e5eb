package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/domain"
	"fincheck/internal/port"
	"github.com/google/uuid"
)

// DefaultHistoryLimit is how many turns a chat session keeps.
const DefaultHistoryLimit = 12

// ChatConfig holds the chat settings.
type ChatConfig struct {
	TopK            int
	HistoryLimit    int
	FallbackEnabled bool
	OnlineDays      int
	OnlineTopK      int
}

// ChatRequest is one user message. Nil pointers select configured defaults.
type ChatRequest struct {
	Message      string
	SessionID    string
	ExpandOnline *bool
	Days         *int
	Context      string
	Keywords     []string
}

type ChatResponse struct {
	SessionID string                `json:"session_id"`
	Result    domain.ChatResult     `json:"result"`
	Evidence  []domain.EvidenceItem `json:"evidence"`
}

// ChatUseCase answers free-form questions from retrieved evidence with a
// short per-session history.
type ChatUseCase struct {
	retriever port.Retriever
	online    port.OnlineSearcher
	keywords  port.KeywordExtractor
	llm       port.ChatCompleter
	sessions  port.SessionStore
	cfg       ChatConfig
	locks     *sessionLocks
	queryLog  *logging.QueryLogger
	logger    *slog.Logger
}

func NewChatUseCase(
	retriever port.Retriever,
	online port.OnlineSearcher,
	keywords port.KeywordExtractor,
	llm port.ChatCompleter,
	sessions port.SessionStore,
	cfg ChatConfig,
	queryLog *logging.QueryLogger,
	logger *slog.Logger,
) *ChatUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.OnlineTopK <= 0 {
		cfg.OnlineTopK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		retriever: retriever,
		online:    online,
		keywords:  keywords,
		llm:       llm,
		sessions:  sessions,
		cfg:       cfg,
		locks:     newSessionLocks(),
		queryLog:  queryLog,
		logger:    logger.With("component", "chat"),
	}
}

func (u *ChatUseCase) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx = logging.WithSessionID(ctx, sessionID)

	// One request per session at a time: the prompt sees a settled history
	// and both turns are stored together, or not at all.
	unlock, err := u.locks.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stored, err := u.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	userTurn := domain.ChatTurn{Role: domain.RoleUser, Content: req.Message}
	history := lastTurns(append(stored, userTurn), u.cfg.HistoryLimit)

	evidence, err := u.retriever.Retrieve(ctx, req.Message, u.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	if u.expandOnline(req) {
		if online := u.fetchOnline(ctx, req); len(online) > 0 {
			evidence = append(evidence, online...)
		}
	}

	prompt, err := BuildChatPrompt(req.Message, evidence, history, req.Context)
	if err != nil {
		return nil, err
	}
	content, err := CompleteStructured(ctx, u.llm, prompt, ChatMaxTokens, u.logger)
	if err != nil {
		return nil, err
	}
	result := DecodeChat(ParseStructured(content))

	turns := []domain.ChatTurn{userTurn, {Role: domain.RoleAssistant, Content: result.Answer}}
	if _, err := u.sessions.Append(ctx, sessionID, turns, u.cfg.HistoryLimit); err != nil {
		return nil, fmt.Errorf("failed to record turns: %w", err)
	}

	if err := u.queryLog.Log(logging.QueryRecord{
		RequestID:  logging.RequestID(ctx),
		Kind:       "chat",
		Query:      req.Message,
		Evidence:   len(evidence),
		Sources:    evidenceSources(evidence),
		DurationMS: time.Since(start).Milliseconds(),
	}); err != nil {
		u.logger.WarnContext(ctx, "failed to write query log", "error", err)
	}

	return &ChatResponse{
		SessionID: sessionID,
		Result:    result,
		Evidence:  evidence,
	}, nil
}

// History returns the stored turns of a session.
func (u *ChatUseCase) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return u.sessions.History(ctx, sessionID)
}

func lastTurns(turns []domain.ChatTurn, limit int) []domain.ChatTurn {
	if limit > 0 && len(turns) > limit {
		return turns[len(turns)-limit:]
	}
	return turns
}

func (u *ChatUseCase) expandOnline(req ChatRequest) bool {
	if req.ExpandOnline != nil {
		return *req.ExpandOnline
	}
	return u.cfg.FallbackEnabled
}

func (u *ChatUseCase) fetchOnline(ctx context.Context, req ChatRequest) []domain.EvidenceItem {
	if u.online == nil {
		return nil
	}

	kw := req.Keywords
	if len(kw) == 0 && u.keywords != nil {
		kw = u.keywords.Extract(strings.TrimSpace(req.Message + " " + req.Context))
	}
	days := u.cfg.OnlineDays
	if req.Days != nil && *req.Days > 0 {
		days = *req.Days
	}

	return u.online.FetchOnlineEvidence(ctx, port.OnlineQuery{
		Query:       req.Message,
		Days:        days,
		MaxArticles: u.cfg.OnlineTopK * 4,
		Keywords:    kw,
	})
}
