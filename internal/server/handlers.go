package server

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/domain"
	"fincheck/internal/usecase"
	"github.com/labstack/echo/v4"
)

const (
	minClaimLength   = 5
	minMessageLength = 3
)

type checkRequest struct {
	Text string `json:"text"`
}

type chatRequest struct {
	Message      string   `json:"message"`
	SessionID    *string  `json:"session_id"`
	ExpandOnline *bool    `json:"expand_online"`
	Days         *int     `json:"days"`
	Context      *string  `json:"context"`
	Keywords     []string `json:"keywords"`
}

// evidenceChunk is the public shape of an evidence item.
type evidenceChunk struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex *int    `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type checkResponse struct {
	Claim    string               `json:"claim"`
	Result   domain.VerdictResult `json:"result"`
	Evidence []evidenceChunk      `json:"evidence"`
}

type chatResponse struct {
	SessionID string            `json:"session_id"`
	Result    domain.ChatResult `json:"result"`
	Evidence  []evidenceChunk   `json:"evidence"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	History   []domain.ChatTurn `json:"history"`
}

func (s *Server) check(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return unprocessable("invalid request body")
	}
	if utf8.RuneCountInString(req.Text) < minClaimLength {
		return unprocessable("text must be at least 5 characters")
	}

	res, err := s.checker.Check(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, checkResponse{
		Claim:    res.Claim,
		Result:   withCitations(res.Result),
		Evidence: toEvidenceChunks(res.Evidence),
	})
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return unprocessable("invalid request body")
	}
	if utf8.RuneCountInString(req.Message) < minMessageLength {
		return unprocessable("message must be at least 3 characters")
	}
	if req.Days != nil && *req.Days <= 0 {
		return unprocessable("days must be positive")
	}

	in := usecase.ChatRequest{
		Message:      req.Message,
		ExpandOnline: req.ExpandOnline,
		Days:         req.Days,
		Keywords:     req.Keywords,
	}
	if req.SessionID != nil {
		in.SessionID = strings.TrimSpace(*req.SessionID)
	}
	if req.Context != nil {
		in.Context = *req.Context
	}

	ctx := c.Request().Context()
	if in.SessionID != "" {
		ctx = logging.WithSessionID(ctx, in.SessionID)
	}

	res, err := s.chatter.Chat(ctx, in)
	if err != nil {
		return err
	}

	result := res.Result
	if result.Citations == nil {
		result.Citations = []string{}
	}
	return c.JSON(http.StatusOK, chatResponse{
		SessionID: res.SessionID,
		Result:    result,
		Evidence:  toEvidenceChunks(res.Evidence),
	})
}

func (s *Server) history(c echo.Context) error {
	id := c.Param("session_id")
	turns, err := s.chatter.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return c.JSON(http.StatusOK, historyResponse{SessionID: id, History: turns})
}

func unprocessable(msg string) error {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, msg)
}

func withCitations(v domain.VerdictResult) domain.VerdictResult {
	if v.Citations == nil {
		v.Citations = []string{}
	}
	return v
}

func toEvidenceChunks(items []domain.EvidenceItem) []evidenceChunk {
	out := make([]evidenceChunk, 0, len(items))
	for _, it := range items {
		out = append(out, evidenceChunk{
			Text:       it.Text,
			Source:     it.Source,
			ChunkIndex: it.ChunkIndex,
			Score:      it.Score,
		})
	}
	return out
}
