package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LabeledClaim is one row of an evaluation set.
type LabeledClaim struct {
	Claim string
	Label string
}

// EvalOutcome is the result for one labeled claim.
type EvalOutcome struct {
	Claim    string       `json:"claim"`
	Expected string       `json:"expected,omitempty"`
	Got      string       `json:"got,omitempty"`
	Correct  bool         `json:"correct"`
	Error    string       `json:"error,omitempty"`
	Raw      *CheckResult `json:"raw,omitempty"`
}

// EvalReport summarises an evaluation run.
type EvalReport struct {
	Total    int           `json:"total"`
	Correct  int           `json:"correct"`
	Errors   int           `json:"errors"`
	Accuracy float64       `json:"accuracy"`
	Results  []EvalOutcome `json:"results"`
}

// ClaimChecker is the part of CheckUseCase an evaluation needs.
type ClaimChecker interface {
	Check(ctx context.Context, claim string) (*CheckResult, error)
}

// LoadClaims reads a CSV with a header row containing claim_text and,
// optionally, label. Rows with an empty claim_text are dropped.
func LoadClaims(r io.Reader) ([]LabeledClaim, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("claims file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	claimCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "claim_text":
			claimCol = i
		case "label":
			labelCol = i
		}
	}
	if claimCol < 0 {
		return nil, fmt.Errorf("claims file has no claim_text column")
	}

	var claims []LabeledClaim
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read claims: %w", err)
		}
		if claimCol >= len(row) {
			continue
		}
		c := LabeledClaim{Claim: strings.TrimSpace(row[claimCol])}
		if c.Claim == "" {
			continue
		}
		if labelCol >= 0 && labelCol < len(row) {
			c.Label = strings.TrimSpace(row[labelCol])
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// Evaluate checks every claim in order. A claim counts as correct when both
// labels are present and equal ignoring case; failed checks count against
// accuracy.
func Evaluate(ctx context.Context, checker ClaimChecker, claims []LabeledClaim, progress ProgressFunc) (*EvalReport, error) {
	report := &EvalReport{Total: len(claims), Results: make([]EvalOutcome, 0, len(claims))}

	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		out := EvalOutcome{Claim: c.Claim, Expected: c.Label}
		res, err := checker.Check(ctx, c.Claim)
		if err != nil {
			out.Error = err.Error()
			report.Errors++
		} else {
			out.Got = res.Result.Verdict
			out.Raw = res
			out.Correct = c.Label != "" && out.Got != "" && strings.EqualFold(c.Label, out.Got)
		}
		if out.Correct {
			report.Correct++
		}
		report.Results = append(report.Results, out)

		if progress != nil {
			progress(i+1, len(claims))
		}
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}
	return report, nil
}
