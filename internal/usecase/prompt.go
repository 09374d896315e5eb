package usecase

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"fincheck/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var prompts = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	noEvidence = "No relevant evidence retrieved."
	noHistory  = "(no prior context)"
	noContext  = "(no additional context)"

	// promptHistoryTurns is how many recent turns the chat prompt shows.
	promptHistoryTurns = 4
)

// FormatEvidence renders evidence items for a prompt, one block per item
// separated by a blank line.
func FormatEvidence(items []domain.EvidenceItem) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		source := it.Source
		if source == "" {
			source = "unknown"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s (score=%.2f)", source, it.Score)
		if it.URL != "" {
			fmt.Fprintf(&b, "\nURL: %s", it.URL)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(it.Text))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// BuildVerdictPrompt renders the fact-checking prompt for one claim.
func BuildVerdictPrompt(claim string, evidence []domain.EvidenceItem) (string, error) {
	return render("verdict.tmpl", struct {
		Claim    string
		Evidence string
	}{
		Claim:    claim,
		Evidence: orDefault(FormatEvidence(evidence), noEvidence),
	})
}

// BuildChatPrompt renders the chat prompt over the most recent turns.
func BuildChatPrompt(message string, evidence []domain.EvidenceItem, history []domain.ChatTurn, context string) (string, error) {
	if len(history) > promptHistoryTurns {
		history = history[len(history)-promptHistoryTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", titleCase(turn.Role), turn.Content))
	}

	return render("chat.tmpl", struct {
		History  string
		Context  string
		Message  string
		Evidence string
	}{
		History:  orDefault(strings.Join(lines, "\n"), noHistory),
		Context:  orDefault(context, noContext),
		Message:  message,
		Evidence: orDefault(FormatEvidence(evidence), noEvidence),
	})
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return "User"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
