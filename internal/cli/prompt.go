package cli

import (
	"fmt"

	"fincheck/internal/domain"
	"fincheck/internal/port"
	"fincheck/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	promptClaim   string
	promptMessage string
	promptContext string
	promptOnline  bool
	promptTopK    int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the model prompt for a claim or question",
	Long: `Retrieve evidence and print the prompt that would be sent to the language
model, without calling it. Useful for manual orchestration and prompt review.

Use --claim for the verdict prompt and --message for the chat prompt.

Examples:
  fincheck prompt --claim "Microsoft beat revenue estimates in Q2"
  fincheck prompt --message "What drove the margin decline?" --context "claim: ..."`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptClaim, "claim", "", "claim for the verdict prompt")
	promptCmd.Flags().StringVar(&promptMessage, "message", "", "question for the chat prompt")
	promptCmd.Flags().StringVar(&promptContext, "context", "", "extra context for the chat prompt")
	promptCmd.Flags().BoolVar(&promptOnline, "online", false, "include online evidence")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of local results (default from config)")
	promptCmd.MarkFlagsMutuallyExclusive("claim", "message")
	promptCmd.MarkFlagsOneRequired("claim", "message")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a := GetApp()
	ctx := cmd.Context()

	query := promptClaim
	if promptMessage != "" {
		query = promptMessage
	}

	_, retriever, err := a.Retriever(ctx)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if promptTopK > 0 {
		topK = promptTopK
	}
	evidence, err := retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if promptOnline {
		online, err := onlineEvidence(cmd, query+" "+promptContext, 0)
		if err != nil {
			return err
		}
		evidence = append(evidence, online...)
	}

	var prompt string
	if promptClaim != "" {
		prompt, err = usecase.BuildVerdictPrompt(promptClaim, evidence)
	} else {
		prompt, err = usecase.BuildChatPrompt(promptMessage, evidence, nil, promptContext)
	}
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}

	fmt.Println(prompt)
	return nil
}

// onlineEvidence fetches ranked online evidence for text, narrowing the
// search with extracted keywords.
func onlineEvidence(cmd *cobra.Command, text string, days int) ([]domain.EvidenceItem, error) {
	a := GetApp()
	fetcher, err := a.Online()
	if err != nil {
		return nil, err
	}
	keywords, err := a.Keywords()
	if err != nil {
		return nil, err
	}
	return fetcher.FetchOnlineEvidence(cmd.Context(), port.OnlineQuery{
		Query:    text,
		Days:     days,
		Keywords: keywords.Extract(text),
	}), nil
}
