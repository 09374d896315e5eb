package cli

import (
	"encoding/json"
	"fmt"

	"fincheck/internal/domain"
	"github.com/spf13/cobra"
)

var (
	queryText   string
	queryTopK   int
	queryJSON   bool
	queryOnline bool
	queryDays   int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the evidence index",
	Long: `Search the local evidence index without asking the language model.
With --online, ranked live news evidence is listed after the local results.

Examples:
  fincheck query -q "Tesla third quarter deliveries"
  fincheck query -q "NVDA data center revenue" --top-k 10 --json
  fincheck query -q "Fed rate decision" --online --days 7`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryOnline, "online", false, "also fetch online evidence")
	queryCmd.Flags().IntVar(&queryDays, "days", 0, "online look-back window in days (default from config)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a := GetApp()
	ctx := cmd.Context()

	_, retriever, err := a.Retriever(ctx)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := retriever.Retrieve(ctx, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryOnline {
		online, err := onlineEvidence(cmd, queryText, queryDays)
		if err != nil {
			return err
		}
		results = append(results, online...)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	printEvidence(results)
	return nil
}

func printEvidence(items []domain.EvidenceItem) {
	for i, r := range items {
		loc := "online"
		if r.ChunkIndex != nil {
			loc = fmt.Sprintf("chunk %d", *r.ChunkIndex)
		}
		fmt.Printf("--- [%d] %s, %s (score: %.2f) ---\n", i+1, r.Source, loc, r.Score)
		if r.URL != "" {
			fmt.Println(r.URL)
		}
		// Truncate long text for display
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
}
