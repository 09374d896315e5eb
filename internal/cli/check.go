package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	checkJSON bool
)

var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Fact-check a financial claim",
	Long: `Retrieve local evidence for the claim and ask the language model for a verdict
(True, False, Misleading or Unverifiable). When the verdict is weak and the online
fallback is enabled, recent news is fetched and the verdict is produced once more.

Examples:
  fincheck check "Apple raised its quarterly dividend by 4%"
  fincheck check --json "Tesla delivered 500,000 vehicles in Q3 2025"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	claim := strings.TrimSpace(strings.Join(args, " "))
	if len([]rune(claim)) < 5 {
		return fmt.Errorf("claim must be at least 5 characters")
	}

	if _, _, err := a.Retriever(ctx); err != nil {
		return err
	}
	checkUC, err := a.CheckUseCase()
	if err != nil {
		return err
	}

	res, err := checkUC.Check(ctx, claim)
	if err != nil {
		return err
	}

	if checkJSON {
		output, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Claim:      %s\n", res.Claim)
	fmt.Printf("Verdict:    %s\n", res.Result.Verdict)
	fmt.Printf("Confidence: %.2f\n", res.Result.Confidence)
	if res.Expanded {
		fmt.Println("Evidence:   local + online")
	}
	fmt.Printf("\n%s\n", res.Result.Reasoning)
	if len(res.Result.Citations) > 0 {
		fmt.Println("\nCitations:")
		for _, c := range res.Result.Citations {
			fmt.Printf("  - %s\n", c)
		}
	}
	if len(res.Evidence) > 0 {
		fmt.Println()
		printEvidence(res.Evidence)
	}
	return nil
}
