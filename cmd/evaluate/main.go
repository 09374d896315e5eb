package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"fincheck/config"
	"fincheck/internal/adapter/logging"
	"fincheck/internal/app"
	"fincheck/internal/usecase"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

func main() {
	dir := flag.String("dir", ".", "project directory (config and relative paths)")
	cfgFile := flag.String("config", "", "config file (default is <dir>/fincheck.yaml)")
	claimsFile := flag.String("file", filepath.Join("data", "claims", "claims.csv"), "claims CSV with claim_text and label columns")
	out := flag.String("out", filepath.Join("data", "eval_results.json"), "where to write per-claim results")
	flag.Parse()

	_ = godotenv.Load(filepath.Join(*dir, ".env"))

	if err := run(*dir, *cfgFile, *claimsFile, *out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir, cfgFile, claimsFile, out string) error {
	cfg, err := config.Resolve(dir, cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	f, err := os.Open(claimsFile)
	if err != nil {
		return err
	}
	claims, err := usecase.LoadClaims(f)
	f.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := app.New(cfg, logger)
	defer a.Close()

	if _, _, err := a.Retriever(ctx); err != nil {
		return err
	}
	checkUC, err := a.CheckUseCase()
	if err != nil {
		return err
	}

	fmt.Println("CLAIM EVALUATION")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Claims: %d from %s\n", len(claims), claimsFile)
	fmt.Printf("Model:  %s, embeddings %s\n", cfg.LLM.Model, cfg.Embedding.Model)
	fmt.Println()

	bar := progressbar.NewOptions(len(claims),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Checking"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
	report, err := usecase.Evaluate(ctx, checkUC, claims, func(done, total int) {
		bar.Set(done)
	})
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Claims evaluated: %d\n", report.Total)
	fmt.Printf("Errors:           %d\n", report.Errors)
	fmt.Printf("Accuracy (exact verdict match): %.2f%%\n", report.Accuracy*100)

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Saved detailed results to %s\n", out)
	return nil
}
