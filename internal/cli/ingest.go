package cli

import (
	"fmt"
	"os"

	"fincheck/internal/adapter/online"
	"fincheck/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	ingestURLs     []string
	ingestURLFiles []string
	ingestFeeds    bool
	ingestFeedURLs []string
	ingestPerFeed  int
	ingestReindex  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add web articles and feed entries to the corpus",
	Long: `Download articles, extract their readable text and save them into the
corpus directory as header-annotated text files (title, source, date, url).
Entries with fewer than 40 words are skipped.

Examples:
  fincheck ingest --url https://www.sec.gov/news/press-release/2025-101
  fincheck ingest --urls-file urls.txt
  fincheck ingest --feeds --per-feed 10 --reindex`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestURLs, "url", nil, "article URL (repeatable)")
	ingestCmd.Flags().StringSliceVar(&ingestURLFiles, "urls-file", nil, "file with one URL per line")
	ingestCmd.Flags().BoolVar(&ingestFeeds, "feeds", false, "read the configured feed lists")
	ingestCmd.Flags().StringSliceVar(&ingestFeedURLs, "feed", nil, "feed URL (repeatable)")
	ingestCmd.Flags().IntVar(&ingestPerFeed, "per-feed", 20, "maximum entries per feed")
	ingestCmd.Flags().BoolVar(&ingestReindex, "reindex", false, "rebuild the index afterwards")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a := GetApp()
	ctx := cmd.Context()

	urls := append([]string(nil), ingestURLs...)
	if len(ingestURLFiles) > 0 {
		for _, f := range ingestURLFiles {
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("URL file not readable: %w", err)
			}
		}
		fromFiles, err := online.LoadFeedList(ingestURLFiles...)
		if err != nil {
			return fmt.Errorf("failed to read URL files: %w", err)
		}
		urls = append(urls, fromFiles...)
	}

	feeds := append([]string(nil), ingestFeedURLs...)
	if ingestFeeds {
		src, err := a.Feeds()
		if err != nil {
			return err
		}
		feeds = append(feeds, src.Feeds()...)
	}

	if len(urls) == 0 && len(feeds) == 0 {
		return fmt.Errorf("nothing to ingest: pass --url, --urls-file, --feed or --feeds")
	}

	ingestUC, err := a.IngestUseCase()
	if err != nil {
		return err
	}

	total := &usecase.IngestResult{}
	if len(urls) > 0 {
		res, err := ingestUC.IngestURLs(ctx, urls, newProgress("Articles"))
		mergeIngest(total, res)
		if err != nil {
			return err
		}
	}
	if len(feeds) > 0 {
		res, err := ingestUC.IngestFeeds(ctx, feeds, ingestPerFeed, newProgress("Feeds"))
		mergeIngest(total, res)
		if err != nil {
			return err
		}
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files saved:   %d\n", len(total.Saved))
	fmt.Printf("  Skipped:       %d (too short)\n", total.Skipped)
	if len(total.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range total.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Printf("\nCorpus directory: %s\n", cfg.Corpus.Dir)

	if ingestReindex && len(total.Saved) > 0 {
		return runIndex(cmd, nil)
	}
	return nil
}

func mergeIngest(dst, src *usecase.IngestResult) {
	if src == nil {
		return
	}
	dst.Saved = append(dst.Saved, src.Saved...)
	dst.Skipped += src.Skipped
	dst.Errors = append(dst.Errors, src.Errors...)
}
