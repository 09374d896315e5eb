package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"fincheck/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	chatSession  string
	chatMessage  string
	chatContext  string
	chatNoOnline bool
	chatDays     int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask financial questions grounded in evidence",
	Long: `Answer questions from retrieved evidence, keeping the last turns of the
session as context. Without --message an interactive prompt reads one question
per line until EOF or "exit".

Examples:
  fincheck chat
  fincheck chat -m "Why did the stock fall after earnings?" --context "claim: ..."
  fincheck chat --session 3f1c... -m "And the year before?"`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to continue")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "single message to send")
	chatCmd.Flags().StringVar(&chatContext, "context", "", "extra context, e.g. a claim and its verdict")
	chatCmd.Flags().BoolVar(&chatNoOnline, "no-online", false, "do not fetch online evidence")
	chatCmd.Flags().IntVar(&chatDays, "days", 0, "online look-back window in days (default from config)")
}

func runChat(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	if _, _, err := a.Retriever(ctx); err != nil {
		return err
	}
	chatUC, err := a.ChatUseCase()
	if err != nil {
		return err
	}

	req := usecase.ChatRequest{
		SessionID: chatSession,
		Context:   chatContext,
	}
	if chatNoOnline {
		expand := false
		req.ExpandOnline = &expand
	}
	if chatDays > 0 {
		req.Days = &chatDays
	}

	send := func(message string) error {
		req.Message = message
		res, err := chatUC.Chat(ctx, req)
		if err != nil {
			return err
		}
		req.SessionID = res.SessionID

		fmt.Printf("\n%s\n", res.Result.Answer)
		for _, c := range res.Result.Citations {
			fmt.Printf("  [%s]\n", c)
		}
		fmt.Println()
		return nil
	}

	if chatMessage != "" {
		if err := send(chatMessage); err != nil {
			return err
		}
		fmt.Printf("session: %s\n", req.SessionID)
		return nil
	}

	fmt.Println("Ask a question (\"exit\" to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if len([]rune(line)) < 3 {
			fmt.Println("message must be at least 3 characters")
			continue
		}
		if err := send(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	if req.SessionID != "" {
		fmt.Printf("session: %s\n", req.SessionID)
	}
	return scanner.Err()
}
