package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fincheck/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Runs fincheck as an MCP (Model Context Protocol) server so that agents can
call the check_claim, ask and session_history tools over stdio. Logs go to stderr.

Configure in an MCP client:
  {
    "mcpServers": {
      "fincheck": {"command": "fincheck", "args": ["mcp"]}
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a := GetApp()
	logger := a.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, _, err := a.Retriever(ctx); err != nil {
		return err
	}
	checkUC, err := a.CheckUseCase()
	if err != nil {
		return err
	}
	chatUC, err := a.ChatUseCase()
	if err != nil {
		return err
	}

	server := mcp.NewServer(Version, checkUC, chatUC)
	logger.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
