// Package main contains the entrypoint for the tgassist Telegram assistant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgassist",
		Short: "Telegram assistant that archives group chats and answers with an LLM",
		Long: `tgassist archives the messages of the groups its owner belongs to and,
on request, summarizes a group, lists open action items or drafts a reply.

Examples:
  tgassist serve --config ./config.yaml
  tgassist import ./result.json
  tgassist groups`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "./config.yaml", "Path to configuration file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newGroupsCmd())
	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
