// Package main provides aguireplay, a CLI that replays a recorded AG-UI
// event stream through the aguikit core and prints the resulting transcript.
//
// Streams are read as JSON Lines or as raw Server-Sent Events. Frontend
// tools are declared in a YAML manifest and answer with canned results, so
// a recording can be replayed without the real UI.
//
// # Basic Usage
//
//	aguireplay run session.jsonl --tools tools.yaml
//	curl -N $AGENT_URL | aguireplay run -
//	aguireplay check session.sse
//	aguireplay tools tools.yaml
//
// # Environment Variables
//
// Configuration can be provided via environment variables or a .env file:
//
//   - AGUIKIT_LOG_LEVEL: debug, info, warn or error (default: info)
//   - AGUIKIT_AGENT_ID: agent the stream belongs to (default: manifest agent)
//   - AGUIKIT_THREAD_ID: thread id override
//   - AGUIKIT_TOOLS: path to the tool manifest
//   - AGUIKIT_EXECUTE: run tool handlers (default: true)
//   - AGUIKIT_TIMEOUT: how long to wait for handlers (default: 30s)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aguireplay",
		Short:         "Replay recorded AG-UI event streams",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(
		buildRunCmd(),
		buildCheckCmd(),
		buildToolsCmd(),
	)
	return rootCmd
}

func buildRunCmd() *cobra.Command {
	var (
		manifestPath string
		agentID      string
		threadID     string
		selectPath   string
		asJSON       bool
		dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Replay a stream and print the transcript",
		Long: `Replay a recorded stream through the core and print the transcript.

The file may hold JSON Lines or SSE frames; "-" or no file reads stdin.
Tool calls for tools in the manifest are executed and their results are
fed back into the thread, as a frontend would.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tools") {
				cfg.Manifest = manifestPath
			}
			if cmd.Flags().Changed("agent") {
				cfg.AgentID = agentID
			}
			if cmd.Flags().Changed("thread") {
				cfg.ThreadID = threadID
			}
			if dryRun {
				cfg.Execute = false
			}
			return runReplay(cmd, cfg, inputArg(args), selectPath, asJSON)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "tools", "t", "", "Path to YAML tool manifest")
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "Agent id the stream belongs to")
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id override")
	cmd.Flags().StringVarP(&selectPath, "select", "s", "", "gjson path applied to tool results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as a MESSAGES_SNAPSHOT event")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Register tools without running their handlers")
	return cmd
}

func buildCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Decode a stream and count its events by type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, inputArg(args))
		},
	}
}

func buildToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools [manifest]",
		Short: "Validate a tool manifest and list its tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(cmd, args[0])
		},
	}
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
