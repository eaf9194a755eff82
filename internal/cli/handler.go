// Package cli implements the reviewer command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aireviewer/internal/config"
)

// Version is overridden at build time with -ldflags "-X aireviewer/internal/cli.Version=...".
var Version = "0.1.0"

// Handler handles CLI commands
type Handler struct {
	cfg        *config.Config
	configPath string
	rootCmd    *cobra.Command
}

// New creates a new CLI handler
func New() *Handler {
	h := &Handler{}
	h.setupCommands()
	return h
}

func (h *Handler) setupCommands() {
	h.rootCmd = &cobra.Command{
		Use:           "reviewer",
		Short:         "Map requirements to their implementation in a code base",
		Long:          "Summarizes a repository with an LLM and reports where each requested feature is implemented",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return h.loadConfig()
		},
	}

	h.rootCmd.PersistentFlags().StringVarP(&h.configPath, "config", "c", "",
		"Path to a YAML configuration file")

	h.rootCmd.AddCommand(h.analyzeCmd())
	h.rootCmd.AddCommand(h.serveCmd())
	h.rootCmd.AddCommand(h.versionCmd())
}

func (h *Handler) loadConfig() error {
	cfg, err := config.Load(h.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	h.cfg = cfg
	return nil
}

// Execute runs the CLI with args (os.Args[1:] when nil).
func (h *Handler) Execute(args []string) error {
	if args != nil {
		h.rootCmd.SetArgs(args)
	}
	return h.rootCmd.Execute()
}

// Run is the main entry point
func Run() {
	if err := New().Execute(nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (h *Handler) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reviewer %s\n", Version)
		},
	}
}
