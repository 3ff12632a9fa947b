package main

import (
	"context"
	"os"

	"github.com/sha1n/mcp-lounge-server/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "lounge-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "LOUNGE MCP Server",
		Long:    "Content repository index of the lounge CMS, served over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.Flags())

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Open the site indexes and print their status as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.PrintStatus(cmd.Context(), cmd.Flags(), cmd.OutOrStdout())
		},
	}
	app.RegisterFlags(statusCmd.Flags())
	rootCmd.AddCommand(statusCmd)

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}
