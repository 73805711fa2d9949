// Package cmd provides the CLI commands for docsmcp.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/pkg/version"
)

// Global flags
var (
	debugMode     bool
	configDirFlag string
)

// NewRootCmd creates the root command for the docsmcp CLI.
func NewRootCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "docsmcp",
		Short: "Documentation search MCP server",
		Long: `docsmcp answers documentation questions over the Model Context Protocol.

It loads local documentation corpora, ranks sections with a keyword scorer
and optionally consults a remote vector store for semantic matches.

Run 'docsmcp' with no arguments to start the stdio MCP server.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd, opts)
		},
	}

	cmd.SetVersionTemplate("docsmcp version {{.Version}}\n")

	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload corpora when their files change")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Directory holding .docsmcp.yaml (default: current directory)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDescribeCmd())
	cmd.AddCommand(newRouteCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// configDir returns the --config-dir value, or the working directory.
func configDir() string {
	if configDirFlag != "" {
		return configDirFlag
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// cliLogger logs to stderr for the one-shot commands so stdout stays
// reserved for results.
func cliLogger() *slog.Logger {
	if debugMode {
		return logging.NewStderr("debug")
	}
	return logging.NewStderr("warn")
}
