// Package commands implements the records CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// Exit codes reported by the CLI.
const (
	// ExitMissingDependency: the requested format needs an optional
	// dependency this build does not carry.
	ExitMissingDependency = 60
	// ExitUnsupportedFormat: the format name is not recognized.
	ExitUnsupportedFormat = 62
	// ExitBadParameter: a parameter token was not in key=value form.
	ExitBadParameter = 64
	// ExitQueryNotFound: the query argument is neither a file nor inline SQL.
	ExitQueryNotFound = 66
)

// ExitError carries a process exit code alongside the message.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand builds the records command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "records",
		Short: "SQL for humans: run queries, get tabular results",
		Long: `records executes SQL queries against sqlite, postgres or mysql
databases and prints or exports the results.

The database URL is taken from --url or from $DATABASE_URL.`,
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewTablesCommand())
	return rootCmd
}
