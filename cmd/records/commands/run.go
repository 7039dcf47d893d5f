package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/recordkit/records"
	"github.com/recordkit/records/export"
	"github.com/recordkit/records/internal/config"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var urlFlag string

	cmd := &cobra.Command{
		Use:   "run <query-or-file> [<format>] [<key=value>...]",
		Short: "Execute a SQL query and print or export the results",
		Long: `Execute a SQL query and print the results as an aligned table, or
export them in one of: csv, tsv, json, yaml, html, latex, xlsx.

The first argument is the path of a SQL file, or an inline SQL string.
Query parameters are given as key=value tokens and referenced in the
query as :key placeholders:

    records run 'select * from repos where language = :lang' csv lang=go

Binary formats write raw bytes and should be redirected:

    records run report.sql xlsx > report.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, urlFlag, args)
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "database URL (defaults to $DATABASE_URL)")
	return cmd
}

func runQuery(cmd *cobra.Command, url string, args []string) error {
	query, err := resolveQuery(config.AppFs, args[0])
	if err != nil {
		return err
	}

	// The second positional argument is a format name unless it looks like
	// a key=value parameter token.
	format := ""
	paramTokens := args[1:]
	if len(paramTokens) > 0 && !strings.Contains(paramTokens[0], "=") {
		format = paramTokens[0]
		paramTokens = paramTokens[1:]
	}

	params, err := parseParams(paramTokens)
	if err != nil {
		return err
	}

	db, err := records.Open(url)
	if err != nil {
		return err
	}
	defer db.Close()

	collection, err := db.Query(context.Background(), query, params)
	if err != nil {
		return err
	}

	if format == "" {
		data, err := collection.Dataset()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), data.String())
		return err
	}

	out, err := collection.Export(format)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrMissingDependency):
			return &ExitError{Code: ExitMissingDependency, Message: err.Error()}
		case errors.Is(err, export.ErrUnsupportedFormat):
			return &ExitError{Code: ExitUnsupportedFormat, Message: err.Error()}
		}
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// resolveQuery turns the first CLI argument into SQL text: the contents of an
// existing file, or the argument itself when it plausibly is inline SQL (at
// least three whitespace-separated tokens).
func resolveQuery(fs afero.Fs, arg string) (string, error) {
	if info, err := fs.Stat(arg); err == nil && !info.IsDir() {
		content, err := afero.ReadFile(fs, arg)
		if err != nil {
			return "", err
		}
		return string(content), nil
	}
	if len(strings.Fields(arg)) >= 3 {
		return arg, nil
	}
	return "", &ExitError{Code: ExitQueryNotFound, Message: "The given query could not be found."}
}

// parseParams parses key=value tokens into a parameter map.
func parseParams(tokens []string) (map[string]any, error) {
	params := make(map[string]any, len(tokens))
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			return nil, &ExitError{Code: ExitBadParameter, Message: "Parameters must be given in key=value format."}
		}
		params[key] = value
	}
	return params, nil
}
