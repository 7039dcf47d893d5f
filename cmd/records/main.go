// Package main is the entry point for the records CLI.
package main

import (
	"errors"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/recordkit/records/cmd/records/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
