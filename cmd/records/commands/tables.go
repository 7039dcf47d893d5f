package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recordkit/records"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var urlFlag string
	var internal bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the table names of the connected database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := records.Open(urlFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			var names []string
			if internal {
				names, err = db.AllTableNames(context.Background())
			} else {
				names, err = db.TableNames(context.Background())
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "database URL (defaults to $DATABASE_URL)")
	cmd.Flags().BoolVar(&internal, "internal", false, "include system catalog tables")
	return cmd
}
