package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent catalog reads from the fetch log.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.MySQLDSN == "" {
			return errors.New("MYSQL_DSN is not set; the fetch log is disabled")
		}
		repo, closeDB, err := openFetchLog(cmd.Context(), cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer closeDB()

		rows, err := repo.ListFetches(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printFetches(cmd.OutOrStdout(), rows)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of attempts to show")
}
