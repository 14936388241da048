package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/opportunities/internal/catalog"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Build one snapshot from Notion and publish it to the shared cache",
	Long: `refresh runs a single snapshot build outside the service, the same way
POST /reload does inside it, and stores the result in Redis so every
running replica picks it up. It fails without touching the cache when any
page cannot be read.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		snap, err := a.Catalog().Refresh(cmd.Context(), catalog.ReasonManual)
		if err != nil {
			return err
		}
		renderStats(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
