package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service with periodic snapshot reloads",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()
	return a.Serve(cmd.Context())
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
