package main

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the buckets and discipline facets of the current snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		snap, err := a.Catalog().Current(cmd.Context())
		if err != nil {
			return err
		}
		facets, err := a.Catalog().Facets(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		renderStats(out, snap)
		bucket, _ := cmd.Flags().GetString("bucket")
		switch bucket {
		case "", "all":
			renderBucket(out, "Cierran pronto", snap.ClosingSoon)
			renderBucket(out, "Destacadas", snap.Featured)
			renderBucket(out, "Todas", snap.General)
		case "closing_soon":
			renderBucket(out, "Cierran pronto", snap.ClosingSoon)
		case "featured":
			renderBucket(out, "Destacadas", snap.Featured)
		case "general":
			renderBucket(out, "Todas", snap.General)
		default:
			return errUnknownBucket(bucket)
		}
		renderFacets(out, facets)
		return nil
	},
}

func init() {
	dumpCmd.Flags().String("bucket", "all", "bucket to print: all, general, closing_soon or featured")
	rootCmd.AddCommand(dumpCmd)
}
