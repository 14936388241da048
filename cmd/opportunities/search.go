package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/opportunities/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a ranked query against the current snapshot",
	Long: `search applies the same filters and ranking as GET /api/search. Terms
separated by commas must all match; a discipline group name expands to its
synonyms. With --user the results are re-ranked by that user's preferences.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		flags := cmd.Flags()
		p := search.Params{Query: strings.Join(args, " ")}
		p.Discipline, _ = flags.GetString("discipline")
		p.Month, _ = flags.GetString("month")
		p.NoDate, _ = flags.GetBool("no-date")
		p.Clear, _ = flags.GetBool("clear")
		user, _ := flags.GetString("user")
		limit, _ := flags.GetInt("limit")
		asJSON, _ := flags.GetBool("json")

		var res search.Result
		if user != "" {
			res, err = a.Catalog().Recommend(cmd.Context(), user, p)
		} else {
			res, err = a.Catalog().Search(cmd.Context(), p)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		renderResult(cmd.OutOrStdout(), res, limit)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("discipline", "", "filter by discipline group or term")
	searchCmd.Flags().String("month", "", "keep deadlines in this month (1-12)")
	searchCmd.Flags().Bool("no-date", false, "keep only records without a deadline")
	searchCmd.Flags().Bool("clear", false, "ignore every other filter")
	searchCmd.Flags().String("user", "", "re-rank by this user's preferences")
	searchCmd.Flags().Int("limit", 20, "maximum rows to print, 0 = all")
	searchCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(searchCmd)
}
