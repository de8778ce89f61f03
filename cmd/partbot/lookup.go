package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partbot/internal/bot"
	"github.com/JonMunkholm/partbot/internal/core"
)

func newSearchCommand(cc *commandContext) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the part catalog by identifier or name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if utf8.RuneCountInString(query) < bot.MinQueryLength {
				return fmt.Errorf("query must be at least %d characters", bot.MinQueryLength)
			}

			ctx := cmd.Context()
			comp, err := buildComponents(ctx, cc.config)
			if err != nil {
				return err
			}
			defer comp.Close()

			results, err := comp.searcher.Search(ctx, query)
			if err != nil {
				return err
			}
			total := len(results)
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{"query": query, "total": total, "results": results})
			}

			w := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintf(w, "No parts match %q\n", query)
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, rec := range results {
				primary, details := core.FormatLocation(rec)
				rows = append(rows, []string{rec.ID, rec.Name, strings.TrimPrefix(primary, "Lokasi: "), details})
			}
			fmt.Fprintln(w, renderTable([]string{"PartID", "Name", "Location", "Details"}, rows, nil))
			if total > len(results) {
				fmt.Fprintf(w, "%d of %d matches shown\n", len(results), total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", core.MaxSearchCache, "Maximum rows to show (0 for all)")
	return cmd
}

func newResolveCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <input>",
		Short: "Show how chat input would resolve to a part",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comp, err := buildComponents(ctx, cc.config)
			if err != nil {
				return err
			}
			defer comp.Close()

			w := cmd.OutOrStdout()
			switch res := comp.resolver.Resolve(ctx, strings.Join(args, " ")).(type) {
			case core.Resolved:
				fmt.Fprintf(w, "resolved: %s %s\n", res.ID, res.Name)
			case core.Ambiguous:
				rows := make([][]string, 0, len(res.Candidates))
				for _, c := range res.Candidates {
					rows = append(rows, []string{c.ID, c.Name})
				}
				fmt.Fprintf(w, "ambiguous: %d candidates\n", len(res.Candidates))
				fmt.Fprintln(w, renderTable([]string{"PartID", "Name"}, rows, nil))
			case core.Lenient:
				fmt.Fprintf(w, "lenient: %q (%s)\n", res.Raw, res.Reason)
			}
			return nil
		},
	}
	return cmd
}
