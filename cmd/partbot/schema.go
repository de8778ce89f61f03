package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partbot/internal/core"
)

func newSchemaCommand(cc *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show how the ledger and catalog headers resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comp, err := buildComponents(ctx, cc.config)
			if err != nil {
				return err
			}
			defer comp.Close()

			ledger, ledgerErr := comp.ledger.Schema(ctx)
			master, masterErr := comp.searcher.Schema(ctx)

			if asJSON {
				out := map[string]any{}
				if ledgerErr == nil {
					out["ledger"] = ledger
				} else {
					out["ledger_error"] = ledgerErr.Error()
				}
				if masterErr == nil {
					out["master"] = master
				} else {
					out["master_error"] = masterErr.Error()
				}
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Ledger sheet %q\n", comp.ledger.Sheet())
			if ledgerErr != nil {
				fmt.Fprintf(w, "  %s\n", core.FormatUserError(ledgerErr))
			} else {
				fmt.Fprintln(w, renderTable([]string{"Field", "Column", "Header"}, ledgerRows(ledger), []columnAlignment{alignLeft, alignRight}))
			}

			fmt.Fprintf(w, "\nCatalog sheet %q\n", cc.config.Sheets.Master)
			if masterErr != nil {
				fmt.Fprintf(w, "  %s\n", core.FormatUserError(masterErr))
			} else {
				fmt.Fprintln(w, renderTable([]string{"Field", "Column", "Header"}, masterRows(master), []columnAlignment{alignLeft, alignRight}))
			}

			if ledgerErr != nil {
				return ledgerErr
			}
			return masterErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func ledgerRows(s core.LedgerSchema) [][]string {
	rows := make([][]string, 0, len(core.LedgerFields))
	for _, f := range core.LedgerFields {
		rows = append(rows, columnRow(string(f), s.Header, s.Index[f]))
	}
	return rows
}

func masterRows(s core.MasterSchema) [][]string {
	rows := [][]string{
		columnRow(string(core.FieldID), s.Header, s.ID),
		columnRow(string(core.FieldName), s.Header, s.Name),
	}
	for _, i := range s.Location {
		rows = append(rows, columnRow(string(core.FieldLocation), s.Header, i))
	}
	rows = append(rows,
		columnRow(string(core.FieldPrimaryLocation), s.Header, s.Primary),
		columnRow(string(core.FieldBin), s.Header, s.Bin),
		columnRow(string(core.FieldVisual), s.Header, s.Visual),
	)
	return rows
}

// columnRow shows a 1-based column number, or "-" for NotFound.
func columnRow(field string, header []string, idx int) []string {
	if idx == core.NotFound || idx >= len(header) {
		return []string{field, "-", ""}
	}
	return []string{field, strconv.Itoa(idx + 1), header[idx]}
}
