package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/sheets"
)

func newWorkbookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "workbook",
		Short:       "Manage local .xlsx workbooks for the xlsx backend",
		Annotations: map[string]string{annotationSkipConfig: "true"},
	}
	cmd.AddCommand(newWorkbookInitCommand())
	return cmd
}

func newWorkbookInitCommand() *cobra.Command {
	var ledgerSheet, masterSheet string

	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Create a workbook with empty ledger and catalog sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			headers := defaultHeaders(ledgerSheet, masterSheet)
			if err := sheets.CreateWorkbook(args[0], headers, masterSheet, ledgerSheet); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with sheets %q and %q\n", args[0], masterSheet, ledgerSheet)
			return nil
		},
	}

	cmd.Flags().StringVar(&ledgerSheet, "ledger-sheet", "TransaksiGudang", "Ledger sheet name")
	cmd.Flags().StringVar(&masterSheet, "master-sheet", "Sparepart", "Catalog sheet name")
	return cmd
}

// defaultHeaders uses the first built-in spelling of each field; the
// catalog gets every default location column.
func defaultHeaders(ledgerSheet, masterSheet string) map[string][]string {
	syn := core.DefaultSynonyms()

	ledger := make([]string, 0, len(core.LedgerFields))
	for _, f := range core.LedgerFields {
		ledger = append(ledger, syn.Ledger[f][0])
	}

	master := []string{syn.Master[core.FieldID][0], syn.Master[core.FieldName][0]}
	master = append(master, syn.Master[core.FieldLocation]...)
	master = append(master, syn.Master[core.FieldVisual][0])

	return map[string][]string{ledgerSheet: ledger, masterSheet: master}
}
