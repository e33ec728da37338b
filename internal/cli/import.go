package cli

import (
	"context"
	"flag"
	"fmt"
)

const importUsage = `Usage:
  zeroed import csv <file> --account NAME [--format chase|generic] [--dry-run]
  zeroed import profiles
`

func (a *App) runImport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, importUsage)
		return nil
	}

	switch args[0] {
	case "csv":
		return a.importCSV(ctx, args[1:])
	case "profiles":
		return a.importProfiles()
	}
	fmt.Fprint(a.out, importUsage)
	return fmt.Errorf("unknown import subcommand %q", args[0])
}

func (a *App) importCSV(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import csv", flag.ContinueOnError)
	fs.SetOutput(a.out)
	accountName := fs.String("account", "", "target account name")
	format := fs.String("format", "", "CSV format (default: auto-detect)")
	dryRun := fs.Bool("dry-run", false, "preview without importing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *accountName == "" {
		fmt.Fprint(a.out, importUsage)
		return fmt.Errorf("import csv needs a file and --account")
	}

	account, err := a.ledger.RequireAccount(ctx, *accountName)
	if err != nil {
		return err
	}

	result, err := a.imports.ImportCSV(ctx, fs.Arg(0), *format, account, *dryRun)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Parsed %d transactions (format: %s)\n", result.Parsed, result.Format)
	if len(result.Preview) > 0 {
		w := a.tabber()
		fmt.Fprintln(w, "DATE\tPAYEE\tAMOUNT\tMEMO")
		limit := len(result.Preview)
		if limit > 10 {
			limit = 10
		}
		for _, txn := range result.Preview[:limit] {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				txn.Date.Format("2006-01-02"), truncate(txn.RawPayee, 30),
				dollars(txn.Amount), truncate(txn.Memo, 30))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if len(result.Preview) > limit {
			fmt.Fprintf(a.out, "... and %d more\n", len(result.Preview)-limit)
		}
	}

	if *dryRun {
		fmt.Fprintln(a.out, "Dry run - no changes made.")
		return nil
	}

	fmt.Fprintf(a.out, "\nImported %d transactions (batch %s)\n", result.Imported, result.BatchID)
	if result.DuplicatesSkipped > 0 {
		fmt.Fprintf(a.out, "Skipped %d duplicates\n", result.DuplicatesSkipped)
	}
	if result.Categorized > 0 {
		fmt.Fprintf(a.out, "Auto-categorized %d transactions\n", result.Categorized)
	}
	if uncategorized := result.Imported - result.Categorized; uncategorized > 0 {
		fmt.Fprintf(a.out, "%d transactions need categorization. Run 'zeroed transactions list --uncategorized'.\n", uncategorized)
	}
	return nil
}

func (a *App) importProfiles() error {
	w := a.tabber()
	fmt.Fprintln(w, "NAME\tINSTITUTION\tDESCRIPTION")
	for _, info := range a.imports.Formats() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Institution, info.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "\nUse --format <name> to force a format when importing.")
	return nil
}
