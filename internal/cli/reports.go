package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

const reportsUsage = `Usage:
  zeroed reports spending [--months N] [--group]
  zeroed reports trends [--months N]
  zeroed reports category <name> [--months N]
  zeroed reports summary [--month YYYY-MM]
`

func (a *App) runReports(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, reportsUsage)
		return nil
	}

	switch args[0] {
	case "spending":
		return a.reportsSpending(ctx, args[1:])
	case "trends":
		return a.reportsTrends(ctx, args[1:])
	case "category":
		return a.reportsCategory(ctx, args[1:])
	case "summary":
		return a.reportsSummary(ctx, args[1:])
	}
	fmt.Fprint(a.out, reportsUsage)
	return fmt.Errorf("unknown reports subcommand %q", args[0])
}

func (a *App) reportsSpending(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reports spending", flag.ContinueOnError)
	fs.SetOutput(a.out)
	months := fs.Int("months", 1, "how many months back to include")
	byGroup := fs.Bool("group", false, "aggregate by category group")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *months < 1 {
		return fmt.Errorf("months must be at least 1")
	}

	since := core.CurrentMonth().AddMonths(-(*months - 1)).Start()
	rows, err := a.store.SpendingByCategory(ctx, since)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No spending in the selected period.")
		return nil
	}

	var total core.Money
	for _, row := range rows {
		total = total.Add(row.Outflow.Abs())
	}

	if *byGroup {
		rows = groupSpending(rows)
	}

	if *months == 1 {
		fmt.Fprintf(a.out, "Spending for %s\n\n", core.CurrentMonth().Display())
	} else {
		fmt.Fprintf(a.out, "Spending for the last %d months\n\n", *months)
	}

	w := a.tabber()
	if *byGroup {
		fmt.Fprintln(w, "GROUP\tSPENT\tSHARE")
	} else {
		fmt.Fprintln(w, "CATEGORY\tGROUP\tSPENT\tSHARE")
	}
	for _, row := range rows {
		spent := row.Outflow.Abs()
		share := 0.0
		if total.Cents > 0 {
			share = float64(spent.Cents) / float64(total.Cents) * 100
		}
		if *byGroup {
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", row.GroupName, dollars(spent), share)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\n", row.CategoryName, row.GroupName, dollars(spent), share)
		}
	}
	fmt.Fprintf(w, "TOTAL\t%s\t\n", dollars(total))
	return w.Flush()
}

// groupSpending collapses category rows into one row per group, keeping the
// most-spent-first order of the totals.
func groupSpending(rows []ledger.CategorySpend) []ledger.CategorySpend {
	index := make(map[string]int)
	var grouped []ledger.CategorySpend
	for _, row := range rows {
		i, ok := index[row.GroupName]
		if !ok {
			index[row.GroupName] = len(grouped)
			grouped = append(grouped, ledger.CategorySpend{GroupName: row.GroupName})
			i = len(grouped) - 1
		}
		grouped[i].Outflow = grouped[i].Outflow.Add(row.Outflow)
	}
	sort.SliceStable(grouped, func(i, j int) bool {
		return grouped[i].Outflow.Cents < grouped[j].Outflow.Cents
	})
	return grouped
}

func (a *App) reportsTrends(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reports trends", flag.ContinueOnError)
	fs.SetOutput(a.out)
	months := fs.Int("months", 6, "how many months to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *months < 1 {
		return fmt.Errorf("months must be at least 1")
	}

	fmt.Fprintf(a.out, "Income vs spending, last %d months\n\n", *months)
	w := a.tabber()
	fmt.Fprintln(w, "MONTH\tINCOME\tSPENDING\tNET")
	current := core.CurrentMonth()
	for i := *months - 1; i >= 0; i-- {
		month := current.AddMonths(-i)
		income, err := a.store.SumOnBudgetInflowsIn(ctx, month)
		if err != nil {
			return err
		}
		spending, err := a.store.SumOnBudgetOutflowsIn(ctx, month)
		if err != nil {
			return err
		}
		net := income.Add(spending)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			month.String(), dollars(income), dollars(spending.Abs()), dollars(net))
	}
	return w.Flush()
}

func (a *App) reportsCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reports category", flag.ContinueOnError)
	fs.SetOutput(a.out)
	months := fs.Int("months", 6, "how many months of history to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprint(a.out, reportsUsage)
		return fmt.Errorf("reports category needs exactly one name")
	}
	if *months < 1 {
		return fmt.Errorf("months must be at least 1")
	}

	category, err := a.requireCategory(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "History for %s, last %d months\n\n", category.Name, *months)
	w := a.tabber()
	fmt.Fprintln(w, "MONTH\tACTIVITY\tTRANSACTIONS")
	var total core.Money
	current := core.CurrentMonth()
	for i := *months - 1; i >= 0; i-- {
		month := current.AddMonths(-i)
		activity, err := a.store.SumCategoryActivityIn(ctx, category.ID, month)
		if err != nil {
			return err
		}
		count, err := a.store.CountTransactionsIn(ctx, category.ID, month)
		if err != nil {
			return err
		}
		total = total.Add(activity)
		fmt.Fprintf(w, "%s\t%s\t%d\n", month.String(), dollars(activity), count)
	}
	average := core.Money{Cents: total.Cents / int64(*months)}
	fmt.Fprintf(w, "AVERAGE\t%s\t\n", dollars(average))
	return w.Flush()
}

func (a *App) reportsSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reports summary", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}

	income, err := a.store.SumOnBudgetInflowsIn(ctx, month)
	if err != nil {
		return err
	}
	spending, err := a.store.SumOnBudgetOutflowsIn(ctx, month)
	if err != nil {
		return err
	}
	balances, err := a.store.SumOnBudgetBalances(ctx)
	if err != nil {
		return err
	}
	uncategorized, err := a.store.CountUncategorized(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Summary - %s\n\n", month.Display())
	w := a.tabber()
	fmt.Fprintf(w, "Income:\t%s\n", dollars(income))
	fmt.Fprintf(w, "Spending:\t%s\n", dollars(spending.Abs()))
	fmt.Fprintf(w, "Net:\t%s\n", dollars(income.Add(spending)))
	fmt.Fprintf(w, "On-budget balance:\t%s\n", dollars(balances))
	if err := w.Flush(); err != nil {
		return err
	}

	if uncategorized > 0 {
		fmt.Fprintf(a.out, "\n%d transactions need categorization.\n", uncategorized)
	}
	return nil
}
