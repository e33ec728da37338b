package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dontoisme/zeroed/internal/budget"
	"github.com/dontoisme/zeroed/internal/core"
)

const budgetUsage = `Usage:
  zeroed budget show [--month YYYY-MM]
  zeroed budget set <category> <amount> [--month YYYY-MM]
  zeroed budget suggest [--month YYYY-MM] [--apply]
  zeroed budget summary [--month YYYY-MM]
  zeroed budget goal <category> --type <target_balance|target_by_date|monthly_funding|spending> [--amount AMOUNT] [--by YYYY-MM-DD] [--monthly AMOUNT]
`

func (a *App) runBudget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, budgetUsage)
		return nil
	}

	switch args[0] {
	case "show":
		return a.budgetShow(ctx, args[1:])
	case "set":
		return a.budgetSet(ctx, args[1:])
	case "suggest":
		return a.budgetSuggest(ctx, args[1:])
	case "summary":
		return a.budgetSummary(ctx, args[1:])
	case "goal":
		return a.budgetGoal(ctx, args[1:])
	}
	fmt.Fprint(a.out, budgetUsage)
	return fmt.Errorf("unknown budget subcommand %q", args[0])
}

func (a *App) budgetShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget show", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}

	view, err := a.budget.View(ctx, month)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Budget for %s\n", month.Display())
	if view.ReadyToAssign.Cents < 0 {
		fmt.Fprintf(a.out, "Ready to Assign: %s (overspent)\n\n", dollars(view.ReadyToAssign))
	} else {
		fmt.Fprintf(a.out, "Ready to Assign: %s\n\n", dollars(view.ReadyToAssign))
	}

	w := a.tabber()
	fmt.Fprintln(w, "CATEGORY\tBUDGETED\tACTIVITY\tAVAILABLE")
	for _, group := range view.Groups {
		var budgeted, activity, available core.Money
		for _, row := range group.Categories {
			budgeted = budgeted.Add(row.Budgeted)
			activity = activity.Add(row.Activity)
			available = available.Add(row.Available)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			group.Name, dollars(budgeted), dollars(activity), dollars(available))
		for _, row := range group.Categories {
			name := "  " + row.Name
			if row.Goal != nil {
				name += goalTag(row.Goal)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				name, dollars(row.Budgeted), dollars(row.Activity), dollars(row.Available))
		}
	}
	return w.Flush()
}

func goalTag(g *budget.GoalProgress) string {
	switch g.Type {
	case core.GoalMonthlyFunding:
		if g.Funded {
			return " [goal funded]"
		}
		return " [goal underfunded]"
	case core.GoalSpending:
		return ""
	}
	return fmt.Sprintf(" [goal %.0f%%]", g.ProgressPct)
}

func (a *App) budgetSet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget set", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fmt.Fprint(a.out, budgetUsage)
		return fmt.Errorf("budget set needs a category and an amount")
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("amount %q: %w", fs.Arg(1), err)
	}

	category, err := a.budget.SetCategoryBudget(ctx, fs.Arg(0), month, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Set %s budget to %s for %s\n", category.Name, dollars(amount), month.Display())
	return nil
}

func (a *App) budgetSuggest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget suggest", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	apply := fs.Bool("apply", false, "apply the suggested amounts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}

	suggestions, err := a.budget.Suggest(ctx, month, a.cfg.SuggestLookbackMonths)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(a.out, "No spending history to base suggestions on.")
		return nil
	}

	w := a.tabber()
	fmt.Fprintln(w, "CATEGORY\tSUGGESTED\tCURRENT\tDIFFERENCE")
	for _, sug := range suggestions {
		diff := sug.Suggested.Add(sug.Current.Neg())
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			sug.Category, dollars(sug.Suggested), dollars(sug.Current), dollars(diff))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if *apply {
		// Apply by ID; resolving the name again could hit a different
		// category whose name contains this one's.
		for _, sug := range suggestions {
			if err := a.budget.SetBudget(ctx, sug.CategoryID, month, sug.Suggested); err != nil {
				return err
			}
		}
		fmt.Fprintf(a.out, "Applied %d suggestions for %s\n", len(suggestions), month.Display())
	}
	return nil
}

func (a *App) budgetSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget summary", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}

	view, err := a.budget.View(ctx, month)
	if err != nil {
		return err
	}

	var totalBudgeted, totalAvailable, totalSpent core.Money
	funded, totalCats := 0, 0
	var overspent []budget.CategoryRow
	for _, group := range view.Groups {
		for _, row := range group.Categories {
			totalCats++
			totalBudgeted = totalBudgeted.Add(row.Budgeted)
			totalAvailable = totalAvailable.Add(row.Available)
			if row.Activity.Cents < 0 {
				totalSpent = totalSpent.Add(row.Activity.Abs())
			}
			if row.Budgeted.Cents > 0 {
				funded++
			}
			if row.Available.Cents < 0 {
				overspent = append(overspent, row)
			}
		}
	}

	fmt.Fprintf(a.out, "Budget Summary - %s\n\n", month.Display())
	w := a.tabber()
	fmt.Fprintf(w, "Ready to Assign:\t%s\n", dollars(view.ReadyToAssign))
	fmt.Fprintf(w, "Total Budgeted:\t%s\n", dollars(totalBudgeted))
	fmt.Fprintf(w, "Total Spent:\t%s\n", dollars(totalSpent))
	fmt.Fprintf(w, "Total Available:\t%s\n", dollars(totalAvailable))
	fmt.Fprintf(w, "Categories Funded:\t%d/%d\n", funded, totalCats)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(overspent) > 0 {
		fmt.Fprintln(a.out, "\nOverspent categories:")
		for _, row := range overspent {
			fmt.Fprintf(a.out, "  %s: %s\n", row.Name, dollars(row.Available))
		}
	}
	return nil
}

func (a *App) budgetGoal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget goal", flag.ContinueOnError)
	fs.SetOutput(a.out)
	goalType := fs.String("type", "", "goal type")
	amount := fs.String("amount", "", "target amount")
	by := fs.String("by", "", "target date (YYYY-MM-DD), for target_by_date")
	monthly := fs.String("monthly", "", "monthly funding amount, for monthly_funding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *goalType == "" {
		fmt.Fprint(a.out, budgetUsage)
		return fmt.Errorf("budget goal needs a category and --type")
	}

	category, err := a.requireCategory(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	goal := &core.Goal{CategoryID: category.ID, Type: core.GoalType(*goalType)}
	if *amount != "" {
		goal.TargetAmount, err = core.ParsePositiveAmount(*amount)
		if err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
	}
	if *monthly != "" {
		goal.MonthlyFunding, err = core.ParsePositiveAmount(*monthly)
		if err != nil {
			return fmt.Errorf("monthly %q: %w", *monthly, err)
		}
	}
	if *by != "" {
		goal.TargetDate, err = time.Parse("2006-01-02", *by)
		if err != nil {
			return fmt.Errorf("%w: %q (want YYYY-MM-DD)", core.ErrInvalidDate, *by)
		}
	}

	if err := a.budget.SetGoal(ctx, goal); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Set %s goal on %q\n", goal.Type, category.Name)
	return nil
}
