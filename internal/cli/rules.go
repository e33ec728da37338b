package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/dontoisme/zeroed/internal/core"
)

const rulesUsage = `Usage:
  zeroed rules list
  zeroed rules create <pattern> --category NAME [--type contains|starts_with|exact|regex] [--priority N]
  zeroed rules delete <id>
  zeroed rules test <payee>
  zeroed rules payees
  zeroed rules set-payee <payee> <category>
`

func (a *App) runRules(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, rulesUsage)
		return nil
	}

	switch args[0] {
	case "list":
		return a.rulesList(ctx)
	case "create":
		return a.rulesCreate(ctx, args[1:])
	case "delete":
		return a.rulesDelete(ctx, args[1:])
	case "test":
		return a.rulesTest(ctx, args[1:])
	case "payees":
		return a.rulesPayees(ctx)
	case "set-payee":
		return a.rulesSetPayee(ctx, args[1:])
	}
	fmt.Fprint(a.out, rulesUsage)
	return fmt.Errorf("unknown rules subcommand %q", args[0])
}

func (a *App) rulesList(ctx context.Context) error {
	rules, err := a.store.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Fprintln(a.out, "No rules found. Create one with 'zeroed rules create'.")
		return nil
	}

	w := a.tabber()
	fmt.Fprintln(w, "ID\tPATTERN\tMATCH\tCATEGORY\tPRIORITY")
	for _, rule := range rules {
		categoryName := "(none)"
		payee, err := a.store.GetPayee(ctx, rule.PayeeID)
		if err != nil {
			return err
		}
		if payee != nil && payee.DefaultCategoryID != 0 {
			if cat, err := a.store.GetCategory(ctx, payee.DefaultCategoryID); err == nil && cat != nil {
				categoryName = cat.Name
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			rule.ID, rule.Pattern, rule.Type, categoryName, rule.Priority)
	}
	return w.Flush()
}

func (a *App) rulesCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rules create", flag.ContinueOnError)
	fs.SetOutput(a.out)
	categoryName := fs.String("category", "", "category to assign")
	matchType := fs.String("type", "contains", "match type")
	priority := fs.Int("priority", 0, "priority (higher is checked first)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *categoryName == "" {
		fmt.Fprint(a.out, rulesUsage)
		return fmt.Errorf("rules create needs a pattern and --category")
	}

	rule, err := a.rules.CreateRule(ctx, fs.Arg(0), *categoryName, core.MatchType(*matchType), *priority)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created rule %d: %q -> %s (%s, priority %d)\n",
		rule.ID, rule.Pattern, *categoryName, rule.Type, rule.Priority)
	return nil
}

func (a *App) rulesDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, rulesUsage)
		return fmt.Errorf("rules delete needs exactly one id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}
	if err := a.rules.DeleteRule(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted rule %d\n", id)
	return nil
}

func (a *App) rulesTest(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, rulesUsage)
		return fmt.Errorf("rules test needs exactly one payee string")
	}

	category, err := a.rules.Categorize(ctx, args[0])
	if err != nil {
		return err
	}
	if category != nil {
		fmt.Fprintf(a.out, "%q -> %s\n", args[0], category.Name)
		return nil
	}

	fmt.Fprintf(a.out, "No match for %q\n", args[0])
	suggestions, err := a.rules.SuggestCategories(ctx, args[0], 5)
	if err != nil {
		return err
	}
	if len(suggestions) > 0 {
		fmt.Fprintln(a.out, "Suggested categories based on similar payees:")
		for _, cat := range suggestions {
			fmt.Fprintf(a.out, "  - %s\n", cat.Name)
		}
	}
	return nil
}

func (a *App) rulesPayees(ctx context.Context) error {
	payees, err := a.store.ListPayeesWithDefaults(ctx)
	if err != nil {
		return err
	}
	if len(payees) == 0 {
		fmt.Fprintln(a.out, "No payees with default categories.")
		return nil
	}

	w := a.tabber()
	fmt.Fprintln(w, "PAYEE\tDEFAULT CATEGORY\tAUTO")
	for _, payee := range payees {
		categoryName := "-"
		if cat, err := a.store.GetCategory(ctx, payee.DefaultCategoryID); err == nil && cat != nil {
			categoryName = cat.Name
		}
		auto := "yes"
		if !payee.AutoCategorize {
			auto = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(payee.Name, 40), categoryName, auto)
	}
	return w.Flush()
}

func (a *App) rulesSetPayee(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprint(a.out, rulesUsage)
		return fmt.Errorf("rules set-payee needs a payee and a category")
	}

	category, err := a.requireCategory(ctx, args[1])
	if err != nil {
		return err
	}
	payee, err := a.rules.LearnFromCategorization(ctx, args[0], category.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Payee %q -> %s\n", payee.Name, category.Name)
	return nil
}
