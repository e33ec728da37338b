package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dontoisme/zeroed/internal/core"
)

const accountsUsage = `Usage:
  zeroed accounts list [--all]
  zeroed accounts create <name> --type <checking|savings|credit_card|cash|investment> [--institution NAME] [--balance AMOUNT] [--off-budget]
  zeroed accounts show <name>
  zeroed accounts balances
  zeroed accounts close <name>
`

func (a *App) runAccounts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, accountsUsage)
		return nil
	}

	switch args[0] {
	case "list":
		return a.accountsList(ctx, args[1:])
	case "create":
		return a.accountsCreate(ctx, args[1:])
	case "show":
		return a.accountsShow(ctx, args[1:])
	case "balances":
		return a.accountsBalances(ctx)
	case "close":
		return a.accountsClose(ctx, args[1:])
	}
	fmt.Fprint(a.out, accountsUsage)
	return fmt.Errorf("unknown accounts subcommand %q", args[0])
}

func (a *App) accountsList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("accounts list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	all := fs.Bool("all", false, "include closed accounts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	accounts, err := a.store.ListAccounts(ctx, *all)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(a.out, "No accounts found. Create one with 'zeroed accounts create'.")
		return nil
	}

	w := a.tabber()
	fmt.Fprintln(w, "NAME\tTYPE\tINSTITUTION\tBALANCE\tON BUDGET")
	for _, acc := range accounts {
		institution := acc.Institution
		if institution == "" {
			institution = "-"
		}
		onBudget := "yes"
		if !acc.OnBudget {
			onBudget = "no"
		}
		name := acc.Name
		if acc.Closed {
			name += " (closed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name, acc.Type, institution, dollars(acc.CurrentBalance), onBudget)
	}
	return w.Flush()
}

func (a *App) accountsCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("accounts create", flag.ContinueOnError)
	fs.SetOutput(a.out)
	accountType := fs.String("type", "", "account type")
	institution := fs.String("institution", "", "bank or institution name")
	balance := fs.String("balance", "0", "starting balance")
	offBudget := fs.Bool("off-budget", false, "track but don't include in budget")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprint(a.out, accountsUsage)
		return fmt.Errorf("accounts create needs exactly one name")
	}

	amount := core.Money{}
	if *balance != "" && *balance != "0" {
		var err error
		amount, err = core.ParseAmount(*balance)
		if err != nil {
			return fmt.Errorf("balance %q: %w", *balance, err)
		}
	}

	account, err := a.ledger.CreateAccount(ctx, fs.Arg(0), core.AccountType(*accountType), *institution, amount, !*offBudget)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created account %q (%s) with balance %s\n",
		account.Name, account.Type, dollars(account.CurrentBalance))
	return nil
}

func (a *App) accountsShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, accountsUsage)
		return fmt.Errorf("accounts show needs exactly one name")
	}

	account, err := a.ledger.RequireAccount(ctx, args[0])
	if err != nil {
		return err
	}

	w := a.tabber()
	fmt.Fprintf(w, "Name:\t%s\n", account.Name)
	fmt.Fprintf(w, "Type:\t%s\n", account.Type)
	if account.Institution != "" {
		fmt.Fprintf(w, "Institution:\t%s\n", account.Institution)
	}
	fmt.Fprintf(w, "Current balance:\t%s\n", dollars(account.CurrentBalance))
	fmt.Fprintf(w, "Cleared balance:\t%s\n", dollars(account.ClearedBalance))
	onBudget := "yes"
	if !account.OnBudget {
		onBudget = "no"
	}
	fmt.Fprintf(w, "On budget:\t%s\n", onBudget)
	if account.Closed {
		fmt.Fprintf(w, "Closed:\tyes\n")
	}
	return w.Flush()
}

// accountTypeOrder fixes the section order of the balances report.
var accountTypeOrder = []core.AccountType{
	core.Checking, core.Savings, core.CreditCard, core.Cash, core.Investment,
}

func (a *App) accountsBalances(ctx context.Context) error {
	accounts, err := a.store.ListAccounts(ctx, false)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(a.out, "No accounts found. Create one with 'zeroed accounts create'.")
		return nil
	}

	byType := make(map[core.AccountType][]core.Account)
	for _, acc := range accounts {
		byType[acc.Type] = append(byType[acc.Type], acc)
	}

	var netWorth core.Money
	w := a.tabber()
	fmt.Fprintln(w, "ACCOUNT\tBALANCE")
	for _, accountType := range accountTypeOrder {
		group := byType[accountType]
		if len(group) == 0 {
			continue
		}
		var subtotal core.Money
		fmt.Fprintf(w, "%s\t\n", accountType)
		for _, acc := range group {
			fmt.Fprintf(w, "  %s\t%s\n", acc.Name, dollars(acc.CurrentBalance))
			subtotal = subtotal.Add(acc.CurrentBalance)
		}
		fmt.Fprintf(w, "  subtotal\t%s\n", dollars(subtotal))
		netWorth = netWorth.Add(subtotal)
	}
	fmt.Fprintf(w, "NET WORTH\t%s\n", dollars(netWorth))
	return w.Flush()
}

func (a *App) accountsClose(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, accountsUsage)
		return fmt.Errorf("accounts close needs exactly one name")
	}

	account, err := a.ledger.RequireAccount(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.store.CloseAccount(ctx, account.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Closed account %q\n", account.Name)
	return nil
}
