package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
	"github.com/dontoisme/zeroed/internal/services"
)

const transactionsUsage = `Usage:
  zeroed transactions list [--account NAME] [--category NAME] [--month YYYY-MM] [--uncategorized] [--limit N]
  zeroed transactions add <account> <amount> --payee NAME [--category NAME] [--date YYYY-MM-DD] [--memo TEXT]
  zeroed transactions categorize <id> <category> [--learn]
  zeroed transactions clear <id>
  zeroed transactions uncategorized
`

func (a *App) runTransactions(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, transactionsUsage)
		return nil
	}

	switch args[0] {
	case "list":
		return a.transactionsList(ctx, args[1:])
	case "add":
		return a.transactionsAdd(ctx, args[1:])
	case "categorize":
		return a.transactionsCategorize(ctx, args[1:])
	case "clear":
		return a.transactionsClear(ctx, args[1:])
	case "uncategorized":
		return a.transactionsUncategorized(ctx)
	}
	fmt.Fprint(a.out, transactionsUsage)
	return fmt.Errorf("unknown transactions subcommand %q", args[0])
}

func (a *App) transactionsList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	accountName := fs.String("account", "", "filter by account name")
	categoryName := fs.String("category", "", "filter by category name")
	monthFlag := fs.String("month", "", "filter by month (YYYY-MM)")
	uncategorized := fs.Bool("uncategorized", false, "show only uncategorized")
	limit := fs.Int("limit", 50, "number of transactions to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := ledger.TransactionFilter{UncategorizedOnly: *uncategorized, Limit: *limit}
	if *accountName != "" {
		account, err := a.ledger.RequireAccount(ctx, *accountName)
		if err != nil {
			return err
		}
		filter.AccountID = account.ID
	}
	if *categoryName != "" {
		category, err := a.requireCategory(ctx, *categoryName)
		if err != nil {
			return err
		}
		filter.CategoryID = category.ID
	}
	if *monthFlag != "" {
		month, err := core.ParseMonth(*monthFlag)
		if err != nil {
			return err
		}
		filter.Month = month
	}

	transactions, err := a.store.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		fmt.Fprintln(a.out, "No transactions found.")
		return nil
	}

	w := a.tabber()
	fmt.Fprintln(w, "ID\tDATE\tPAYEE\tCATEGORY\tAMOUNT\tCLEARED")
	for _, txn := range transactions {
		categoryName := "(uncategorized)"
		if !txn.Uncategorized() {
			if cat, err := a.store.GetCategory(ctx, txn.CategoryID); err == nil && cat != nil {
				categoryName = cat.Name
			}
		}
		payee := txn.RawPayee
		if payee == "" {
			payee = "-"
		}
		cleared := "-"
		if txn.Cleared {
			cleared = "C"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			txn.ID, txn.Date.Format("2006-01-02"), truncate(payee, 25),
			truncate(categoryName, 20), dollars(txn.Amount), cleared)
	}
	return w.Flush()
}

func (a *App) transactionsAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions add", flag.ContinueOnError)
	fs.SetOutput(a.out)
	payee := fs.String("payee", "", "payee name")
	categoryName := fs.String("category", "", "category name")
	dateFlag := fs.String("date", "", "transaction date (YYYY-MM-DD)")
	memo := fs.String("memo", "", "memo or notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 || *payee == "" {
		fmt.Fprint(a.out, transactionsUsage)
		return fmt.Errorf("transactions add needs an account, an amount and --payee")
	}

	amount, err := core.ParseAmount(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("amount %q: %w", fs.Arg(1), err)
	}

	var date time.Time
	if *dateFlag != "" {
		date, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			return fmt.Errorf("%w: %q (want YYYY-MM-DD)", core.ErrInvalidDate, *dateFlag)
		}
	}

	txn, err := a.ledger.AddTransaction(ctx, services.AddTransactionParams{
		AccountName:  fs.Arg(0),
		Amount:       amount,
		PayeeName:    *payee,
		CategoryName: *categoryName,
		Date:         date,
		Memo:         *memo,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added transaction %d: %s %s\n", txn.ID, *payee, dollars(amount))
	return nil
}

func (a *App) transactionsCategorize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions categorize", flag.ContinueOnError)
	fs.SetOutput(a.out)
	learn := fs.Bool("learn", false, "remember this payee's category for future imports")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fmt.Fprint(a.out, transactionsUsage)
		return fmt.Errorf("transactions categorize needs an id and a category")
	}

	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", fs.Arg(0))
	}

	category, err := a.ledger.CategorizeTransaction(ctx, id, fs.Arg(1), *learn)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Categorized as %q\n", category.Name)
	return nil
}

func (a *App) transactionsClear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, transactionsUsage)
		return fmt.Errorf("transactions clear needs exactly one id")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", args[0])
	}
	if err := a.ledger.ClearTransaction(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Transaction marked as cleared")
	return nil
}

func (a *App) transactionsUncategorized(ctx context.Context) error {
	count, err := a.store.CountUncategorized(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(a.out, "All transactions are categorized.")
		return nil
	}
	fmt.Fprintf(a.out, "%d uncategorized transactions. Run 'zeroed transactions list --uncategorized' to see them.\n", count)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
