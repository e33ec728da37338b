package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dontoisme/zeroed/internal/budget"
	"github.com/dontoisme/zeroed/internal/categorize"
	"github.com/dontoisme/zeroed/internal/config"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/importer"
	"github.com/dontoisme/zeroed/internal/ledger"
	"github.com/dontoisme/zeroed/internal/services"
)

const Version = "0.1.0"

const usage = `zeroed - zero-based budgeting CLI

Usage:
  zeroed <command> [subcommand] [flags]

Commands:
  init          Verify the database and seeded categories
  accounts      Manage bank accounts and credit cards
  categories    Manage category groups and categories
  transactions  View and manage transactions
  budget        Show and set monthly budgets
  rules         Manage auto-categorization rules
  import        Import transactions from CSV files
  reports       Generate spending reports
  export        Queue budget snapshot exports
  version       Show the version

Run 'zeroed <command>' without arguments for subcommand help.
`

// App wires the engines and services behind the command tree. One App
// serves one invocation; nothing here is shared between processes.
type App struct {
	store   ledger.Store
	cfg     *config.Config
	out     io.Writer
	budget  *budget.Engine
	rules   *categorize.Engine
	ledger  *services.LedgerService
	imports *services.ImportService
}

func NewApp(store ledger.Store, cfg *config.Config, out io.Writer) *App {
	rules := categorize.NewEngine(store)
	return &App{
		store:   store,
		cfg:     cfg,
		out:     out,
		budget:  budget.NewEngine(store),
		rules:   rules,
		ledger:  services.NewLedgerService(store),
		imports: services.NewImportService(store, importer.NewRegistry(), rules),
	}
}

// Run dispatches one invocation. Unknown commands print usage and fail.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return a.runInit(ctx)
	case "accounts":
		return a.runAccounts(ctx, rest)
	case "categories":
		return a.runCategories(ctx, rest)
	case "transactions":
		return a.runTransactions(ctx, rest)
	case "budget":
		return a.runBudget(ctx, rest)
	case "rules":
		return a.runRules(ctx, rest)
	case "import":
		return a.runImport(ctx, rest)
	case "reports":
		return a.runReports(ctx, rest)
	case "export":
		return a.runExport(ctx, rest)
	case "version":
		fmt.Fprintf(a.out, "zeroed v%s\n", Version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	fmt.Fprint(a.out, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// runInit confirms the database is usable. Migrations and the default
// category seed already ran at startup; this surfaces the result.
func (a *App) runInit(ctx context.Context) error {
	groups, err := a.store.ListCategoryGroups(ctx, true)
	if err != nil {
		return fmt.Errorf("list category groups: %w", err)
	}
	categories, err := a.store.ListAllCategories(ctx, true)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	if a.cfg.DataBackend == "sqlite" {
		fmt.Fprintf(a.out, "Database ready at %s\n", a.cfg.SQLiteDBPath)
	} else {
		fmt.Fprintf(a.out, "Database ready (%s backend)\n", a.cfg.DataBackend)
	}
	fmt.Fprintf(a.out, "%d category groups, %d categories\n", len(groups), len(categories))
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No categories seeded; create some with 'zeroed categories create'.")
	}
	return nil
}

// tabber returns a writer aligned for table output. Callers must Flush.
func (a *App) tabber() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

// dollars renders money for humans, e.g. "$12.50" and "-$45.00".
func dollars(m core.Money) string {
	if m.Cents < 0 {
		return "-$" + m.Abs().Fixed2()
	}
	return "$" + m.Fixed2()
}

// monthOrNow parses a --month flag value, empty meaning the current month.
func monthOrNow(value string) (core.Month, error) {
	if value == "" {
		return core.CurrentMonth(), nil
	}
	return core.ParseMonth(value)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
