package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dontoisme/zeroed/internal/amqp"
)

const exportUsage = `Usage:
  zeroed export snapshot [--month YYYY-MM]

Queues a budget snapshot request for the export worker. The worker must
be running and configured with Google Sheets credentials.
`

func (a *App) runExport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, exportUsage)
		return nil
	}

	switch args[0] {
	case "snapshot":
		return a.exportSnapshot(ctx, args[1:])
	}
	fmt.Fprint(a.out, exportUsage)
	return fmt.Errorf("unknown export subcommand %q", args[0])
}

func (a *App) exportSnapshot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export snapshot", flag.ContinueOnError)
	fs.SetOutput(a.out)
	monthFlag := fs.String("month", "", "month (YYYY-MM), defaults to current")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := monthOrNow(*monthFlag)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	if err := client.PublishSnapshotRequest(ctx, amqp.NewSnapshotRequest(month)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Queued snapshot export for %s\n", month.Display())
	return nil
}
