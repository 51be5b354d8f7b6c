package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/savfrmda3/fomo-bot/internal/storage"
)

// Show prints recent alerts, or recent poll cycles when requested.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Cycles {
		return showCycles(ctx, store, opts.Limit)
	}
	return showAlerts(ctx, store, opts.Limit)
}

func showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tListing\tName\tPrice\tFloor\tDrop%\tBackdrop")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.ListingID,
			sanitizeInline(alert.Name),
			formatDecimal(alert.Price, 2),
			formatDecimal(alert.FloorPrice, 2),
			formatDecimal(alert.DropPercent, 1),
			sanitizeInline(alert.Backdrop),
		)
	}

	writer.Flush()
	return nil
}

func showCycles(ctx context.Context, store storage.CycleStore, limit int) error {
	cycles, err := store.ListRecentCycles(ctx, limit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Fprintln(os.Stdout, "no cycles found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tPulled\tAccepted\tSent\tStatus\tError")

	for _, cycle := range cycles {
		errMsg := ""
		if cycle.Error != nil {
			errMsg = sanitizeInline(*cycle.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%d\t%s\t%s\n",
			cycle.StartedAt.UTC().Format(time.RFC3339),
			cycle.Pulled,
			cycle.Accepted,
			cycle.Sent,
			cycle.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
