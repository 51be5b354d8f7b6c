package app

import (
	"context"
	"errors"
	"time"
)

// PruneOptions bound the history cleanup.
type PruneOptions struct {
	OlderThan time.Duration
	DryRun    bool
}

// Prune 清理超过保留期的历史告警记录。
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	if opts.OlderThan <= 0 {
		return errors.New("--older-than 必须大于 0")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn 未配置，无法清理")
	}
	if closeStore != nil {
		defer closeStore()
	}

	cutoff := time.Now().UTC().Add(-opts.OlderThan)

	if opts.DryRun {
		stale, err := store.ListAlertsBetween(ctx, time.Time{}, cutoff)
		if err != nil {
			return err
		}
		a.Logger.Info().Int("stale", len(stale)).Time("cutoff", cutoff).Msg("dry-run：不会删除记录")
		return nil
	}

	before, err := store.CountAlerts(ctx)
	if err != nil {
		return err
	}

	if err := store.DeleteAlertsBefore(ctx, cutoff); err != nil {
		return err
	}

	after, err := store.CountAlerts(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().Int64("removed", before-after).Int64("remaining", after).Time("cutoff", cutoff).Msg("历史告警清理完成")
	return nil
}
