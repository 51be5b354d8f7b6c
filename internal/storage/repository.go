package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO alerts (
        listing_id,
        name,
        price_ton,
        floor_ton,
        drop_pct,
        backdrop,
        photo_url
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, listing_id, name, price_ton, floor_ton, drop_pct, backdrop, photo_url, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        listing_id,
        name,
        price_ton,
        floor_ton,
        drop_pct,
        backdrop,
        photo_url,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT
        id,
        listing_id,
        name,
        price_ton,
        floor_ton,
        drop_pct,
        backdrop,
        photo_url,
        created_at
    FROM alerts
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	countAlertsSQL = `SELECT COUNT(*) FROM alerts;`

	insertCycleSQL = `INSERT INTO cycles (
        started_at,
        pulled,
        accepted,
        sent,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	listRecentCyclesSQL = `SELECT
        id,
        started_at,
        pulled,
        accepted,
        sent,
        status,
        error,
        created_at
    FROM cycles
    ORDER BY started_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
	CountAlerts(ctx context.Context) (int64, error)
}

// CycleStore defines operations for cycle bookkeeping.
type CycleStore interface {
	InsertCycle(ctx context.Context, cycle CycleRecord) error
	ListRecentCycles(ctx context.Context, limit int) ([]CycleRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to alerts and cycles.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
// Two bot instances sharing one database cannot both announce the same feed.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ListingID,
		alert.Name,
		alert.Price.String(),
		alert.FloorPrice.String(),
		alert.DropPercent.String(),
		alert.Backdrop,
		alert.PhotoURL,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, limit)
}

// ListAlertsBetween lists alerts within a time window.
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, 0)
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

// CountAlerts counts stored alerts.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

// InsertCycle persists a cycle summary.
func (s *Store) InsertCycle(ctx context.Context, cycle CycleRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if cycle.Error != nil {
		errMsg = *cycle.Error
	}

	_, execErr := pool.Exec(ctx, insertCycleSQL,
		cycle.StartedAt,
		cycle.Pulled,
		cycle.Accepted,
		cycle.Sent,
		cycle.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("insert cycle: %w", execErr)
	}
	return nil
}

// ListRecentCycles lists the most recent cycle summaries.
func (s *Store) ListRecentCycles(ctx context.Context, limit int) ([]CycleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentCyclesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent cycles: %w", queryErr)
	}
	defer rows.Close()

	cycles := make([]CycleRecord, 0, limit)
	for rows.Next() {
		var rec CycleRecord
		var errMsg sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.StartedAt,
			&rec.Pulled,
			&rec.Accepted,
			&rec.Sent,
			&rec.Status,
			&errMsg,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			msg := errMsg.String
			rec.Error = &msg
		}
		cycles = append(cycles, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return cycles, nil
}

func collectAlerts(rows pgx.Rows, capacity int) ([]AlertRecord, error) {
	alerts := make([]AlertRecord, 0, capacity)
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec      AlertRecord
		priceStr string
		floorStr string
		dropStr  string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.ListingID,
		&rec.Name,
		&priceStr,
		&floorStr,
		&dropStr,
		&rec.Backdrop,
		&rec.PhotoURL,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse price: %w", convErr)
	}
	rec.FloorPrice, convErr = decimal.NewFromString(floorStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse floor price: %w", convErr)
	}
	rec.DropPercent, convErr = decimal.NewFromString(dropStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse drop pct: %w", convErr)
	}

	return rec, nil
}
