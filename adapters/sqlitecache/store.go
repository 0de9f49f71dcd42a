package sqlitecache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/drillsoft/sectionflow"
)

// Store implements the engine's CacheStore over an embedded SQLite database. All entity
// tables share one physical table keyed by (logical table, id) so new section kinds need
// no DDL, and the record plus its outbox events commit in one transaction.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ sectionflow.CacheStore = (*Store)(nil)

func (s *Store) Get(ctx context.Context, table, id string) (*sectionflow.CacheRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, drill_plan_id, object, updated_at FROM cache_records WHERE tbl = ? AND id = ?",
		table, id)

	return recordScan(row)
}

func (s *Store) ListByDrillPlan(ctx context.Context, table, drillPlanID string) ([]sectionflow.CacheRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, drill_plan_id, object, updated_at FROM cache_records WHERE tbl = ? AND drill_plan_id = ? ORDER BY updated_at, id",
		table, drillPlanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *Store) List(ctx context.Context, table string, offset, limit int, filters ...sectionflow.CacheFilter) ([]sectionflow.CacheRecord, int64, error) {
	where := "tbl = ?"
	args := []any{table}
	for _, f := range filters {
		switch f.Field {
		case "id":
			where += " AND id = ?"
		case "drillPlanId":
			where += " AND drill_plan_id = ?"
		default:
			return nil, 0, fmt.Errorf("unsupported cache filter field %q", f.Field)
		}
		args = append(args, f.Value)
	}

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_records WHERE "+where, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT id, drill_plan_id, object, updated_at FROM cache_records WHERE " + where + " ORDER BY updated_at, id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	} else {
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recs, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	return recs, count, nil
}

func (s *Store) Store(ctx context.Context, table string, r *sectionflow.CacheRecord, events ...sectionflow.OutboxEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cache_records (tbl, id, drill_plan_id, object, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (tbl, id) DO UPDATE SET
             drill_plan_id = excluded.drill_plan_id,
             object = excluded.object,
             updated_at = excluded.updated_at`,
		table, r.ID, r.DrillPlanID, r.Object, r.UpdatedAt)
	if err != nil {
		return err
	}

	for _, ev := range events {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sync_outbox (id, tbl, entity_id, drill_plan_id, row_status, object, is_new, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.Table, ev.EntityID, ev.DrillPlanID, int(ev.RowStatus), ev.Object, ev.IsNew, ev.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) BulkStore(ctx context.Context, table string, rs []sectionflow.CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cache_records (tbl, id, drill_plan_id, object, updated_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (tbl, id) DO UPDATE SET
                 drill_plan_id = excluded.drill_plan_id,
                 object = excluded.object,
                 updated_at = excluded.updated_at`,
			table, r.ID, r.DrillPlanID, r.Object, r.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_records WHERE tbl = ? AND id = ?", table, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sectionflow.ErrCacheRecordNotFound
	}

	return nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, limit int64) ([]sectionflow.OutboxEvent, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tbl, entity_id, drill_plan_id, row_status, object, is_new, created_at FROM sync_outbox ORDER BY created_at, id LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sectionflow.OutboxEvent
	for rows.Next() {
		var ev sectionflow.OutboxEvent
		var status int
		err = rows.Scan(&ev.ID, &ev.Table, &ev.EntityID, &ev.DrillPlanID, &status, &ev.Object, &ev.IsNew, &ev.CreatedAt)
		if err != nil {
			return nil, err
		}

		ev.RowStatus = sectionflow.RowStatus(status)
		events = append(events, ev)
	}

	return events, rows.Err()
}

func (s *Store) DeleteOutboxEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sync_outbox WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sectionflow.ErrOutboxEventNotFound
	}

	return nil
}

func recordScan(row *sql.Row) (*sectionflow.CacheRecord, error) {
	var r sectionflow.CacheRecord
	err := row.Scan(&r.ID, &r.DrillPlanID, &r.Object, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, sectionflow.ErrCacheRecordNotFound
	} else if err != nil {
		return nil, err
	}

	return &r, nil
}

func collectRecords(rows *sql.Rows) ([]sectionflow.CacheRecord, error) {
	var recs []sectionflow.CacheRecord
	for rows.Next() {
		var r sectionflow.CacheRecord
		err := rows.Scan(&r.ID, &r.DrillPlanID, &r.Object, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}

		recs = append(recs, r)
	}

	return recs, rows.Err()
}
