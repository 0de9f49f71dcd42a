package sqlremote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/drillsoft/sectionflow"
)

// Client is a RemoteClient backed by a SQL system of record, one table per entity type
// holding the entity as a JSON document beside its indexed keys. It suits deployments
// where the "remote" is a central MySQL instance rather than an HTTP API.
type Client[Type any, P sectionflow.Ptr[Type]] struct {
	db    *sql.DB
	table string
}

func New[Type any, P sectionflow.Ptr[Type]](db *sql.DB, table string) *Client[Type, P] {
	return &Client[Type, P]{
		db:    db,
		table: table,
	}
}

// CreateTable creates the entity table if it does not exist.
func (c *Client[Type, P]) CreateTable(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id            VARCHAR(36) NOT NULL PRIMARY KEY,
    drill_plan_id VARCHAR(36) NOT NULL,
    row_status    INT NOT NULL,
    object        JSON NOT NULL,
    updated_at    DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
    INDEX idx_drill_plan_id (drill_plan_id)
);`, c.table))

	return err
}

func (c *Client[Type, P]) FindAll(ctx context.Context, filters sectionflow.Filters, page sectionflow.Pagination) (sectionflow.ListResult[Type], error) {
	where := "1 = 1"
	var args []any
	if plan, ok := filters["drillPlanId"]; ok {
		where = "drill_plan_id = ?"
		args = append(args, plan)
	}

	var count int64
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.table, where), args...).Scan(&count)
	if err != nil {
		return sectionflow.ListResult[Type]{}, err
	}

	query := fmt.Sprintf("SELECT object FROM %s WHERE %s ORDER BY updated_at, id", c.table, where)
	if page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", page.Limit)
		if page.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", page.Offset)
		}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return sectionflow.ListResult[Type]{}, err
	}
	defer rows.Close()

	var items []*Type
	for rows.Next() {
		var object []byte
		err = rows.Scan(&object)
		if err != nil {
			return sectionflow.ListResult[Type]{}, err
		}

		var t Type
		err = json.Unmarshal(object, &t)
		if err != nil {
			return sectionflow.ListResult[Type]{}, err
		}

		items = append(items, &t)
	}
	if err := rows.Err(); err != nil {
		return sectionflow.ListResult[Type]{}, err
	}

	return sectionflow.ListResult[Type]{
		Items: items,
		Meta:  sectionflow.ListMeta{ItemCount: count},
	}, nil
}

func (c *Client[Type, P]) FindOne(ctx context.Context, id string) (*Type, error) {
	var object []byte
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT object FROM %s WHERE id = ?", c.table), id).Scan(&object)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entity %s not found in %s", id, c.table)
	} else if err != nil {
		return nil, err
	}

	var t Type
	err = json.Unmarshal(object, &t)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (c *Client[Type, P]) Create(ctx context.Context, t *Type) (*Type, error) {
	return c.upsert(ctx, t)
}

func (c *Client[Type, P]) Update(ctx context.Context, t *Type) (*Type, error) {
	return c.upsert(ctx, t)
}

func (c *Client[Type, P]) upsert(ctx context.Context, t *Type) (*Type, error) {
	object, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	p := P(t)
	_, err = c.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, drill_plan_id, row_status, object)
         VALUES (?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE
             drill_plan_id = VALUES(drill_plan_id),
             row_status = VALUES(row_status),
             object = VALUES(object)`, c.table),
		p.EntityID(), p.PlanID(), int(p.Status()), object)
	if err != nil {
		return nil, err
	}

	return t, nil
}
