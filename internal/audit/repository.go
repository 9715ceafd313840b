package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Query is a filtered slice of the audit trail. A zero Limit means no limit.
type Query struct {
	From   time.Time
	To     time.Time
	Actor  string
	Entity string
	Action string
	Offset int
	Limit  int
}

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Timeline returns matching entries, newest first.
func (r *PGRepository) Timeline(ctx context.Context, q Query) ([]TimelineRow, error) {
	sql, args := timelineSQL(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			tr   TimelineRow
			meta []byte
		)
		if err := row.Scan(&tr.At, &tr.Actor, &tr.Action, &tr.Entity, &tr.EntityID, &meta); err != nil {
			return tr, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &tr.Meta); err != nil {
				return tr, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		return tr, nil
	})
}

func timelineSQL(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !q.From.IsZero() {
		add("a.occurred_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("a.occurred_at < $%d", q.To)
	}
	if q.Actor != "" {
		add("u.email ILIKE '%%' || $%d || '%%'", q.Actor)
	}
	if q.Entity != "" {
		add("a.entity = $%d", q.Entity)
	}
	if q.Action != "" {
		add("a.action = $%d", q.Action)
	}

	var b strings.Builder
	b.WriteString(`SELECT a.occurred_at, COALESCE(u.email, 'system'), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id`)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY a.occurred_at DESC, a.id DESC")
	if q.Limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d OFFSET %d", q.Limit, q.Offset)
	}
	return b.String(), args
}
