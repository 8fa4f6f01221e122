// Package postgres is the PostgreSQL Repository backend. Each resource type
// gets one table holding the document as JSONB keyed by its identifier.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
	"longtrees/pkg/platform/tx"
)

// Table stores documents of type T in one JSONB table.
type Table[T models.Document[T]] struct {
	pool  *pgxpool.Pool
	table string
}

// New binds T's table.
func New[T models.Document[T]](pool *pgxpool.Pool) *Table[T] {
	var zero T
	return NewNamed[T](pool, zero.Collection())
}

// NewNamed binds a table with an explicit name.
func NewNamed[T models.Document[T]](pool *pgxpool.Pool, name string) *Table[T] {
	return &Table[T]{pool: pool, table: pgx.Identifier{name}.Sanitize()}
}

// EnsureSchema creates the table if it does not exist.
func (t *Table[T]) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + t.table + ` (
		id TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := t.pool.Exec(ctx, ddl); err != nil {
		return unavailable("ensure table", err)
	}
	return nil
}

func (t *Table[T]) Create(ctx context.Context, doc T) (domain.ID, error) {
	id := domain.NewID()
	raw, err := json.Marshal(doc.WithID(id))
	if err != nil {
		return domain.NilID, fmt.Errorf("encode document: %w", err)
	}
	q := tx.QuerierFrom(ctx, t.pool)
	if _, err := q.Exec(ctx, `INSERT INTO `+t.table+` (id, doc) VALUES ($1, $2)`, id.String(), raw); err != nil {
		return domain.NilID, unavailable("insert", err)
	}
	return id, nil
}

func (t *Table[T]) Get(ctx context.Context, id domain.ID) (T, error) {
	q := tx.QuerierFrom(ctx, t.pool)
	row := q.QueryRow(ctx, `SELECT doc FROM `+t.table+` WHERE id = $1`, id.String())
	return scanDoc[T](row, "select")
}

func (t *Table[T]) List(ctx context.Context, opts store.ListOptions) iter.Seq2[T, error] {
	return store.OneShot(func(yield func(T, error) bool) {
		var zero T
		q := tx.QuerierFrom(ctx, t.pool)
		rows, err := q.Query(ctx,
			`SELECT doc FROM `+t.table+` WHERE id COLLATE "C" > $1 ORDER BY id COLLATE "C" LIMIT $2`,
			opts.StartAfter(), opts.PageSize())
		if err != nil {
			yield(zero, unavailable("list", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			doc, err := scanDoc[T](rows, "list")
			if !yield(doc, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, unavailable("list", err))
		}
	})
}

// Update merges the client fields over the stored document with the jsonb
// concatenation operator, which replaces top-level keys and keeps the rest.
func (t *Table[T]) Update(ctx context.Context, id domain.ID, doc T) (T, error) {
	var zero T
	patch, err := store.ClientPatch(doc, zero.DerivedFields())
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return zero, fmt.Errorf("encode patch: %w", err)
	}
	q := tx.QuerierFrom(ctx, t.pool)
	row := q.QueryRow(ctx,
		`UPDATE `+t.table+` SET doc = doc || $2::jsonb WHERE id = $1 RETURNING doc`,
		id.String(), raw)
	return scanDoc[T](row, "update")
}

func (t *Table[T]) Delete(ctx context.Context, id domain.ID) error {
	q := tx.QuerierFrom(ctx, t.pool)
	tag, err := q.Exec(ctx, `DELETE FROM `+t.table+` WHERE id = $1`, id.String())
	if err != nil {
		return unavailable("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Amend runs one jsonb_set UPDATE per amendment inside a single transaction.
func (t *Table[T]) Amend(ctx context.Context, id domain.ID, amendments ...store.Amendment) (T, error) {
	var doc T
	if len(amendments) == 0 {
		return doc, errors.New("no amendments")
	}
	err := tx.Run(ctx, t.pool, func(ctx context.Context) error {
		q := tx.QuerierFrom(ctx, t.pool)
		for _, a := range amendments {
			stmt, err := t.amendStatement(a.Op)
			if err != nil {
				return err
			}
			value, err := a.JSONValue()
			if err != nil {
				return err
			}
			row := q.QueryRow(ctx, stmt, id.String(), []string{a.Field}, value)
			if doc, err = scanDoc[T](row, "amend"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return doc, nil
}

func (t *Table[T]) amendStatement(op store.AmendOp) (string, error) {
	const current = `COALESCE(doc #> $2::text[], '[]'::jsonb)`
	var expr string
	switch op {
	case store.OpSet:
		expr = `jsonb_set(doc, $2::text[], $3::jsonb)`
	case store.OpPush:
		expr = `jsonb_set(doc, $2::text[], ` + current + ` || jsonb_build_array($3::jsonb))`
	case store.OpAddToSet:
		expr = `jsonb_set(doc, $2::text[], CASE WHEN ` + current + ` @> jsonb_build_array($3::jsonb) THEN ` +
			current + ` ELSE ` + current + ` || jsonb_build_array($3::jsonb) END)`
	default:
		return "", fmt.Errorf("unsupported amendment %s", op)
	}
	return `UPDATE ` + t.table + ` SET doc = ` + expr + ` WHERE id = $1 RETURNING doc`, nil
}

func (t *Table[T]) Ping(ctx context.Context) error {
	if err := t.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func scanDoc[T any](row pgx.Row, op string) (T, error) {
	var doc T
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doc, sentinel.ErrNotFound
		}
		return doc, unavailable(op, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("postgres %s: %w: %w", op, sentinel.ErrUnavailable, err)
}
