// Package store persists the rule repository.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nstehr/eocatr-core/rules"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store saves and loads the full rule set. SaveRules replaces whatever was
// stored before.
type Store interface {
	SaveRules(ctx context.Context, recs []rules.Record) error
	LoadRules(ctx context.Context) ([]rules.Record, error)
	Close() error
}

// Open returns the store for driver: "sqlite" (dsn is a file path),
// "postgres" (dsn is a connection URL) or "memory".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// columns is the shared column order of the rules table.
var columns = []string{
	"rule_id", "type", "layer", "source_id", "mirror_of",
	"environment", "object", "condition", "action", "tool", "result", "anchor",
	"semantic_score", "confidence", "score", "success_rate",
	"support_count", "rejection_count", "indirect_count", "total_count",
	"usage_count", "success_count", "validated", "created_at",
}

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// values lists rec's fields in column order.
func values(rec rules.Record) []any {
	return []any{
		rec.ID, rec.Type, rec.Layer, rec.SourceID, rec.MirrorOf,
		rec.Environment, rec.Object, rec.Characteristic, rec.Action, rec.Tool, rec.Result, rec.Anchor,
		rec.Semantic, rec.Confidence, rec.Score, rec.SuccessRate,
		rec.Support, rec.Rejection, rec.Indirect, rec.Total,
		rec.Usage, rec.Successes, rec.Validated, rec.CreatedAt.UTC().Format(timeLayout),
	}
}

// scanner is satisfied by *sql.Rows and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (rules.Record, error) {
	var rec rules.Record
	var created string
	err := row.Scan(
		&rec.ID, &rec.Type, &rec.Layer, &rec.SourceID, &rec.MirrorOf,
		&rec.Environment, &rec.Object, &rec.Characteristic, &rec.Action, &rec.Tool, &rec.Result, &rec.Anchor,
		&rec.Semantic, &rec.Confidence, &rec.Score, &rec.SuccessRate,
		&rec.Support, &rec.Rejection, &rec.Indirect, &rec.Total,
		&rec.Usage, &rec.Successes, &rec.Validated, &created,
	)
	if err != nil {
		return rules.Record{}, fmt.Errorf("scan rule: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return rules.Record{}, fmt.Errorf("rule %s created_at: %w", rec.ID, err)
	}
	return rec, nil
}

func selectSQL() string {
	return "SELECT " + strings.Join(columns, ", ") + " FROM rules ORDER BY created_at, rule_id"
}

// insertSQL builds an INSERT with placeholders from ph(i), 1-based.
func insertSQL(ph func(i int) string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = ph(i + 1)
	}
	return "INSERT INTO rules (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}
