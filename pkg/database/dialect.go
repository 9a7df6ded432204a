/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"sort"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

type Dialect string

const (
	SQLiteDialect   Dialect = "sqlite3"
	PostgresDialect Dialect = "postgres"
)

const (
	// MaxBindVars is deliberately conservative so statements survive
	// D1-style bind-variable ceilings.
	MaxBindVars = 80
	// MaxStatementsPerBatch bounds one restore execution round.
	MaxStatementsPerBatch = 80
)

// IsSQLiteFamily reports whether the dialect supports multi-row packed
// INSERT OR IGNORE statements. Unknown dialects fall back to per-row inserts.
func (d Dialect) IsSQLiteFamily() bool {
	return d == SQLiteDialect
}

type InsertMode string

const (
	ModeOverwrite InsertMode = "overwrite"
	ModeMerge     InsertMode = "merge"
)

// Statement is one prepared statement plus the number of rows it carries,
// which the restore aggregator needs for result reconciliation.
type Statement struct {
	SQL          string
	Args         []interface{}
	Table        string
	ExpectedRows int
}

type BuildOptions struct {
	Mode               InsertMode
	PreserveTimestamps bool
	// Now is the timestamp substituted into rewritten updated_at columns.
	// The zero value means time.Now.
	Now time.Time
}

// BuildInsertStatements turns unordered attribute bags into an ordered list of
// insert statements. The column set is the union across all records, sorted
// lexicographically for stability; attributes missing from a row bind null.
func BuildInsertStatements(dialect Dialect, table string, rows []map[string]interface{}, opts BuildOptions) []Statement {
	if len(rows) == 0 {
		return nil
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	columns := columnUnion(rows)
	processed := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		processed[i] = applyTimestampPolicy(table, row, opts)
	}

	if dialect.IsSQLiteFamily() {
		return buildPacked(table, columns, processed, opts.Mode)
	}
	return buildPerRow(dialect, table, columns, processed, opts.Mode)
}

// MaxRowsPerStatement returns how many rows of the given width fit under the
// bind-variable ceiling, never less than one.
func MaxRowsPerStatement(columnCount int) int {
	if columnCount <= 0 {
		return MaxBindVars
	}
	maxRows := MaxBindVars / columnCount
	if maxRows < 1 {
		return 1
	}
	return maxRows
}

func columnUnion(rows []map[string]interface{}) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// applyTimestampPolicy rewrites updated_at with the restore time for merge
// mode so that merged rows surface as freshly touched. created_at is never
// rewritten. The tasks table stores millisecond integers instead of ISO text.
func applyTimestampPolicy(table string, row map[string]interface{}, opts BuildOptions) map[string]interface{} {
	if opts.PreserveTimestamps || opts.Mode != ModeMerge {
		return row
	}
	if _, ok := row["updated_at"]; !ok {
		return row
	}
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	if table == TTask {
		out["updated_at"] = opts.Now.UnixMilli()
	} else {
		out["updated_at"] = timeutil.FormatISO(opts.Now)
	}
	return out
}

func buildPacked(table string, columns []string, rows []map[string]interface{}, mode InsertMode) []Statement {
	maxRows := MaxRowsPerStatement(len(columns))
	statements := make([]Statement, 0, (len(rows)+maxRows-1)/maxRows)
	for start := 0; start < len(rows); start += maxRows {
		end := start + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		builder := sqrl.Insert(table).Columns(columns...)
		if mode == ModeMerge {
			builder = sqrl.Insert(table).Options("OR IGNORE").Columns(columns...)
		}
		for _, row := range chunk {
			builder = builder.Values(rowValues(columns, row)...)
		}
		sql, args, err := builder.ToSql()
		if err != nil {
			// Squirrel only fails on an empty builder, which the loop
			// structure rules out.
			continue
		}
		statements = append(statements, Statement{
			SQL:          sql,
			Args:         args,
			Table:        table,
			ExpectedRows: len(chunk),
		})
	}
	return statements
}

func buildPerRow(dialect Dialect, table string, columns []string, rows []map[string]interface{}, mode InsertMode) []Statement {
	statements := make([]Statement, 0, len(rows))
	for _, row := range rows {
		builder := sqrl.Insert(table).Columns(columns...).Values(rowValues(columns, row)...)
		if dialect == PostgresDialect {
			builder = builder.PlaceholderFormat(sqrl.Dollar)
			if mode == ModeMerge {
				builder = builder.Suffix("ON CONFLICT DO NOTHING")
			}
		}
		sql, args, err := builder.ToSql()
		if err != nil {
			continue
		}
		statements = append(statements, Statement{
			SQL:          sql,
			Args:         args,
			Table:        table,
			ExpectedRows: 1,
		})
	}
	return statements
}

func rowValues(columns []string, row map[string]interface{}) []interface{} {
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		if v, ok := row[col]; ok {
			values[i] = v
		}
	}
	return values
}
