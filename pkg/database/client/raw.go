/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// isKnownTable gates the whole-table operations onto the fixed schema; a
// table name never reaches SQL text unless it is one of ours.
func isKnownTable(table string) bool {
	if database.IsBackupTable(table) || table == database.TSchemaMigration {
		return true
	}
	for _, t := range database.FsSearchIndexTables {
		if t == table {
			return true
		}
	}
	return false
}

func (c *Client) SelectAllRows(ctx context.Context, table string) ([]map[string]interface{}, error) {
	if !isKnownTable(table) {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown table %q", table))
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryxContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, table))
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err = rows.MapScan(row); err != nil {
			return nil, commonerrors.NewInternalError(err.Error())
		}
		out = append(out, normalizeRow(row))
	}
	if err = rows.Err(); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return out, nil
}

// normalizeRow converts driver byte slices into strings so that rows survive
// a JSON round trip unchanged.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}

func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	var cmd string
	if c.dialect.IsSQLiteFamily() {
		cmd = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	} else {
		cmd = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`
	}
	var count int
	if err = db.GetContext(ctx, &count, db.Rebind(cmd), table); err != nil {
		return false, commonerrors.NewInternalError(err.Error())
	}
	return count > 0, nil
}

func (c *Client) TableColumns(ctx context.Context, table string) ([]string, error) {
	if !isKnownTable(table) {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown table %q", table))
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var columns []string
	if c.dialect.IsSQLiteFamily() {
		rows, err := db.QueryxContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
		if err != nil {
			return nil, commonerrors.NewInternalError(err.Error())
		}
		defer rows.Close()
		for rows.Next() {
			row := map[string]interface{}{}
			if err = rows.MapScan(row); err != nil {
				return nil, commonerrors.NewInternalError(err.Error())
			}
			row = normalizeRow(row)
			if name, ok := row["name"].(string); ok {
				columns = append(columns, name)
			}
		}
		return columns, rows.Err()
	}
	cmd := db.Rebind(`SELECT column_name FROM information_schema.columns WHERE table_name = ?`)
	if err = db.SelectContext(ctx, &columns, cmd, table); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return columns, nil
}

func (c *Client) DeleteAllRows(ctx context.Context, table string) error {
	if !isKnownTable(table) {
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown table %q", table))
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

// ExecStatements runs statements serially in emitted order. A failed
// statement is recorded and execution continues; there is no cross-statement
// rollback. Cancellation is honored between statements, never mid-statement.
func (c *Client) ExecStatements(ctx context.Context, statements []database.Statement) []StatementResult {
	db, err := c.getDB()
	if err != nil {
		results := make([]StatementResult, len(statements))
		for i, stmt := range statements {
			results[i] = StatementResult{Index: i, Table: stmt.Table, Err: err}
		}
		return results
	}

	results := make([]StatementResult, 0, len(statements))
	for i, stmt := range statements {
		if ctx.Err() != nil {
			results = append(results, StatementResult{Index: i, Table: stmt.Table, Err: ctx.Err()})
			continue
		}
		result, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			klog.ErrorS(err, "statement failed", "table", stmt.Table, "index", i)
			results = append(results, StatementResult{Index: i, Table: stmt.Table, Err: err})
			continue
		}
		changes, err := result.RowsAffected()
		if err != nil {
			changes = 0
		}
		results = append(results, StatementResult{Index: i, Table: stmt.Table, Changes: changes})
	}
	return results
}

// SetDeferredForeignKeys relaxes FK enforcement for the duration of a restore.
func (c *Client) SetDeferredForeignKeys(ctx context.Context, on bool) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	var cmd string
	if c.dialect.IsSQLiteFamily() {
		if on {
			cmd = `PRAGMA defer_foreign_keys = ON`
		} else {
			cmd = `PRAGMA defer_foreign_keys = OFF`
		}
	} else {
		if on {
			cmd = `SET CONSTRAINTS ALL DEFERRED`
		} else {
			cmd = `SET CONSTRAINTS ALL IMMEDIATE`
		}
	}
	if _, err = db.ExecContext(ctx, cmd); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
