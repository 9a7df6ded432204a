/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRows(count, columns int) []map[string]interface{} {
	rows := make([]map[string]interface{}, count)
	for i := range rows {
		row := map[string]interface{}{}
		for c := 0; c < columns; c++ {
			row[fmt.Sprintf("col_%02d", c)] = i
		}
		rows[i] = row
	}
	return rows
}

func TestBuildInsertStatementsPacking(t *testing.T) {
	// 10 columns allow floor(80/10) = 8 rows per statement; 100 rows need 13.
	rows := makeRows(100, 10)
	statements := BuildInsertStatements(SQLiteDialect, TSystemSetting, rows,
		BuildOptions{Mode: ModeMerge})
	require.Len(t, statements, 13)

	carried := 0
	for _, stmt := range statements {
		assert.True(t, strings.HasPrefix(stmt.SQL, "INSERT OR IGNORE INTO"), stmt.SQL)
		assert.LessOrEqual(t, len(stmt.Args), MaxBindVars)
		assert.Equal(t, TSystemSetting, stmt.Table)
		carried += stmt.ExpectedRows
	}
	assert.Equal(t, 100, carried)
	assert.Equal(t, 8, statements[0].ExpectedRows)
	assert.Equal(t, 4, statements[12].ExpectedRows)
}

func TestBuildInsertStatementsOverwritePlainInsert(t *testing.T) {
	statements := BuildInsertStatements(SQLiteDialect, TPaste, makeRows(3, 4),
		BuildOptions{Mode: ModeOverwrite})
	require.Len(t, statements, 1)
	assert.True(t, strings.HasPrefix(statements[0].SQL, "INSERT INTO"), statements[0].SQL)
	assert.NotContains(t, statements[0].SQL, "OR IGNORE")
}

func TestBuildInsertStatementsPostgresPerRow(t *testing.T) {
	statements := BuildInsertStatements(PostgresDialect, TPaste, makeRows(5, 4),
		BuildOptions{Mode: ModeMerge})
	require.Len(t, statements, 5)
	for _, stmt := range statements {
		assert.Equal(t, 1, stmt.ExpectedRows)
		assert.Contains(t, stmt.SQL, "ON CONFLICT DO NOTHING")
		assert.Contains(t, stmt.SQL, "$1")
	}
}

func TestBuildInsertStatementsColumnUnionAndNulls(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "a", "name": "first"},
		{"id": "b", "remark": "second"},
	}
	statements := BuildInsertStatements(SQLiteDialect, TPaste, rows,
		BuildOptions{Mode: ModeOverwrite})
	require.Len(t, statements, 1)

	// columns sorted lexicographically: id, name, remark
	assert.Contains(t, statements[0].SQL, "(id,name,remark)")
	require.Len(t, statements[0].Args, 6)
	assert.Equal(t, "first", statements[0].Args[1])
	assert.Nil(t, statements[0].Args[2], "missing attribute binds null")
	assert.Nil(t, statements[0].Args[4])
}

func TestTimestampPolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	build := func(table string, mode InsertMode, preserve bool) map[string]interface{} {
		rows := []map[string]interface{}{{
			"id":         "x",
			"created_at": "2020-01-01T00:00:00Z",
			"updated_at": "2020-01-01T00:00:00Z",
		}}
		statements := BuildInsertStatements(SQLiteDialect, table, rows,
			BuildOptions{Mode: mode, PreserveTimestamps: preserve, Now: now})
		// columns sort as created_at, id, updated_at
		return map[string]interface{}{
			"created_at": statements[0].Args[0],
			"updated_at": statements[0].Args[2],
		}
	}

	// merge without preservation rewrites updated_at, never created_at
	got := build(TPaste, ModeMerge, false)
	assert.Equal(t, "2020-01-01T00:00:00Z", got["created_at"])
	assert.Equal(t, "2025-06-01T12:00:00Z", got["updated_at"])

	// tasks carry millisecond integers instead
	got = build(TTask, ModeMerge, false)
	assert.Equal(t, now.UnixMilli(), got["updated_at"])

	// preservation wins
	got = build(TPaste, ModeMerge, true)
	assert.Equal(t, "2020-01-01T00:00:00Z", got["updated_at"])

	// overwrite mode never rewrites
	got = build(TPaste, ModeOverwrite, false)
	assert.Equal(t, "2020-01-01T00:00:00Z", got["updated_at"])
}

func TestMaxRowsPerStatement(t *testing.T) {
	assert.Equal(t, MaxBindVars, MaxRowsPerStatement(0))
	assert.Equal(t, 80, MaxRowsPerStatement(1))
	assert.Equal(t, 8, MaxRowsPerStatement(10))
	assert.Equal(t, 1, MaxRowsPerStatement(100), "wide rows still emit one row per statement")
}

func TestBuildInsertStatementsEmptyInput(t *testing.T) {
	assert.Nil(t, BuildInsertStatements(SQLiteDialect, TPaste, nil, BuildOptions{Mode: ModeMerge}))
}
