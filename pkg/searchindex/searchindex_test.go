/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package searchindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// one connection, or every pooled conn sees its own empty memory db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewService(client.NewClient(db, database.SQLiteDialect)), db
}

func seedIndexedMount(t *testing.T, db *sqlx.DB, configId, mountId string) {
	t.Helper()
	const now = "2025-08-01T00:00:00Z"
	stmts := []struct {
		cmd  string
		args []interface{}
	}{
		{`INSERT OR IGNORE INTO admins (id, username, password_hash, created_at, updated_at)
			VALUES ('admin-1', 'root', 'x', ?, ?)`, []interface{}{now, now}},
		{`INSERT OR IGNORE INTO storage_configs
			(id, name, storage_type, admin_id, is_public, is_default, status, config_json, created_at, updated_at)
			VALUES (?, ?, 'LOCAL', 'admin-1', 0, 0, 'active', '{}', ?, ?)`,
			[]interface{}{configId, "cfg " + configId, now, now}},
		{`INSERT INTO storage_mounts (id, name, storage_config_id, mount_path, status, created_by, created_at, updated_at)
			VALUES (?, ?, ?, '/data', 'active', 'admin-1', ?, ?)`,
			[]interface{}{mountId, "mount " + mountId, configId, now, now}},
		{`INSERT INTO fs_search_entries (id, mount_id, path, name, size, updated_at)
			VALUES (?, ?, '/data/a.txt', 'a.txt', 10, ?)`,
			[]interface{}{mountId + "-e1", mountId, now}},
		{`INSERT INTO fs_search_fts (entry_id, content) VALUES (?, 'a txt')`,
			[]interface{}{mountId + "-e1"}},
		{`INSERT INTO fs_search_dirty (mount_id, path, marked_at) VALUES (?, '/data/b.txt', ?)`,
			[]interface{}{mountId, now}},
		{`INSERT INTO fs_search_state (mount_id, ready, indexed_at) VALUES (?, 1, ?)`,
			[]interface{}{mountId, now}},
	}
	for _, s := range stmts {
		_, err := db.Exec(s.cmd, s.args...)
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, db *sqlx.DB, table, mountId string) int {
	t.Helper()
	var n int
	col := "mount_id"
	if table == database.TFsSearchFts {
		require.NoError(t, db.Get(&n, fmt.Sprintf(
			`SELECT COUNT(*) FROM %s WHERE entry_id IN (SELECT id FROM %s WHERE mount_id = ?)`,
			table, database.TFsSearchEntry), mountId))
		return n
	}
	require.NoError(t, db.Get(&n, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE %s = ?`, table, col), mountId))
	return n
}

func TestClearForMountKeepsStateRow(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()
	seedIndexedMount(t, db, "cfg-1", "mount-1")

	require.NoError(t, service.ClearForMount(ctx, "mount-1", true))

	assert.Zero(t, countRows(t, db, database.TFsSearchEntry, "mount-1"))
	assert.Zero(t, countRows(t, db, database.TFsSearchDirty, "mount-1"))

	var ready int
	var indexedAt *string
	require.NoError(t, db.QueryRow(
		`SELECT ready, indexed_at FROM fs_search_state WHERE mount_id = ?`, "mount-1").
		Scan(&ready, &indexedAt))
	assert.Zero(t, ready)
	assert.Nil(t, indexedAt)
}

func TestClearForMountDropsStateRow(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()
	seedIndexedMount(t, db, "cfg-1", "mount-1")

	require.NoError(t, service.ClearForMount(ctx, "mount-1", false))
	assert.Zero(t, countRows(t, db, database.TFsSearchState, "mount-1"))
}

func TestClearForConfigCoversEveryMount(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()
	seedIndexedMount(t, db, "cfg-1", "mount-1")
	seedIndexedMount(t, db, "cfg-1", "mount-2")
	seedIndexedMount(t, db, "cfg-other", "mount-3")

	require.NoError(t, service.ClearForConfig(ctx, "cfg-1", true))

	assert.Zero(t, countRows(t, db, database.TFsSearchEntry, "mount-1"))
	assert.Zero(t, countRows(t, db, database.TFsSearchEntry, "mount-2"))
	// Mounts of other configs are untouched.
	assert.Equal(t, 1, countRows(t, db, database.TFsSearchEntry, "mount-3"))
	assert.Equal(t, 1, countRows(t, db, database.TFsSearchFts, "mount-3"))
}

func TestClearAllTruncatesIndexTables(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()
	seedIndexedMount(t, db, "cfg-1", "mount-1")
	seedIndexedMount(t, db, "cfg-2", "mount-2")

	require.NoError(t, service.ClearAll(ctx))
	for _, table := range database.FsSearchIndexTables {
		var n int
		require.NoError(t, db.Get(&n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)))
		assert.Zero(t, n, table)
	}
}
