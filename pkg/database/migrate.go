/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

// migrations are applied in order; each entry is recorded in
// schema_migrations as app-vNN. The highest applied NN is the schema version
// reported in backup metadata.
var migrations = []string{
	// app-v1: identity
	`CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS admin_tokens (
		token TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL REFERENCES admins(id),
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		key TEXT NOT NULL UNIQUE,
		can_read INTEGER NOT NULL DEFAULT 1,
		can_write INTEGER NOT NULL DEFAULT 0,
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,

	// app-v2: storage configs and mounts
	`CREATE TABLE IF NOT EXISTS storage_configs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		storage_type TEXT NOT NULL,
		admin_id TEXT NOT NULL REFERENCES admins(id),
		is_public INTEGER NOT NULL DEFAULT 0,
		is_default INTEGER NOT NULL DEFAULT 0,
		remark TEXT,
		url_proxy TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		config_json TEXT NOT NULL DEFAULT '{}',
		total_storage_bytes INTEGER,
		last_used_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS storage_mounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		storage_config_id TEXT NOT NULL REFERENCES storage_configs(id),
		mount_path TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS principal_storage_acl (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		storage_config_id TEXT NOT NULL REFERENCES storage_configs(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_storage_acl_subject ON principal_storage_acl(subject);`,

	// app-v3: shares
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		storage_config_id TEXT REFERENCES storage_configs(id),
		storage_path TEXT,
		file_path TEXT,
		mimetype TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		etag TEXT,
		remark TEXT,
		use_proxy INTEGER NOT NULL DEFAULT 0,
		expires_at TEXT,
		max_views INTEGER,
		views INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS file_passwords (
		file_id TEXT PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pastes (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		remark TEXT,
		expires_at TEXT,
		max_views INTEGER,
		views INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS paste_passwords (
		paste_id TEXT PRIMARY KEY REFERENCES pastes(id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_storage ON files(storage_config_id, storage_path);`,

	// app-v4: settings and tasks
	`CREATE TABLE IF NOT EXISTS system_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		user_type TEXT NOT NULL,
		user_id TEXT,
		payload TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cron TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS scheduled_job_runs (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES scheduled_jobs(id),
		status TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,

	// app-v5: fs metadata, upload sessions and the derived search index
	`CREATE TABLE IF NOT EXISTS fs_meta (
		path TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		size INTEGER,
		etag TEXT,
		modified_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS upload_sessions (
		id TEXT PRIMARY KEY,
		storage_config_id TEXT NOT NULL REFERENCES storage_configs(id),
		storage_mount_id TEXT REFERENCES storage_mounts(id),
		storage_path TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fs_search_entries (
		id TEXT PRIMARY KEY,
		mount_id TEXT NOT NULL,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		size INTEGER,
		updated_at TEXT
	);
	CREATE TABLE IF NOT EXISTS fs_search_state (
		mount_id TEXT PRIMARY KEY,
		ready INTEGER NOT NULL DEFAULT 0,
		indexed_at TEXT
	);
	CREATE TABLE IF NOT EXISTS fs_search_dirty (
		mount_id TEXT NOT NULL,
		path TEXT NOT NULL,
		marked_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fs_search_fts (
		entry_id TEXT NOT NULL,
		content TEXT
	);`,

	// app-v6: computed-usage snapshots
	`CREATE TABLE IF NOT EXISTS metrics_cache (
		scope TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		metric_key TEXT NOT NULL,
		value_num REAL,
		value_text TEXT,
		value_json_text TEXT,
		snapshot_at_ms INTEGER NOT NULL,
		PRIMARY KEY (scope, scope_id, metric_key)
	);`,
}

const createMigrationTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate applies all pending migrations and records them as app-vNN rows.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createMigrationTable); err != nil {
		return err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	for i, ddl := range migrations {
		version := fmt.Sprintf("app-v%d", i+1)
		if applied[version] {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply %s: %w", version, err)
		}
		if _, err = tx.ExecContext(ctx,
			db.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
			version, timeutil.FormatISO(time.Now())); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			return err
		}
		klog.Infof("applied migration %s", version)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sqlx.DB) (map[string]bool, error) {
	var versions []string
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// MaxSchemaVersion extracts the highest NN from the applied app-vNN rows;
// backups carry it as schema_version.
func MaxSchemaVersion(versions []string) *int {
	var max *int
	for _, v := range versions {
		if !strings.HasPrefix(v, "app-v") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(v, "app-v"))
		if err != nil {
			continue
		}
		if max == nil || n > *max {
			max = &n
		}
	}
	return max
}
