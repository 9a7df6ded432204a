/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

func (c *Client) GetSystemSetting(ctx context.Context, key string) (string, error) {
	db, err := c.getDB()
	if err != nil {
		return "", err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT value FROM %s WHERE key = ? LIMIT 1`, database.TSystemSetting))
	var value string
	if err = db.GetContext(ctx, &value, cmd, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", commonerrors.NewInternalError(err.Error())
	}
	return value, nil
}

func (c *Client) UpsertSystemSetting(ctx context.Context, key, value string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := timeutil.FormatISO(time.Now())
	update := db.Rebind(fmt.Sprintf(
		`UPDATE %s SET value = ?, updated_at = ? WHERE key = ?`, database.TSystemSetting))
	result, err := db.ExecContext(ctx, update, value, now, key)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		return nil
	}
	insert := db.Rebind(fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)`, database.TSystemSetting))
	if _, err = db.ExecContext(ctx, insert, key, value, now); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) GetMetricsCacheEntry(ctx context.Context, scope, scopeId, metricKey string) (*MetricsCacheEntry, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT * FROM %s WHERE scope = ? AND scope_id = ? AND metric_key = ? LIMIT 1`,
		database.TMetricsCache))
	entry := &MetricsCacheEntry{}
	if err = db.GetContext(ctx, entry, cmd, scope, scopeId, metricKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return entry, nil
}

// UpsertMetricsCacheEntry writes a computed-usage snapshot. The scheduler's
// usage job is the normal writer; restores leave stale snapshots in place.
func (c *Client) UpsertMetricsCacheEntry(ctx context.Context, entry *MetricsCacheEntry) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	update := db.Rebind(fmt.Sprintf(
		`UPDATE %s SET value_num = ?, value_text = ?, value_json_text = ?, snapshot_at_ms = ?
		 WHERE scope = ? AND scope_id = ? AND metric_key = ?`, database.TMetricsCache))
	result, err := db.ExecContext(ctx, update,
		entry.ValueNum, entry.ValueText, entry.ValueJsonText, entry.SnapshotAtMs,
		entry.Scope, entry.ScopeId, entry.MetricKey)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		return nil
	}
	insert := db.Rebind(fmt.Sprintf(
		`INSERT INTO %s (scope, scope_id, metric_key, value_num, value_text, value_json_text, snapshot_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, database.TMetricsCache))
	if _, err = db.ExecContext(ctx, insert,
		entry.Scope, entry.ScopeId, entry.MetricKey,
		entry.ValueNum, entry.ValueText, entry.ValueJsonText, entry.SnapshotAtMs); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
