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

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

var (
	insertStorageConfigFormat = `INSERT INTO ` + database.TStorageConfig + ` (%s) VALUES (%s)`
	updateStorageConfigCmd    = fmt.Sprintf(`UPDATE %s
		SET name = :name,
		    storage_type = :storage_type,
		    is_public = :is_public,
		    is_default = :is_default,
		    remark = :remark,
		    url_proxy = :url_proxy,
		    status = :status,
		    config_json = :config_json,
		    total_storage_bytes = :total_storage_bytes,
		    last_used_at = :last_used_at,
		    updated_at = :updated_at
		WHERE id = :id`, database.TStorageConfig)
)

func (c *Client) InsertStorageConfig(ctx context.Context, cfg *StorageConfig) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, genInsertCommand(*cfg, insertStorageConfigFormat, ""), cfg); err != nil {
		klog.ErrorS(err, "failed to insert storage config", "id", cfg.Id)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) UpdateStorageConfig(ctx context.Context, cfg *StorageConfig) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cfg.UpdatedAt = timeutil.FormatISO(time.Now())
	if _, err = db.NamedExecContext(ctx, updateStorageConfigCmd, cfg); err != nil {
		klog.ErrorS(err, "failed to update storage config", "id", cfg.Id)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) GetStorageConfig(ctx context.Context, id string) (*StorageConfig, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(`SELECT * FROM %s WHERE id = ? LIMIT 1`, database.TStorageConfig))
	cfg := &StorageConfig{}
	if err = db.GetContext(ctx, cfg, cmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("storage config", id)
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return cfg, nil
}

func (c *Client) SelectStorageConfigs(ctx context.Context, query sqrl.Sqlizer, orderBy []string) ([]*StorageConfig, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	builder := sqrl.Select("*").From(database.TStorageConfig)
	if query != nil {
		builder = builder.Where(query)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}
	cmd, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var configs []*StorageConfig
	if err = db.SelectContext(ctx, &configs, db.Rebind(cmd), args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return configs, nil
}

func (c *Client) DeleteStorageConfig(ctx context.Context, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, database.TStorageConfig))
	if _, err = db.ExecContext(ctx, cmd, id); err != nil {
		klog.ErrorS(err, "failed to delete storage config", "id", id)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

// SetDefaultStorageConfig clears every sibling default and marks the target
// in a single transaction.
func (c *Client) SetDefaultStorageConfig(ctx context.Context, adminId, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	now := timeutil.FormatISO(time.Now())
	clearCmd := tx.Rebind(fmt.Sprintf(
		`UPDATE %s SET is_default = 0, updated_at = ? WHERE admin_id = ? AND is_default = 1`,
		database.TStorageConfig))
	if _, err = tx.ExecContext(ctx, clearCmd, now, adminId); err != nil {
		_ = tx.Rollback()
		return commonerrors.NewInternalError(err.Error())
	}
	setCmd := tx.Rebind(fmt.Sprintf(
		`UPDATE %s SET is_default = 1, updated_at = ? WHERE id = ?`, database.TStorageConfig))
	result, err := tx.ExecContext(ctx, setCmd, now, id)
	if err != nil {
		_ = tx.Rollback()
		return commonerrors.NewInternalError(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		_ = tx.Rollback()
		return commonerrors.NewNotFound("storage config", id)
	}
	if err = tx.Commit(); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) TouchStorageConfigUsed(ctx context.Context, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(`UPDATE %s SET last_used_at = ? WHERE id = ?`, database.TStorageConfig))
	if _, err = db.ExecContext(ctx, cmd, timeutil.FormatISO(time.Now()), id); err != nil {
		klog.ErrorS(err, "failed to touch storage config", "id", id)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
