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

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

var (
	insertFileFormat = `INSERT INTO ` + database.TFile + ` (%s) VALUES (%s)`
	updateFileCmd    = fmt.Sprintf(`UPDATE %s
		SET filename = :filename,
		    storage_config_id = :storage_config_id,
		    storage_path = :storage_path,
		    file_path = :file_path,
		    mimetype = :mimetype,
		    size = :size,
		    etag = :etag,
		    remark = :remark,
		    use_proxy = :use_proxy,
		    expires_at = :expires_at,
		    max_views = :max_views,
		    views = :views,
		    updated_at = :updated_at
		WHERE id = :id`, database.TFile)
	insertPasteFormat = `INSERT INTO ` + database.TPaste + ` (%s) VALUES (%s)`
)

func (c *Client) InsertFile(ctx context.Context, file *FileRecord) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, genInsertCommand(*file, insertFileFormat, ""), file); err != nil {
		klog.ErrorS(err, "failed to insert file record", "slug", file.Slug)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) UpdateFile(ctx context.Context, file *FileRecord) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	file.UpdatedAt = timeutil.FormatISO(time.Now())
	if _, err = db.NamedExecContext(ctx, updateFileCmd, file); err != nil {
		klog.ErrorS(err, "failed to update file record", "id", file.Id)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) GetFileBySlug(ctx context.Context, slug string) (*FileRecord, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(`SELECT * FROM %s WHERE slug = ? LIMIT 1`, database.TFile))
	file := &FileRecord{}
	if err = db.GetContext(ctx, file, cmd, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("file share", slug)
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return file, nil
}

// GetFileByStorageKey finds a prior share at the same planned key, which the
// quota guard uses to credit same-key overwrites.
func (c *Client) GetFileByStorageKey(ctx context.Context, storageConfigId, storagePath string) (*FileRecord, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT * FROM %s WHERE storage_config_id = ? AND storage_path = ? LIMIT 1`, database.TFile))
	file := &FileRecord{}
	if err = db.GetContext(ctx, file, cmd, storageConfigId, storagePath); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return file, nil
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, database.TFile))
	if _, err = db.ExecContext(ctx, cmd, id); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) IncrementFileViews(ctx context.Context, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(`UPDATE %s SET views = views + 1 WHERE id = ?`, database.TFile))
	if _, err = db.ExecContext(ctx, cmd, id); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) UpsertFilePassword(ctx context.Context, fileId, passwordHash string) error {
	return c.upsertPassword(ctx, database.TFilePassword, "file_id", fileId, passwordHash)
}

func (c *Client) GetFilePassword(ctx context.Context, fileId string) (string, error) {
	db, err := c.getDB()
	if err != nil {
		return "", err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT password_hash FROM %s WHERE file_id = ? LIMIT 1`, database.TFilePassword))
	var hash string
	if err = db.GetContext(ctx, &hash, cmd, fileId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", commonerrors.NewInternalError(err.Error())
	}
	return hash, nil
}

func (c *Client) InsertPaste(ctx context.Context, paste *PasteRecord) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, genInsertCommand(*paste, insertPasteFormat, ""), paste); err != nil {
		klog.ErrorS(err, "failed to insert paste record", "slug", paste.Slug)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) GetPasteBySlug(ctx context.Context, slug string) (*PasteRecord, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(`SELECT * FROM %s WHERE slug = ? LIMIT 1`, database.TPaste))
	paste := &PasteRecord{}
	if err = db.GetContext(ctx, paste, cmd, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("paste share", slug)
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return paste, nil
}

func (c *Client) IncrementPasteViews(ctx context.Context, id string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(`UPDATE %s SET views = views + 1 WHERE id = ?`, database.TPaste))
	if _, err = db.ExecContext(ctx, cmd, id); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

func (c *Client) UpsertPastePassword(ctx context.Context, pasteId, passwordHash string) error {
	return c.upsertPassword(ctx, database.TPastePassword, "paste_id", pasteId, passwordHash)
}

func (c *Client) GetPastePassword(ctx context.Context, pasteId string) (string, error) {
	db, err := c.getDB()
	if err != nil {
		return "", err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT password_hash FROM %s WHERE paste_id = ? LIMIT 1`, database.TPastePassword))
	var hash string
	if err = db.GetContext(ctx, &hash, cmd, pasteId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", commonerrors.NewInternalError(err.Error())
	}
	return hash, nil
}

func (c *Client) upsertPassword(ctx context.Context, table, idColumn, id, passwordHash string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := timeutil.FormatISO(time.Now())
	update := db.Rebind(fmt.Sprintf(
		`UPDATE %s SET password_hash = ?, updated_at = ? WHERE %s = ?`, table, idColumn))
	result, err := db.ExecContext(ctx, update, passwordHash, now, id)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		return nil
	}
	insert := db.Rebind(fmt.Sprintf(
		`INSERT INTO %s (%s, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		table, idColumn))
	if _, err = db.ExecContext(ctx, insert, id, passwordHash, now, now); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
