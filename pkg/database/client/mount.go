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

func (c *Client) SelectMountsByConfig(ctx context.Context, storageConfigId string) ([]*StorageMount, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT * FROM %s WHERE storage_config_id = ?`, database.TStorageMount))
	var mounts []*StorageMount
	if err = db.SelectContext(ctx, &mounts, cmd, storageConfigId); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return mounts, nil
}

func (c *Client) DeleteMountsByConfig(ctx context.Context, storageConfigId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`DELETE FROM %s WHERE storage_config_id = ?`, database.TStorageMount))
	if _, err = db.ExecContext(ctx, cmd, storageConfigId); err != nil {
		klog.ErrorS(err, "failed to delete mounts", "storageConfigId", storageConfigId)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
