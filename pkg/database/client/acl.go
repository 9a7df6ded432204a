/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// SelectAllowedConfigIds returns the storage-config allow-set for a subject.
// An empty result means the subject carries no ACL restriction.
func (c *Client) SelectAllowedConfigIds(ctx context.Context, subject string) ([]string, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT storage_config_id FROM %s WHERE subject = ?`, database.TStorageACL))
	var ids []string
	if err = db.SelectContext(ctx, &ids, cmd, subject); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return ids, nil
}

func (c *Client) DeleteACLByConfig(ctx context.Context, storageConfigId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`DELETE FROM %s WHERE storage_config_id = ?`, database.TStorageACL))
	if _, err = db.ExecContext(ctx, cmd, storageConfigId); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
