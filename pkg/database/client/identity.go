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

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

func (c *Client) GetAdminByToken(ctx context.Context, token string) (*Admin, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT a.* FROM %s a JOIN %s t ON t.admin_id = a.id WHERE t.token = ? LIMIT 1`,
		database.TAdmin, database.TAdminToken))
	admin := &Admin{}
	if err = db.GetContext(ctx, admin, cmd, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewUnauthorized("invalid admin token")
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return admin, nil
}

func (c *Client) GetApiKey(ctx context.Context, key string) (*ApiKey, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := db.Rebind(fmt.Sprintf(
		`SELECT * FROM %s WHERE key = ? LIMIT 1`, database.TApiKey))
	apiKey := &ApiKey{}
	if err = db.GetContext(ctx, apiKey, cmd, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewUnauthorized("invalid api key")
		}
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return apiKey, nil
}

func (c *Client) AppliedSchemaVersions(ctx context.Context) ([]string, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var versions []string
	cmd := fmt.Sprintf(`SELECT version FROM %s`, database.TSchemaMigration)
	if err = db.SelectContext(ctx, &versions, cmd); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return versions, nil
}
