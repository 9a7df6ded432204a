/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

type Client struct {
	db             *sqlx.DB
	dialect        database.Dialect
	RequestTimeout time.Duration
}

func NewClient(db *sqlx.DB, dialect database.Dialect) *Client {
	return &Client{db: db, dialect: dialect}
}

func (c *Client) Dialect() database.Dialect {
	return c.dialect
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Close() {
	if err := c.db.Close(); err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

func (c *Client) getDB() (*sqlx.DB, error) {
	if c == nil || c.db == nil {
		return nil, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// genInsertCommand generates a named-exec insert using the struct's db tags.
// Fields tagged with ignoreTag are skipped.
func genInsertCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == ignoreTag || tag == "" {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	return fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
}
