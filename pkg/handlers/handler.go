/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stashbin/stashbin/pkg/backup"
	"github.com/stashbin/stashbin/pkg/database/client"
	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/quota"
	"github.com/stashbin/stashbin/pkg/scheduler"
	"github.com/stashbin/stashbin/pkg/share"
	"github.com/stashbin/stashbin/pkg/storageconfig"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
)

const (
	jsonContentType = "application/json"

	// DefaultMaxRequestBodyBytes bounds JSON request bodies; upload streams
	// are bounded by the share pipeline instead.
	DefaultMaxRequestBodyBytes = int64(64 * 1024 * 1024)
)

type Handler struct {
	dbClient client.Interface
	registry *drivers.Registry
	configs  *storageconfig.Service
	shares   *share.Service
	backups  *backup.Service
	quota    *quota.Service
	ticks    *scheduler.Ledger
}

func NewHandler(dbClient client.Interface, registry *drivers.Registry,
	configs *storageconfig.Service, shares *share.Service,
	backups *backup.Service, quotaGuard *quota.Service) *Handler {
	return &Handler{
		dbClient: dbClient,
		registry: registry,
		configs:  configs,
		shares:   shares,
		backups:  backups,
		quota:    quotaGuard,
		ticks:    scheduler.NewLedger(dbClient),
	}
}

type handleFunc func(c *gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	rsp, err := fn(c)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	// If a status was previously set, use that status in the response.
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch rspType := rsp.(type) {
	case []byte:
		c.Data(code, jsonContentType, rspType)
	case string:
		c.Data(code, jsonContentType, []byte(rspType))
	default:
		c.JSON(code, rspType)
	}
}

func readBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{R: req.Body, N: DefaultMaxRequestBodyBytes + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

func getBodyFromRequest(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutil.Unmarshal(body, bodyStruct); err != nil {
		return body, commonerrors.NewBadRequest(err.Error())
	}
	return body, nil
}
