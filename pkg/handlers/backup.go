/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/backup"
	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

func (h *Handler) CreateBackup(c *gin.Context) {
	handle(c, h.createBackup)
}

func (h *Handler) PreviewRestore(c *gin.Context) {
	handle(c, h.previewRestore)
}

func (h *Handler) RestoreBackup(c *gin.Context) {
	handle(c, h.restoreBackup)
}

func (h *Handler) createBackup(c *gin.Context) (interface{}, error) {
	req := &backup.CreateRequest{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	return h.backups.CreateBackup(c.Request.Context(), req)
}

type restoreBody struct {
	Mode               string `json:"mode"`
	SkipIntegrityCheck bool   `json:"skip_integrity_check,omitempty"`
	PreserveTimestamps bool   `json:"preserve_timestamps,omitempty"`
	// Backup is kept raw here; numbers must survive as written, so it is
	// parsed separately with numeric fidelity.
	Backup json.RawMessage `json:"backup"`
}

func (h *Handler) previewRestore(c *gin.Context) (interface{}, error) {
	req, parsed, err := h.parseRestoreBody(c)
	if err != nil {
		return nil, err
	}
	return h.backups.PreviewRestore(c.Request.Context(), parsed,
		database.InsertMode(req.Mode), req.SkipIntegrityCheck)
}

func (h *Handler) restoreBackup(c *gin.Context) (interface{}, error) {
	req, parsed, err := h.parseRestoreBody(c)
	if err != nil {
		return nil, err
	}
	return h.backups.Restore(c.Request.Context(), &backup.RestoreRequest{
		Backup:             parsed,
		Mode:               database.InsertMode(req.Mode),
		CurrentAdminId:     c.GetString(CtxAdminId),
		SkipIntegrityCheck: req.SkipIntegrityCheck,
		PreserveTimestamps: req.PreserveTimestamps,
	})
}

func (h *Handler) parseRestoreBody(c *gin.Context) (*restoreBody, *backup.Backup, error) {
	req := &restoreBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, nil, err
	}
	if len(req.Backup) == 0 {
		return nil, nil, commonerrors.NewBadRequest("backup document is required")
	}
	parsed, err := backup.ParseBackup([]byte(req.Backup))
	if err != nil {
		return nil, nil, err
	}
	return req, parsed, nil
}
