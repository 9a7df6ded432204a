/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/drivers"
	"github.com/stashbin/stashbin/pkg/storageconfig"
)

type storageTypeView struct {
	Type         string                `json:"type"`
	DisplayName  string                `json:"display_name"`
	Capabilities drivers.Capabilities  `json:"capabilities"`
	Schema       *drivers.ConfigSchema `json:"schema"`
}

func (h *Handler) ListStorageTypes(c *gin.Context) {
	handle(c, h.listStorageTypes)
}

func (h *Handler) GetStorageType(c *gin.Context) {
	handle(c, h.getStorageType)
}

func (h *Handler) ListStorageConfigs(c *gin.Context) {
	handle(c, h.listStorageConfigs)
}

func (h *Handler) GetStorageConfig(c *gin.Context) {
	handle(c, h.getStorageConfig)
}

func (h *Handler) CreateStorageConfig(c *gin.Context) {
	handle(c, h.createStorageConfig)
}

func (h *Handler) UpdateStorageConfig(c *gin.Context) {
	handle(c, h.updateStorageConfig)
}

func (h *Handler) DeleteStorageConfig(c *gin.Context) {
	handle(c, h.deleteStorageConfig)
}

func (h *Handler) SetDefaultStorageConfig(c *gin.Context) {
	handle(c, h.setDefaultStorageConfig)
}

func (h *Handler) RevealStorageConfig(c *gin.Context) {
	handle(c, h.revealStorageConfig)
}

func (h *Handler) TestStorageConfig(c *gin.Context) {
	handle(c, h.testStorageConfig)
}

func (h *Handler) StorageUsageReport(c *gin.Context) {
	handle(c, h.storageUsageReport)
}

func (h *Handler) listStorageTypes(*gin.Context) (interface{}, error) {
	views := make([]storageTypeView, 0)
	for _, tag := range h.registry.Types() {
		driver, err := h.registry.Get(tag)
		if err != nil {
			return nil, err
		}
		views = append(views, cvtToStorageTypeView(driver))
	}
	return views, nil
}

func (h *Handler) getStorageType(c *gin.Context) (interface{}, error) {
	tag := strings.TrimSpace(c.Param(paramType))
	driver, err := h.registry.Get(tag)
	if err != nil {
		return nil, err
	}
	return cvtToStorageTypeView(driver), nil
}

func (h *Handler) listStorageConfigs(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	if c.GetString(CtxAdminId) != "" {
		return h.configs.List(ctx)
	}
	return h.configs.ListPublic(ctx)
}

func (h *Handler) getStorageConfig(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	id := c.Param(paramId)
	if c.GetString(CtxAdminId) != "" {
		return h.configs.Get(ctx, id)
	}
	return h.configs.GetPublic(ctx, id)
}

func (h *Handler) createStorageConfig(c *gin.Context) (interface{}, error) {
	req := &storageconfig.CreateRequest{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	return h.configs.Create(c.Request.Context(), c.GetString(CtxAdminId), req)
}

func (h *Handler) updateStorageConfig(c *gin.Context) (interface{}, error) {
	req := &storageconfig.UpdateRequest{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	return h.configs.Update(c.Request.Context(), c.Param(paramId), req)
}

func (h *Handler) deleteStorageConfig(c *gin.Context) (interface{}, error) {
	if err := h.configs.Delete(c.Request.Context(), c.Param(paramId)); err != nil {
		return nil, err
	}
	return gin.H{"deleted": c.Param(paramId)}, nil
}

func (h *Handler) setDefaultStorageConfig(c *gin.Context) (interface{}, error) {
	err := h.configs.SetDefault(c.Request.Context(), c.GetString(CtxAdminId), c.Param(paramId))
	if err != nil {
		return nil, err
	}
	return gin.H{"default": c.Param(paramId)}, nil
}

func (h *Handler) revealStorageConfig(c *gin.Context) (interface{}, error) {
	mode := c.DefaultQuery("mode", storageconfig.RevealModeMasked)
	return h.configs.Reveal(c.Request.Context(), c.Param(paramId), mode)
}

func (h *Handler) testStorageConfig(c *gin.Context) (interface{}, error) {
	return h.configs.TestConnection(c.Request.Context(), c.Param(paramId),
		c.GetHeader("Origin"))
}

func (h *Handler) storageUsageReport(c *gin.Context) (interface{}, error) {
	return h.quota.UsageReport(c.Request.Context())
}

func cvtToStorageTypeView(driver drivers.Driver) storageTypeView {
	return storageTypeView{
		Type:         driver.Type(),
		DisplayName:  driver.DisplayName(),
		Capabilities: driver.Capabilities(),
		Schema:       driver.Schema(),
	}
}
