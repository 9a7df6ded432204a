/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

const (
	apiRootPath = "/api/v1"

	paramId   = "id"
	paramSlug = "slug"
	paramType = "type"
)

// InitHttpHandlers builds the gin engine: logging, recovery, a JSON 404,
// and the route tree.
func InitHttpHandlers(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(Logger(), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})
	InitRouters(engine, h)
	return engine
}

func InitRouters(e *gin.Engine, h *Handler) {
	group := e.Group(apiRootPath, h.Authenticate())
	{
		group.GET("storage-types", h.ListStorageTypes)
		group.GET("storage-types/:"+paramType, h.GetStorageType)

		group.GET("storage-configs", h.ListStorageConfigs)
		group.GET("storage-configs/:"+paramId, h.GetStorageConfig)

		group.POST("shares/uploads", RequireWrite(), h.UploadDirect)
		group.POST("shares/uploads/form", RequireWrite(), h.UploadForm)
		group.POST("shares/presign", RequireWrite(), h.PresignInit)
		group.POST("shares/presign/commit", RequireWrite(), h.PresignCommit)
		group.POST("shares/from-fs", RequireWrite(), h.CreateShareFromFs)
		group.POST("shares/validate-url", h.ValidateUrl)
		group.GET("shares/proxy", h.ProxyUrl)

		group.POST("pastes", RequireWrite(), h.CreatePaste)
	}

	// Share links resolve without credentials; the gates live on the record.
	public := e.Group(apiRootPath + "/public")
	{
		public.GET("shares/:"+paramSlug, h.AccessFileShare)
		public.GET("pastes/:"+paramSlug, h.AccessPasteShare)
	}

	admin := e.Group(apiRootPath+"/admin", h.Authenticate(), AdminOnly())
	{
		admin.POST("storage-configs", h.CreateStorageConfig)
		admin.PATCH("storage-configs/:"+paramId, h.UpdateStorageConfig)
		admin.DELETE("storage-configs/:"+paramId, h.DeleteStorageConfig)
		admin.POST("storage-configs/:"+paramId+"/default", h.SetDefaultStorageConfig)
		admin.GET("storage-configs/:"+paramId+"/reveal", h.RevealStorageConfig)
		admin.POST("storage-configs/:"+paramId+"/test", h.TestStorageConfig)
		admin.GET("storage-configs/usage", h.StorageUsageReport)

		admin.POST("backups", h.CreateBackup)
		admin.POST("backups/preview", h.PreviewRestore)
		admin.POST("backups/restore", h.RestoreBackup)

		admin.GET("scheduler/next-tick", h.NextTick)
		admin.POST("scheduler/ticks", h.UpsertTick)
	}
}
