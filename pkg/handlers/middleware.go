/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/share"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

// Context keys set by the auth middleware.
const (
	CtxAdminId  = "adminId"
	CtxApiKeyId = "apiKeyId"
	CtxCanWrite = "canWrite"

	headerApiKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.InfoS("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"errors", c.Errors.String())
	}
}

// Authenticate resolves the caller to an admin or an api key. Every route
// behind it carries one of the two identities.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if auth := c.GetHeader(headerAuth); strings.HasPrefix(auth, bearerPrefix) {
			admin, err := h.dbClient.GetAdminByToken(ctx, strings.TrimPrefix(auth, bearerPrefix))
			if err != nil {
				AbortWithApiError(c, err)
				return
			}
			c.Set(CtxAdminId, admin.Id)
			return
		}

		if key := c.GetHeader(headerApiKey); key != "" {
			apiKey, err := h.dbClient.GetApiKey(ctx, key)
			if err != nil {
				AbortWithApiError(c, err)
				return
			}
			if apiKey.ExpiresAt.Valid {
				expires, perr := timeutil.ParseISO(apiKey.ExpiresAt.String)
				if perr != nil || !expires.After(time.Now()) {
					AbortWithApiError(c, commonerrors.NewUnauthorized("api key is expired"))
					return
				}
			}
			c.Set(CtxApiKeyId, apiKey.Id)
			c.Set(CtxCanWrite, apiKey.CanWrite == 1)
			return
		}

		AbortWithApiError(c, commonerrors.NewUnauthorized("missing credentials"))
	}
}

// AdminOnly guards the administrative surface.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxAdminId) == "" {
			AbortWithApiError(c, commonerrors.NewForbidden("admin access required"))
		}
	}
}

// RequireWrite rejects read-only api keys on mutating routes.
func RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxAdminId) != "" {
			return
		}
		if !c.GetBool(CtxCanWrite) {
			AbortWithApiError(c, commonerrors.NewForbidden("api key has no write access"))
		}
	}
}

func subjectFromContext(c *gin.Context) share.Subject {
	return share.Subject{
		AdminId:  c.GetString(CtxAdminId),
		ApiKeyId: c.GetString(CtxApiKeyId),
	}
}
