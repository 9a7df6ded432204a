/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/scheduler"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

func (h *Handler) NextTick(c *gin.Context) {
	handle(c, h.nextTick)
}

func (h *Handler) UpsertTick(c *gin.Context) {
	handle(c, h.upsertTick)
}

// nextTick predicts when the scheduler fires next, folding in the persisted
// tick ledger when one exists.
func (h *Handler) nextTick(c *gin.Context) (interface{}, error) {
	input := &scheduler.NextTickInput{
		ActiveCron: c.Query("cron"),
		NowIso:     c.DefaultQuery("now", timeutil.FormatISO(time.Now())),
	}
	state, err := h.ticks.Load(c.Request.Context())
	if err != nil {
		return nil, err
	}
	if state != nil {
		input.LastTickMs = state.LastMs
	}
	return scheduler.ComputeNextTick(input), nil
}

type upsertTickBody struct {
	LastMs   int64   `json:"lastMs"`
	LastCron *string `json:"lastCron,omitempty"`
}

func (h *Handler) upsertTick(c *gin.Context) (interface{}, error) {
	req := &upsertTickBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	if err := h.ticks.Upsert(c.Request.Context(), req.LastMs, req.LastCron); err != nil {
		return nil, err
	}
	return gin.H{"lastMs": req.LastMs}, nil
}
