/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package scheduler keeps a persistent ledger of scheduler ticks and
// estimates the next one. The ledger is advisory: it must never be the
// reason scheduling stops working.
package scheduler

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database/client"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

// TickStateKey is the system_settings row holding the ledger.
const TickStateKey = "scheduler_tick_state"

type TickState struct {
	LastMs   int64   `json:"lastMs"`
	LastCron *string `json:"lastCron"`
}

type Ledger struct {
	dbClient client.SettingInterface
}

func NewLedger(dbClient client.SettingInterface) *Ledger {
	return &Ledger{dbClient: dbClient}
}

// Upsert records a tick. Write failures are logged and swallowed; a broken
// ledger must not break the scheduler that feeds it.
func (l *Ledger) Upsert(ctx context.Context, lastMs int64, lastCron *string) error {
	if lastMs <= 0 {
		return commonerrors.NewBadRequest("lastMs must be positive")
	}
	state := &TickState{LastMs: lastMs, LastCron: lastCron}
	if err := l.dbClient.UpsertSystemSetting(ctx, TickStateKey,
		string(jsonutil.MarshalSilently(state))); err != nil {
		klog.ErrorS(err, "failed to persist scheduler tick state", "lastMs", lastMs)
	}
	return nil
}

// Load returns the stored tick state, or nil when none was recorded yet.
func (l *Ledger) Load(ctx context.Context) (*TickState, error) {
	value, err := l.dbClient.GetSystemSetting(ctx, TickStateKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	state := &TickState{}
	if err := jsonutil.Unmarshal([]byte(value), state); err != nil {
		klog.ErrorS(err, "scheduler tick state is corrupt; ignoring it")
		return nil, nil
	}
	return state, nil
}

type NextTickInput struct {
	ActiveCron string `json:"activeCron"`
	NowIso     string `json:"nowIso"`
	LastTickMs int64  `json:"lastTickMs,omitempty"`
}

type NextTick struct {
	// At is the best estimate: estimatedAt when a last tick is known,
	// otherwise the cron's own next fire.
	At             string `json:"at,omitempty"`
	ScheduledAt    string `json:"scheduledAt,omitempty"`
	EstimatedAt    string `json:"estimatedAt,omitempty"`
	IntervalSec    int64  `json:"intervalSec,omitempty"`
	CronParseError string `json:"cronParseError,omitempty"`
}

// ComputeNextTick predicts the next scheduler fire. Parse or arithmetic
// failures surface as cronParseError; the function never fails outright.
func ComputeNextTick(input *NextTickInput) *NextTick {
	out := &NextTick{}

	schedule, err := timeutil.ParseCronStandard(input.ActiveCron)
	if err != nil {
		out.CronParseError = err.Error()
		return out
	}
	now, err := timeutil.ParseISO(input.NowIso)
	if err != nil {
		out.CronParseError = err.Error()
		return out
	}

	next, intervalSec := timeutil.NextInterval(schedule, now)
	out.ScheduledAt = timeutil.FormatISO(next)
	out.IntervalSec = intervalSec

	if input.LastTickMs > 0 && intervalSec > 0 {
		estimated := timeutil.CvtMilliSecToTime(input.LastTickMs + intervalSec*1000)
		out.EstimatedAt = timeutil.FormatISO(estimated)
		out.At = out.EstimatedAt
	} else {
		out.At = out.ScheduledAt
	}
	return out
}
