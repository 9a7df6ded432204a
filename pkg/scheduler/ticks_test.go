/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewLedger(client.NewClient(db, database.SQLiteDialect))
}

func TestLedgerRoundTrip(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	state, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state, "no tick recorded yet")

	cron := "*/5 * * * *"
	require.NoError(t, ledger.Upsert(ctx, 1735689600000, &cron))

	state, err = ledger.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(1735689600000), state.LastMs)
	require.NotNil(t, state.LastCron)
	assert.Equal(t, cron, *state.LastCron)

	// null cron is representable
	require.NoError(t, ledger.Upsert(ctx, 1735689660000, nil))
	state, err = ledger.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.LastCron)
}

func TestLedgerRejectsNonPositiveTick(t *testing.T) {
	ledger := newTestLedger(t)
	assert.Error(t, ledger.Upsert(context.Background(), 0, nil))
	assert.Error(t, ledger.Upsert(context.Background(), -5, nil))
}

func TestComputeNextTickWithLedger(t *testing.T) {
	// now is 12:02; a */5 cron fires next at 12:05, every 300s
	out := ComputeNextTick(&NextTickInput{
		ActiveCron: "*/5 * * * *",
		NowIso:     "2025-06-01T12:02:00Z",
		LastTickMs: 1748779200000, // 2025-06-01T12:00:00Z
	})
	assert.Empty(t, out.CronParseError)
	assert.Equal(t, "2025-06-01T12:05:00Z", out.ScheduledAt)
	assert.Equal(t, int64(300), out.IntervalSec)
	assert.Equal(t, "2025-06-01T12:05:00Z", out.EstimatedAt)
	assert.Equal(t, out.EstimatedAt, out.At)
}

func TestComputeNextTickWithoutLedger(t *testing.T) {
	out := ComputeNextTick(&NextTickInput{
		ActiveCron: "0 3 * * *",
		NowIso:     "2025-06-01T12:00:00Z",
	})
	assert.Empty(t, out.CronParseError)
	assert.Equal(t, "2025-06-02T03:00:00Z", out.ScheduledAt)
	assert.Equal(t, int64(86400), out.IntervalSec)
	assert.Empty(t, out.EstimatedAt)
	assert.Equal(t, out.ScheduledAt, out.At)
}

func TestComputeNextTickNeverThrows(t *testing.T) {
	out := ComputeNextTick(&NextTickInput{ActiveCron: "not a cron", NowIso: "2025-06-01T12:00:00Z"})
	assert.NotEmpty(t, out.CronParseError)
	assert.Empty(t, out.At)

	out = ComputeNextTick(&NextTickInput{ActiveCron: "*/5 * * * *", NowIso: "yesterday"})
	assert.NotEmpty(t, out.CronParseError)
}
