/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package quota

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

func newTestService(t *testing.T) (*Service, client.Interface) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	dbClient := client.NewClient(db, database.SQLiteDialect)
	return NewService(dbClient), dbClient
}

func insertConfig(t *testing.T, dbClient client.Interface, id string, limit *int64) {
	t.Helper()
	cfg := &client.StorageConfig{
		Id:                id,
		Name:              "cfg " + id,
		StorageType:       "S3",
		AdminId:           "admin-1",
		Status:            "active",
		ConfigJson:        "{}",
		TotalStorageBytes: client.NullInt64(limit),
		CreatedAt:         "2025-01-01T00:00:00Z",
		UpdatedAt:         "2025-01-01T00:00:00Z",
	}
	require.NoError(t, dbClient.InsertStorageConfig(context.Background(), cfg))
}

func writeUsage(t *testing.T, dbClient client.Interface, configId string, used int64) {
	t.Helper()
	require.NoError(t, dbClient.UpsertMetricsCacheEntry(context.Background(), &client.MetricsCacheEntry{
		Scope:        MetricsScopeStorageConfig,
		ScopeId:      configId,
		MetricKey:    MetricsKeyComputedUsage,
		ValueNum:     sql.NullFloat64{Float64: float64(used), Valid: true},
		ValueText:    sql.NullString{String: "scan", Valid: true},
		SnapshotAtMs: 1735689600000,
	}))
}

func TestAssertCanConsume(t *testing.T) {
	service, dbClient := newTestService(t)
	ctx := context.Background()
	limit := int64(1000)
	insertConfig(t, dbClient, "cap", &limit)
	writeUsage(t, dbClient, "cap", 900)

	// within the remaining 100 bytes
	assert.NoError(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "cap", IncomingBytes: 100, Context: "share upload",
	}))

	// one byte over
	err := service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "cap", IncomingBytes: 101, Context: "share upload",
	})
	require.Error(t, err)
	assert.True(t, commonerrors.IsQuotaInsufficient(err))
	assert.Contains(t, err.Error(), "share upload")

	// replacing a 200-byte object with 250 bytes is a delta of 50
	assert.NoError(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "cap", IncomingBytes: 250, OldBytes: 200, Context: "share upload",
	}))

	// shrinking never frees headroom: delta clamps at zero and passes
	assert.NoError(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "cap", IncomingBytes: 50, OldBytes: 200, Context: "share upload",
	}))
}

func TestAssertCanConsumeBestEffort(t *testing.T) {
	service, dbClient := newTestService(t)
	ctx := context.Background()

	// unlimited config always admits
	insertConfig(t, dbClient, "unlimited", nil)
	assert.NoError(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "unlimited", IncomingBytes: 1 << 40,
	}))

	// limited config without a snapshot admits too
	limit := int64(10)
	insertConfig(t, dbClient, "no-snapshot", &limit)
	assert.NoError(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "no-snapshot", IncomingBytes: 100,
	}))

	// unknown config is a hard error
	assert.Error(t, service.AssertCanConsume(ctx, &ConsumeRequest{
		StorageConfigId: "missing", IncomingBytes: 1,
	}))
}

func TestOldBytesForShareUpload(t *testing.T) {
	service, dbClient := newTestService(t)
	ctx := context.Background()
	limit := int64(1000)
	insertConfig(t, dbClient, "cfg-1", &limit)

	require.NoError(t, dbClient.InsertFile(ctx, &client.FileRecord{
		Id:              "file-1",
		Slug:            "abc123",
		Filename:        "a.txt",
		StorageConfigId: client.NullString("cfg-1"),
		StoragePath:     client.NullString("shares/a.txt"),
		Size:            321,
		CreatedBy:       "admin-1",
		CreatedAt:       "2025-01-01T00:00:00Z",
		UpdatedAt:       "2025-01-01T00:00:00Z",
	}))

	assert.Equal(t, int64(321), service.OldBytesForShareUpload(ctx, "cfg-1", "shares/a.txt"))
	assert.Zero(t, service.OldBytesForShareUpload(ctx, "cfg-1", "shares/other.txt"))
}

func TestUsageReport(t *testing.T) {
	service, dbClient := newTestService(t)
	ctx := context.Background()

	limit := int64(1000)
	insertConfig(t, dbClient, "with-usage", &limit)
	writeUsage(t, dbClient, "with-usage", 400)
	insertConfig(t, dbClient, "bare", nil)

	report, err := service.UsageReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)

	byId := map[string]*ConfigUsage{}
	for _, entry := range report {
		byId[entry.StorageConfigId] = entry
	}

	withUsage := byId["with-usage"]
	require.NotNil(t, withUsage)
	assert.True(t, withUsage.EnableDiskUsage)
	require.NotNil(t, withUsage.ComputedUsage)
	assert.Equal(t, int64(400), withUsage.ComputedUsage.UsedBytes)
	require.NotNil(t, withUsage.LimitStatus)
	assert.Equal(t, int64(600), withUsage.LimitStatus.RemainingBytes)
	assert.InDelta(t, 40.0, withUsage.LimitStatus.PercentUsed, 0.001)
	assert.False(t, withUsage.LimitStatus.Exceeded)

	bare := byId["bare"]
	require.NotNil(t, bare)
	assert.False(t, bare.EnableDiskUsage)
	assert.Nil(t, bare.ComputedUsage)
	assert.Nil(t, bare.LimitStatus)
}
