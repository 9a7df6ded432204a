/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package share

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
	"github.com/stashbin/stashbin/pkg/drivers"
	"github.com/stashbin/stashbin/pkg/drivers/all"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/quota"
	"github.com/stashbin/stashbin/pkg/storageconfig"
	"github.com/stashbin/stashbin/pkg/utils/crypto"
)

func newTestService(t *testing.T) (*Service, client.Interface, *storageconfig.Service) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// one connection, or every pooled conn sees its own empty memory db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	cipher, err := crypto.NewCipher("unit-test-secret")
	require.NoError(t, err)

	dbClient := client.NewClient(db, database.SQLiteDialect)
	registry := all.NewRegistry()
	configs := storageconfig.NewService(dbClient, registry, cipher)
	service := NewService(dbClient, registry, configs, quota.NewService(dbClient), &stubHttpClient{})
	return service, dbClient, configs
}

// createLocalConfig provisions an active LOCAL config rooted in a temp dir.
func createLocalConfig(t *testing.T, configs *storageconfig.Service, adminId string) (string, string) {
	t.Helper()
	root := t.TempDir()
	view, err := configs.Create(context.Background(), adminId, &storageconfig.CreateRequest{
		Name:        "disk " + filepath.Base(root),
		StorageType: drivers.TypeLocal,
		Config:      map[string]interface{}{"root_path": root},
	})
	require.NoError(t, err)
	return view.Id, root
}

func adminSubject() Subject  { return Subject{AdminId: "admin-1"} }
func apiKeySubject() Subject { return Subject{ApiKeyId: "key-1"} }

func uploadRequest(configId, body string) *UploadRequest {
	return &UploadRequest{
		Filename:        "notes.txt",
		Size:            int64(len(body)),
		MimeType:        "text/plain",
		Body:            strings.NewReader(body),
		StorageConfigId: configId,
	}
}

func TestUploadDirectStreamCreatesRecord(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	configId, root := createLocalConfig(t, configs, "admin-1")

	req := uploadRequest(configId, "hello stash")
	req.Options = Options{Password: "secret-pw", Remark: "first one", MaxViews: 3, UseProxy: true}
	rec, err := service.UploadDirectStream(ctx, adminSubject(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.Id)
	assert.NotEmpty(t, rec.Slug)
	assert.Equal(t, "notes.txt", rec.Filename)
	assert.Equal(t, "admin-1", rec.CreatedBy)
	assert.Equal(t, int64(len("hello stash")), rec.Size)
	assert.Equal(t, 1, rec.UseProxy)
	require.True(t, rec.StoragePath.Valid)

	data, err := os.ReadFile(filepath.Join(root, rec.StoragePath.String))
	require.NoError(t, err)
	assert.Equal(t, "hello stash", string(data))

	hash, err := dbClient.GetFilePassword(ctx, rec.Id)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret-pw")))

	cfg, err := dbClient.GetStorageConfig(ctx, configId)
	require.NoError(t, err)
	assert.True(t, cfg.LastUsedAt.Valid)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	configId, _ := createLocalConfig(t, configs, "admin-1")
	require.NoError(t, dbClient.UpsertSystemSetting(ctx, SettingMaxUploadSize, "8"))

	_, err := service.UploadDirectStream(ctx, adminSubject(), uploadRequest(configId, "way past eight bytes"))
	require.Error(t, err)
	assert.True(t, commonerrors.IsBadRequest(err))
}

func TestResolveConfigVisibility(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	privateId, _ := createLocalConfig(t, configs, "admin-1")

	// Private config: fine for the admin, forbidden for an api key.
	_, err := service.resolveConfig(ctx, adminSubject(), privateId)
	require.NoError(t, err)
	_, err = service.resolveConfig(ctx, apiKeySubject(), privateId)
	assert.True(t, commonerrors.IsForbidden(err))

	publicId, _ := createLocalConfig(t, configs, "admin-1")
	isPublic := true
	_, err = configs.Update(ctx, publicId, &storageconfig.UpdateRequest{IsPublic: &isPublic})
	require.NoError(t, err)

	// Empty ACL admits every public config.
	cfg, err := service.resolveConfig(ctx, apiKeySubject(), publicId)
	require.NoError(t, err)
	assert.Equal(t, publicId, cfg.Id)

	// A non-empty allow-set that omits the config shuts the api key out.
	otherPublic, _ := createLocalConfig(t, configs, "admin-1")
	_, err = configs.Update(ctx, otherPublic, &storageconfig.UpdateRequest{IsPublic: &isPublic})
	require.NoError(t, err)
	insertACL(t, dbClient, apiKeySubject().ACLSubject(), otherPublic)
	_, err = service.resolveConfig(ctx, apiKeySubject(), publicId)
	assert.True(t, commonerrors.IsForbidden(err))
	cfg, err = service.resolveConfig(ctx, apiKeySubject(), otherPublic)
	require.NoError(t, err)
	assert.Equal(t, otherPublic, cfg.Id)
}

func TestResolveConfigFallbackOrder(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()

	_, err := service.resolveConfig(ctx, adminSubject(), "")
	require.Error(t, err)
	statusErr := &commonerrors.StatusError{}
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, commonerrors.NoUsableStorageConfig, statusErr.Reason)

	firstId, _ := createLocalConfig(t, configs, "admin-1")
	secondId, _ := createLocalConfig(t, configs, "admin-1")
	backdateConfig(t, dbClient, firstId, "2025-01-01T00:00:00Z")

	// No default yet: the oldest usable config wins.
	cfg, err := service.resolveConfig(ctx, adminSubject(), "")
	require.NoError(t, err)
	assert.Equal(t, firstId, cfg.Id)

	require.NoError(t, dbClient.SetDefaultStorageConfig(ctx, "admin-1", secondId))
	cfg, err = service.resolveConfig(ctx, adminSubject(), "")
	require.NoError(t, err)
	assert.Equal(t, secondId, cfg.Id)
}

func TestQuotaGuardBlocksUpload(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	configId, _ := createLocalConfig(t, configs, "admin-1")

	_, err := configs.Update(ctx, configId, &storageconfig.UpdateRequest{
		TotalStorageBytes: json.RawMessage("10"),
	})
	require.NoError(t, err)
	require.NoError(t, dbClient.UpsertMetricsCacheEntry(ctx, usageSnapshot(configId, 8)))

	_, err = service.UploadDirectStream(ctx, adminSubject(), uploadRequest(configId, "0123456789"))
	require.Error(t, err)
	assert.True(t, commonerrors.IsQuotaInsufficient(err))

	_, err = service.UploadDirectStream(ctx, adminSubject(), uploadRequest(configId, "ok"))
	require.NoError(t, err)
}

func TestSlugOverwritePolicy(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	configId, _ := createLocalConfig(t, configs, "admin-1")
	require.NoError(t, dbClient.UpsertSystemSetting(ctx, SettingShareRandomSuffix, "0"))

	first := uploadRequest(configId, "version one")
	first.Options.Slug = "weekly-report"
	rec, err := service.UploadDirectStream(ctx, adminSubject(), first)
	require.NoError(t, err)

	// Same slug without the override flag is a conflict.
	second := uploadRequest(configId, "version two")
	second.Options.Slug = "weekly-report"
	_, err = service.UploadDirectStream(ctx, adminSubject(), second)
	require.Error(t, err)
	statusErr := &commonerrors.StatusError{}
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, commonerrors.SlugConflict, statusErr.Reason)

	third := uploadRequest(configId, "version three")
	third.Options.Slug = "weekly-report"
	third.Options.UpdateIfExists = true
	updated, err := service.UploadDirectStream(ctx, adminSubject(), third)
	require.NoError(t, err)
	assert.Equal(t, rec.Id, updated.Id)
	assert.Equal(t, int64(len("version three")), updated.Size)

	got, err := dbClient.GetFileBySlug(ctx, "weekly-report")
	require.NoError(t, err)
	assert.Equal(t, rec.Id, got.Id)
}

func TestSlugRandomSuffixOnCollision(t *testing.T) {
	service, dbClient, configs := newTestService(t)
	ctx := context.Background()
	configId, _ := createLocalConfig(t, configs, "admin-1")
	require.NoError(t, dbClient.UpsertSystemSetting(ctx, SettingShareRandomSuffix, "1"))

	first := uploadRequest(configId, "version one")
	first.Options.Slug = "weekly-report"
	_, err := service.UploadDirectStream(ctx, adminSubject(), first)
	require.NoError(t, err)

	second := uploadRequest(configId, "version two")
	second.Options.Slug = "weekly-report"
	rec, err := service.UploadDirectStream(ctx, adminSubject(), second)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Slug, "weekly-report-"))
	assert.NotEqual(t, "weekly-report", rec.Slug)
}

func TestPresignCommitCreatesRecord(t *testing.T) {
	service, _, configs := newTestService(t)
	ctx := context.Background()
	configId, _ := createLocalConfig(t, configs, "admin-1")

	rec, err := service.PresignCommit(ctx, adminSubject(), &PresignCommitRequest{
		StorageConfigId: configId,
		Key:             "2025/notes.txt",
		Filename:        "notes.txt",
		Size:            42,
		Etag:            "abc123",
		MimeType:        "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025/notes.txt", rec.StoragePath.String)
	assert.Equal(t, "abc123", rec.Etag.String)
	assert.Equal(t, int64(42), rec.Size)
}

func TestCreateShareFromFs(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := service.CreateShareFromFs(ctx, apiKeySubject(), &FsShareRequest{
		FilePath: "/mnt/team/reports/q3.pdf",
		Filename: "q3.pdf",
		Size:     2048,
		MimeType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "/mnt/team/reports/q3.pdf", rec.FilePath.String)
	assert.False(t, rec.StoragePath.Valid)
	assert.Equal(t, client.ApiKeyCreatorPrefix+"key-1", rec.CreatedBy)

	_, err = service.CreateShareFromFs(ctx, apiKeySubject(), &FsShareRequest{Filename: "q3.pdf"})
	assert.True(t, commonerrors.IsBadRequest(err))
}

func backdateConfig(t *testing.T, dbClient client.Interface, configId, createdAt string) {
	t.Helper()
	raw, ok := dbClient.(*client.Client)
	require.True(t, ok)
	_, err := raw.DB().Exec(
		`UPDATE storage_configs SET created_at = ? WHERE id = ?`, createdAt, configId)
	require.NoError(t, err)
}

func insertACL(t *testing.T, dbClient client.Interface, subject, configId string) {
	t.Helper()
	raw, ok := dbClient.(*client.Client)
	require.True(t, ok)
	_, err := raw.DB().Exec(
		`INSERT INTO principal_storage_acl (id, subject, storage_config_id, created_at, updated_at)
		 VALUES (?, ?, ?, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`,
		subject+"/"+configId, subject, configId)
	require.NoError(t, err)
}

func usageSnapshot(configId string, used float64) *client.MetricsCacheEntry {
	return &client.MetricsCacheEntry{
		Scope:        quota.MetricsScopeStorageConfig,
		ScopeId:      configId,
		MetricKey:    quota.MetricsKeyComputedUsage,
		ValueNum:     sql.NullFloat64{Float64: used, Valid: true},
		SnapshotAtMs: 1756166400000,
	}
}
