/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
)

func newTestService(t *testing.T) (*Service, client.Interface) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	dbClient := client.NewClient(db, database.SQLiteDialect)
	return NewService(dbClient, database.SQLiteDialect), dbClient
}

func seedAdminAndConfig(t *testing.T, dbClient client.Interface) {
	t.Helper()
	ctx := context.Background()
	db := dbClient.(*client.Client).DB()
	_, err := db.ExecContext(ctx,
		`INSERT INTO admins (id, username, password_hash, created_at, updated_at)
		 VALUES ('admin-1', 'root', 'x', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, dbClient.InsertStorageConfig(ctx, &client.StorageConfig{
		Id:          "cfg-1",
		Name:        "primary",
		StorageType: "S3",
		AdminId:     "admin-1",
		Status:      "active",
		ConfigJson:  `{"bucket_name":"b"}`,
		CreatedAt:   "2025-01-01T00:00:00Z",
		UpdatedAt:   "2025-01-01T00:00:00Z",
	}))
	require.NoError(t, dbClient.InsertPaste(ctx, &client.PasteRecord{
		Id:        "paste-1",
		Slug:      "hello",
		Content:   "hi there",
		CreatedBy: "admin-1",
		CreatedAt: "2025-01-01T00:00:00Z",
		UpdatedAt: "2025-01-01T00:00:00Z",
	}))
}

func TestChecksumStableUnderKeyReordering(t *testing.T) {
	a := map[string][]map[string]interface{}{
		"pastes": {{"id": "1", "slug": "s", "content": "c"}},
	}
	b := map[string][]map[string]interface{}{
		"pastes": {{"content": "c", "slug": "s", "id": "1"}},
	}
	sumA, err := ComputeChecksum(a)
	require.NoError(t, err)
	sumB, err := ComputeChecksum(b)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
	assert.Len(t, sumA, 16)

	b["pastes"][0]["content"] = "changed"
	sumC, err := ComputeChecksum(b)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumC)
}

func TestExpandModules(t *testing.T) {
	final, auto, err := ExpandModules([]string{database.ModuleMountManagement})
	require.NoError(t, err)
	assert.Equal(t, []string{database.ModuleMountManagement, database.ModuleStorageConfig}, final)
	assert.Equal(t, []string{database.ModuleStorageConfig}, auto)

	// explicitly selected dependencies are not re-added
	final, auto, err = ExpandModules([]string{database.ModuleStorageConfig, database.ModuleFileManagement})
	require.NoError(t, err)
	assert.Equal(t, []string{database.ModuleStorageConfig, database.ModuleFileManagement}, final)
	assert.Empty(t, auto)

	_, _, err = ExpandModules([]string{"bogus_module"})
	assert.Error(t, err)

	_, _, err = ExpandModules(nil)
	assert.Error(t, err)
}

func TestSortTablesByDependency(t *testing.T) {
	sorted := SortTablesByDependency([]string{
		database.TStorageACL,
		database.TStorageMount,
		database.TStorageConfig,
		database.TAdmin,
		database.TApiKey,
	})
	pos := map[string]int{}
	for i, table := range sorted {
		pos[table] = i
	}
	assert.Less(t, pos[database.TAdmin], pos[database.TStorageConfig])
	assert.Less(t, pos[database.TStorageConfig], pos[database.TStorageMount])
	assert.Less(t, pos[database.TStorageConfig], pos[database.TStorageACL])
	assert.Less(t, pos[database.TApiKey], pos[database.TStorageACL])

	// a dependency outside the input set is ignored
	sorted = SortTablesByDependency([]string{database.TStorageMount})
	assert.Equal(t, []string{database.TStorageMount}, sorted)
}

func TestCreateBackupFullRoundTrip(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, created.Metadata.Version)
	assert.Equal(t, 3, created.Metadata.TotalRecords)
	assert.Equal(t, 1, created.Metadata.Tables[database.TPaste])
	require.NotNil(t, created.Metadata.SchemaVersion)
	assert.Equal(t, 6, *created.Metadata.SchemaVersion)

	// serialize and parse back; the checksum must survive the round trip
	raw, err := jsonutil.Marshal(created)
	require.NoError(t, err)
	parsed, err := ParseBackup(raw)
	require.NoError(t, err)
	assert.Equal(t, created.Metadata.Checksum, parsed.Metadata.Checksum)
}

func TestCreateBackupModules(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)

	created, err := service.CreateBackup(context.Background(), &CreateRequest{
		BackupType:      BackupTypeModules,
		SelectedModules: []string{database.ModuleMountManagement},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{database.ModuleMountManagement, database.ModuleStorageConfig},
		created.Metadata.IncludedModules)
	assert.Contains(t, created.Data, database.TStorageConfig)
	assert.NotContains(t, created.Data, database.TPaste)

	_, err = service.CreateBackup(context.Background(), &CreateRequest{BackupType: "incremental"})
	assert.Error(t, err)
}

func TestValidateBackup(t *testing.T) {
	assert.Error(t, ValidateBackup(nil))
	assert.Error(t, ValidateBackup(&Backup{Metadata: &Metadata{}}))

	data := map[string][]map[string]interface{}{"pastes": {}}
	checksum, err := ComputeChecksum(data)
	require.NoError(t, err)

	valid := &Backup{
		Metadata: &Metadata{Version: "1.0", Timestamp: "2025-01-01T00:00:00Z", Checksum: checksum},
		Data:     data,
	}
	assert.NoError(t, ValidateBackup(valid))

	valid.Metadata.Checksum = "deadbeefdeadbeef"
	assert.Error(t, ValidateBackup(valid))

	// an absent checksum is rejected, never treated as "skip verification"
	valid.Metadata.Checksum = ""
	assert.Error(t, ValidateBackup(valid))

	valid.Metadata.Checksum = checksum
	valid.Metadata.Timestamp = ""
	assert.Error(t, ValidateBackup(valid))
}

func TestPreviewRestoreFlagsSchemaMismatches(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	// smuggle in a column the live schema does not have
	created.Data[database.TPaste][0]["legacy_flag"] = 1
	created.Metadata.Checksum, err = ComputeChecksum(created.Data)
	require.NoError(t, err)

	preview, err := service.PreviewRestore(ctx, created, database.ModeMerge, true)
	require.NoError(t, err)
	require.Len(t, preview.Issues, 1)
	assert.Equal(t, IssueColumnMismatch, preview.Issues[0].Code)
	assert.Equal(t, IssueLevelError, preview.Issues[0].Level)
	assert.Equal(t, []string{"legacy_flag"}, preview.Issues[0].Columns)

	// and the restore refuses to run
	_, err = service.Restore(ctx, &RestoreRequest{
		Backup: created, Mode: database.ModeMerge, SkipIntegrityCheck: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), IssueColumnMismatch)
}

func TestPreviewRestoreEstimates(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	preview, err := service.PreviewRestore(ctx, created, database.ModeOverwrite, true)
	require.NoError(t, err)
	assert.Equal(t, reverse(preview.OrderedTables), preview.DeleteOrder)
	assert.NotEmpty(t, preview.Notes)
	assert.GreaterOrEqual(t, preview.Batches, 1)

	merged, err := service.PreviewRestore(ctx, created, database.ModeMerge, true)
	require.NoError(t, err)
	assert.Empty(t, merged.DeleteOrder)
}

func TestRestoreMergeCountsIgnored(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	// merging a backup into the database it came from: every row conflicts
	result, err := service.Restore(ctx, &RestoreRequest{
		Backup: created, Mode: database.ModeMerge, SkipIntegrityCheck: true,
	})
	require.NoError(t, err)

	pastes := result.Results[database.TPaste]
	require.NotNil(t, pastes)
	assert.Equal(t, int64(1), pastes.Expected)
	assert.Equal(t, int64(0), pastes.Success)
	assert.Equal(t, int64(1), pastes.Ignored)
	assert.Equal(t, int64(0), pastes.Failed)
	assert.Equal(t, 3, result.TotalRecords)
}

func TestRestoreOverwriteRoundTrip(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	// dirty the live table, then overwrite-restore the snapshot
	require.NoError(t, dbClient.InsertPaste(ctx, &client.PasteRecord{
		Id: "paste-2", Slug: "extra", Content: "x", CreatedBy: "admin-1",
		CreatedAt: "2025-02-01T00:00:00Z", UpdatedAt: "2025-02-01T00:00:00Z",
	}))

	result, err := service.Restore(ctx, &RestoreRequest{
		Backup: created, Mode: database.ModeOverwrite, SkipIntegrityCheck: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Results[database.TPaste].Success)

	rows, err := dbClient.SelectAllRows(ctx, database.TPaste)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "paste-1", rows[0]["id"])
}

func TestRestoreMergeRemapsOwnership(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	// pretend the backup came from another install owned by admin-old
	for _, row := range created.Data[database.TStorageConfig] {
		row["id"] = "cfg-import"
		row["admin_id"] = "admin-old"
		row["is_default"] = int64(0)
	}
	created.Metadata.Checksum, err = ComputeChecksum(created.Data)
	require.NoError(t, err)

	_, err = service.Restore(ctx, &RestoreRequest{
		Backup:             created,
		Mode:               database.ModeMerge,
		CurrentAdminId:     "admin-1",
		SkipIntegrityCheck: true,
	})
	require.NoError(t, err)

	imported, err := dbClient.GetStorageConfig(ctx, "cfg-import")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", imported.AdminId, "merge remaps admin_id to the current admin")
}

func TestRestoreClearsSearchIndex(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	db := dbClient.(*client.Client).DB()
	_, err := db.ExecContext(ctx,
		`INSERT INTO fs_search_entries (id, mount_id, path, name) VALUES ('e1', 'm1', '/a', 'a')`)
	require.NoError(t, err)

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)
	assert.NotContains(t, created.Data, database.TFsSearchEntry, "derived tables are never exported")

	_, err = service.Restore(ctx, &RestoreRequest{
		Backup: created, Mode: database.ModeMerge, SkipIntegrityCheck: true,
	})
	require.NoError(t, err)

	rows, err := dbClient.SelectAllRows(ctx, database.TFsSearchEntry)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRestoreIntegrityFindingsAreAdvisory(t *testing.T) {
	service, dbClient := newTestService(t)
	seedAdminAndConfig(t, dbClient)
	ctx := context.Background()

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	created.Data[database.TStorageMount] = append(created.Data[database.TStorageMount],
		map[string]interface{}{
			"id":                "mount-ghost",
			"name":              "ghost",
			"storage_config_id": "cfg-gone",
			"mount_path":        "/ghost",
			"status":            "active",
			"created_by":        "admin-1",
			"created_at":        "2025-01-01T00:00:00Z",
			"updated_at":        "2025-01-01T00:00:00Z",
		})
	created.Metadata.Checksum, err = ComputeChecksum(created.Data)
	require.NoError(t, err)

	result, err := service.Restore(ctx, &RestoreRequest{
		Backup: created, Mode: database.ModeMerge, CurrentAdminId: "admin-1",
	})
	require.NoError(t, err, "integrity findings never block the restore")
	require.NotEmpty(t, result.IntegrityIssues)
	assert.Equal(t, database.TStorageMount, result.IntegrityIssues[0].Table)
}

// interruptingClient cancels the context while the first statement batch is
// in flight, the way an operator interrupt lands mid-write.
type interruptingClient struct {
	client.Interface
	cancel context.CancelFunc
}

func (c *interruptingClient) ExecStatements(ctx context.Context,
	statements []database.Statement) []client.StatementResult {
	c.cancel()
	return c.Interface.ExecStatements(ctx, statements)
}

func TestRestoreCancellationLetsInFlightBatchFinish(t *testing.T) {
	service, dbClient := newTestService(t)
	ctx := context.Background()
	seedAdminAndConfig(t, dbClient)

	created, err := service.CreateBackup(ctx, &CreateRequest{BackupType: BackupTypeFull})
	require.NoError(t, err)

	// The whole document fits one batch, so the cancellation lands while
	// that batch is in flight and is never observed at a batch boundary.
	cancellable, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupting := NewService(
		&interruptingClient{Interface: dbClient, cancel: cancel}, database.SQLiteDialect)

	result, err := interrupting.Restore(cancellable, &RestoreRequest{
		Backup: created, Mode: database.ModeMerge, SkipIntegrityCheck: true,
	})
	require.NoError(t, err)

	// the batch that was already running finished; nothing in it is
	// booked as failed
	for table, tally := range result.Results {
		assert.Zero(t, tally.Failed, "table %s", table)
		assert.Equal(t, tally.Expected, tally.Success+tally.Ignored, "table %s", table)
	}
}
