/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package database

// Table names. Every statement in the repository layer goes through these
// constants; nothing interpolates a caller-provided table name.
const (
	TPaste           = "pastes"
	TPastePassword   = "paste_passwords"
	TFile            = "files"
	TFilePassword    = "file_passwords"
	TStorageMount    = "storage_mounts"
	TStorageConfig   = "storage_configs"
	TStorageACL      = "principal_storage_acl"
	TApiKey          = "api_keys"
	TAdmin           = "admins"
	TAdminToken      = "admin_tokens"
	TSystemSetting   = "system_settings"
	TFsMeta          = "fs_meta"
	TTask            = "tasks"
	TScheduledJob    = "scheduled_jobs"
	TScheduledJobRun = "scheduled_job_runs"
	TUploadSession   = "upload_sessions"
	TSchemaMigration = "schema_migrations"
	TMetricsCache    = "metrics_cache"

	TFsSearchEntry = "fs_search_entries"
	TFsSearchState = "fs_search_state"
	TFsSearchDirty = "fs_search_dirty"
	TFsSearchFts   = "fs_search_fts"
)

// Backup module names.
const (
	ModuleTextManagement    = "text_management"
	ModuleFileManagement    = "file_management"
	ModuleMountManagement   = "mount_management"
	ModuleStorageConfig     = "storage_config"
	ModuleKeyManagement     = "key_management"
	ModuleAccountManagement = "account_management"
	ModuleSystemSettings    = "system_settings"
	ModuleFsMetaManagement  = "fs_meta_management"
	ModuleTaskManagement    = "task_management"
	ModuleUploadSessions    = "upload_sessions"
)

// ModuleTables maps a backup module to the tables it owns.
var ModuleTables = map[string][]string{
	ModuleTextManagement:    {TPaste, TPastePassword},
	ModuleFileManagement:    {TFile, TFilePassword},
	ModuleMountManagement:   {TStorageMount},
	ModuleStorageConfig:     {TStorageConfig, TStorageACL},
	ModuleKeyManagement:     {TApiKey},
	ModuleAccountManagement: {TAdmin, TAdminToken},
	ModuleSystemSettings:    {TSystemSetting},
	ModuleFsMetaManagement:  {TFsMeta},
	ModuleTaskManagement:    {TTask, TScheduledJob, TScheduledJobRun},
	ModuleUploadSessions:    {TUploadSession},
}

// ModuleDependencies lists modules that must be auto-included when the key
// module is selected; restoring a child without its parent tables would break
// foreign keys.
var ModuleDependencies = map[string][]string{
	ModuleMountManagement: {ModuleStorageConfig},
	ModuleFileManagement:  {ModuleStorageConfig},
}

// TableDependencies is the child -> parents DAG used for restore ordering.
// The tasks edge only applies when user_type='apikey'; ordering over-includes
// it, which is harmless.
var TableDependencies = map[string][]string{
	TPastePassword:   {TPaste},
	TFilePassword:    {TFile},
	TAdminToken:      {TAdmin},
	TStorageConfig:   {TAdmin},
	TStorageMount:    {TStorageConfig},
	TTask:            {TApiKey},
	TStorageACL:      {TApiKey, TStorageConfig},
	TScheduledJobRun: {TScheduledJob},
	TUploadSession:   {TStorageConfig, TStorageMount},
}

// BackupTables is every table participating in backups; the derived FS search
// index tables are rebuilt from scratch and never exported.
var BackupTables = []string{
	TPaste, TPastePassword,
	TFile, TFilePassword,
	TStorageMount,
	TStorageConfig, TStorageACL,
	TApiKey,
	TAdmin, TAdminToken,
	TSystemSetting,
	TFsMeta,
	TTask, TScheduledJob, TScheduledJobRun,
	TUploadSession,
}

// FsSearchIndexTables hold derived data only.
var FsSearchIndexTables = []string{
	TFsSearchEntry, TFsSearchState, TFsSearchDirty, TFsSearchFts,
}

// IsBackupTable reports whether name participates in backup/restore.
func IsBackupTable(name string) bool {
	for _, t := range BackupTables {
		if t == name {
			return true
		}
	}
	return false
}
