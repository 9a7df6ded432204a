/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/stashbin/stashbin/pkg/database"
)

type Interface interface {
	StorageConfigInterface
	ShareInterface
	MountInterface
	ACLInterface
	SettingInterface
	IdentityInterface
	RawTableInterface
}

type StorageConfigInterface interface {
	InsertStorageConfig(ctx context.Context, cfg *StorageConfig) error
	UpdateStorageConfig(ctx context.Context, cfg *StorageConfig) error
	GetStorageConfig(ctx context.Context, id string) (*StorageConfig, error)
	SelectStorageConfigs(ctx context.Context, query sqrl.Sqlizer, orderBy []string) ([]*StorageConfig, error)
	DeleteStorageConfig(ctx context.Context, id string) error
	SetDefaultStorageConfig(ctx context.Context, adminId, id string) error
	TouchStorageConfigUsed(ctx context.Context, id string) error
}

type ShareInterface interface {
	InsertFile(ctx context.Context, file *FileRecord) error
	UpdateFile(ctx context.Context, file *FileRecord) error
	GetFileBySlug(ctx context.Context, slug string) (*FileRecord, error)
	GetFileByStorageKey(ctx context.Context, storageConfigId, storagePath string) (*FileRecord, error)
	DeleteFile(ctx context.Context, id string) error
	IncrementFileViews(ctx context.Context, id string) error
	UpsertFilePassword(ctx context.Context, fileId, passwordHash string) error
	GetFilePassword(ctx context.Context, fileId string) (string, error)

	InsertPaste(ctx context.Context, paste *PasteRecord) error
	GetPasteBySlug(ctx context.Context, slug string) (*PasteRecord, error)
	IncrementPasteViews(ctx context.Context, id string) error
	UpsertPastePassword(ctx context.Context, pasteId, passwordHash string) error
	GetPastePassword(ctx context.Context, pasteId string) (string, error)
}

type MountInterface interface {
	SelectMountsByConfig(ctx context.Context, storageConfigId string) ([]*StorageMount, error)
	DeleteMountsByConfig(ctx context.Context, storageConfigId string) error
	ClearSearchIndexForMount(ctx context.Context, mountId string, keepState bool) error
}

type ACLInterface interface {
	SelectAllowedConfigIds(ctx context.Context, subject string) ([]string, error)
	DeleteACLByConfig(ctx context.Context, storageConfigId string) error
}

type SettingInterface interface {
	GetSystemSetting(ctx context.Context, key string) (string, error)
	UpsertSystemSetting(ctx context.Context, key, value string) error
	GetMetricsCacheEntry(ctx context.Context, scope, scopeId, metricKey string) (*MetricsCacheEntry, error)
	UpsertMetricsCacheEntry(ctx context.Context, entry *MetricsCacheEntry) error
}

type IdentityInterface interface {
	GetAdminByToken(ctx context.Context, token string) (*Admin, error)
	GetApiKey(ctx context.Context, key string) (*ApiKey, error)
	AppliedSchemaVersions(ctx context.Context) ([]string, error)
}

// RawTableInterface exposes the whole-table operations the backup engine and
// the search index coordinator need.
type RawTableInterface interface {
	SelectAllRows(ctx context.Context, table string) ([]map[string]interface{}, error)
	TableExists(ctx context.Context, table string) (bool, error)
	TableColumns(ctx context.Context, table string) ([]string, error)
	DeleteAllRows(ctx context.Context, table string) error
	ExecStatements(ctx context.Context, statements []database.Statement) []StatementResult
	SetDeferredForeignKeys(ctx context.Context, on bool) error
}
