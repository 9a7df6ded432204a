/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
)

const (
	DESC = "desc"
	ASC  = "asc"
)

// Subject prefixes used in principal_storage_acl and created_by columns.
const (
	ApiKeySubjectPrefix = "API_KEY:"
	ApiKeyCreatorPrefix = "apikey:"
)

type StorageConfig struct {
	Id                string         `db:"id"`
	Name              string         `db:"name"`
	StorageType       string         `db:"storage_type"`
	AdminId           string         `db:"admin_id"`
	IsPublic          int            `db:"is_public"`
	IsDefault         int            `db:"is_default"`
	Remark            sql.NullString `db:"remark"`
	UrlProxy          sql.NullString `db:"url_proxy"`
	Status            string         `db:"status"`
	ConfigJson        string         `db:"config_json"`
	TotalStorageBytes sql.NullInt64  `db:"total_storage_bytes"`
	LastUsedAt        sql.NullString `db:"last_used_at"`
	CreatedAt         string         `db:"created_at"`
	UpdatedAt         string         `db:"updated_at"`
}

type StorageMount struct {
	Id              string `db:"id"`
	Name            string `db:"name"`
	StorageConfigId string `db:"storage_config_id"`
	MountPath       string `db:"mount_path"`
	Status          string `db:"status"`
	CreatedBy       string `db:"created_by"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

type FileRecord struct {
	Id              string         `db:"id"`
	Slug            string         `db:"slug"`
	Filename        string         `db:"filename"`
	StorageConfigId sql.NullString `db:"storage_config_id"`
	StoragePath     sql.NullString `db:"storage_path"`
	FilePath        sql.NullString `db:"file_path"`
	Mimetype        sql.NullString `db:"mimetype"`
	Size            int64          `db:"size"`
	Etag            sql.NullString `db:"etag"`
	Remark          sql.NullString `db:"remark"`
	UseProxy        int            `db:"use_proxy"`
	ExpiresAt       sql.NullString `db:"expires_at"`
	MaxViews        sql.NullInt64  `db:"max_views"`
	Views           int64          `db:"views"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

type PasteRecord struct {
	Id        string         `db:"id"`
	Slug      string         `db:"slug"`
	Content   string         `db:"content"`
	Remark    sql.NullString `db:"remark"`
	ExpiresAt sql.NullString `db:"expires_at"`
	MaxViews  sql.NullInt64  `db:"max_views"`
	Views     int64          `db:"views"`
	CreatedBy string         `db:"created_by"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

type Admin struct {
	Id           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

type ApiKey struct {
	Id        string         `db:"id"`
	Name      string         `db:"name"`
	Key       string         `db:"key"`
	CanRead   int            `db:"can_read"`
	CanWrite  int            `db:"can_write"`
	ExpiresAt sql.NullString `db:"expires_at"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

type MetricsCacheEntry struct {
	Scope         string          `db:"scope"`
	ScopeId       string          `db:"scope_id"`
	MetricKey     string          `db:"metric_key"`
	ValueNum      sql.NullFloat64 `db:"value_num"`
	ValueText     sql.NullString  `db:"value_text"`
	ValueJsonText sql.NullString  `db:"value_json_text"`
	SnapshotAtMs  int64           `db:"snapshot_at_ms"`
}

// StatementResult is the per-statement outcome of a batch execution.
type StatementResult struct {
	Index   int
	Table   string
	Changes int64
	Err     error
}

func NullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: str, Valid: true}
}

func ParseNullString(str sql.NullString) string {
	if str.Valid {
		return str.String
	}
	return ""
}

func NullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ParseNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
