/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package backup exports and restores the relational state as a single
// self-describing document. Restores are chunked and not globally atomic;
// the result aggregator accounts for every expected row instead.
package backup

import (
	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
)

const (
	FormatVersion = "1.0"

	BackupTypeFull    = "full"
	BackupTypeModules = "modules"
)

type Metadata struct {
	Version                  string         `json:"version"`
	Timestamp                string         `json:"timestamp"`
	BackupType               string         `json:"backup_type"`
	SchemaVersion            *int           `json:"schema_version"`
	SelectedModules          []string       `json:"selected_modules"`
	IncludedModules          []string       `json:"included_modules"`
	AutoIncludedDependencies []string       `json:"auto_included_dependencies"`
	Tables                   map[string]int `json:"tables"`
	TotalRecords             int            `json:"total_records"`
	Checksum                 string         `json:"checksum"`
}

type Backup struct {
	Metadata *Metadata                           `json:"metadata"`
	Data     map[string][]map[string]interface{} `json:"data"`
}

type CreateRequest struct {
	BackupType      string   `json:"backup_type"`
	SelectedModules []string `json:"selected_modules,omitempty"`
}

// Issue levels and codes surfaced by pre-flight.
const (
	IssueLevelError   = "error"
	IssueLevelWarning = "warning"

	IssueTableNotFound  = "TABLE_NOT_FOUND"
	IssueColumnMismatch = "COLUMN_MISMATCH"
)

type Issue struct {
	Level   string   `json:"level"`
	Code    string   `json:"code"`
	Table   string   `json:"table"`
	Message string   `json:"message"`
	Columns []string `json:"columns,omitempty"`
}

type TablePlan struct {
	Table               string   `json:"table"`
	Records             int      `json:"records"`
	SampledColumns      []string `json:"sampledColumns"`
	EstimatedStatements int      `json:"estimatedStatements"`
}

type Preview struct {
	Mode            database.InsertMode `json:"mode"`
	BackupType      string              `json:"backup_type"`
	TotalRecords    int                 `json:"total_records"`
	OrderedTables   []string            `json:"orderedTables"`
	DeleteOrder     []string            `json:"deleteOrder,omitempty"`
	Tables          []*TablePlan        `json:"tables"`
	TotalStatements int                 `json:"totalStatements"`
	Batches         int                 `json:"batches"`
	Issues          []*Issue            `json:"issues"`
	IntegrityIssues []*Issue            `json:"integrityIssues"`
	Notes           []string            `json:"notes"`
}

type RestoreRequest struct {
	Backup             *Backup
	Mode               database.InsertMode
	CurrentAdminId     string
	SkipIntegrityCheck bool
	PreserveTimestamps bool
}

type TableResult struct {
	Success  int64 `json:"success"`
	Ignored  int64 `json:"ignored"`
	Failed   int64 `json:"failed"`
	Expected int64 `json:"expected"`
}

type RestoreResult struct {
	RestoredTables  []string                `json:"restored_tables"`
	TotalRecords    int                     `json:"total_records"`
	Results         map[string]*TableResult `json:"results"`
	IntegrityIssues []*Issue                `json:"integrityIssues"`
}

type Service struct {
	dbClient client.Interface
	dialect  database.Dialect
}

func NewService(dbClient client.Interface, dialect database.Dialect) *Service {
	return &Service{dbClient: dbClient, dialect: dialect}
}
