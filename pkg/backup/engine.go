/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

// CreateBackup exports the selected tables into a checksummed document.
func (s *Service) CreateBackup(ctx context.Context, req *CreateRequest) (*Backup, error) {
	var (
		tables       []string
		included     []string
		autoIncluded []string
		err          error
	)
	switch req.BackupType {
	case BackupTypeFull:
		tables = append([]string(nil), database.BackupTables...)
	case BackupTypeModules:
		included, autoIncluded, err = ExpandModules(req.SelectedModules)
		if err != nil {
			return nil, err
		}
		tables = TablesForModules(included)
	default:
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown backup type %q", req.BackupType))
	}

	ordered := SortTablesByDependency(tables)
	data := make(map[string][]map[string]interface{}, len(ordered))
	counts := make(map[string]int, len(ordered))
	total := 0
	for _, table := range ordered {
		rows, err := s.dbClient.SelectAllRows(ctx, table)
		if err != nil {
			return nil, err
		}
		data[table] = rows
		counts[table] = len(rows)
		total += len(rows)
	}

	checksum, err := ComputeChecksum(data)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}

	versions, err := s.dbClient.AppliedSchemaVersions(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to read applied schema versions")
	}

	backup := &Backup{
		Metadata: &Metadata{
			Version:                  FormatVersion,
			Timestamp:                timeutil.FormatISO(time.Now()),
			BackupType:               req.BackupType,
			SchemaVersion:            database.MaxSchemaVersion(versions),
			SelectedModules:          req.SelectedModules,
			IncludedModules:          included,
			AutoIncludedDependencies: autoIncluded,
			Tables:                   counts,
			TotalRecords:             total,
			Checksum:                 checksum,
		},
		Data: data,
	}
	return backup, nil
}

// ValidateBackup rejects malformed documents before any restore work: shape,
// mandatory metadata, and a checksum recomputation must all pass.
func ValidateBackup(backup *Backup) error {
	if backup == nil || backup.Metadata == nil || backup.Data == nil {
		return commonerrors.NewBackupInvalid("backup must carry metadata and data sections")
	}
	if backup.Metadata.Version == "" {
		return commonerrors.NewBackupInvalid("metadata.version is missing")
	}
	if backup.Metadata.Timestamp == "" {
		return commonerrors.NewBackupInvalid("metadata.timestamp is missing")
	}
	if backup.Metadata.Checksum == "" {
		return commonerrors.NewBackupInvalid("metadata.checksum is missing")
	}
	checksum, err := ComputeChecksum(backup.Data)
	if err != nil {
		return commonerrors.NewBackupInvalid(fmt.Sprintf("data is not serializable: %v", err))
	}
	if backup.Metadata.Checksum != checksum {
		return commonerrors.NewBackupInvalid(fmt.Sprintf(
			"checksum mismatch: metadata says %s, data hashes to %s",
			backup.Metadata.Checksum, checksum))
	}
	return nil
}

// ParseBackup decodes a raw document, preserving integer literals so the
// checksum survives the JSON round trip.
func ParseBackup(raw []byte) (*Backup, error) {
	backup := &Backup{}
	if err := jsonutil.UnmarshalNumeric(raw, backup); err != nil {
		return nil, commonerrors.NewBackupInvalid(fmt.Sprintf("not a valid backup document: %v", err))
	}
	if err := ValidateBackup(backup); err != nil {
		return nil, err
	}
	return backup, nil
}
