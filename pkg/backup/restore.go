/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// adminOwnedColumns drives merge-mode ownership remapping. api_keys and
// admin_tokens are deliberately absent: credentials must never change hands.
var adminOwnedColumns = map[string]string{
	database.TStorageConfig: "admin_id",
	database.TStorageMount:  "created_by",
	database.TFile:          "created_by",
	database.TPaste:         "created_by",
}

// Restore applies a validated backup. Batches of at most
// database.MaxStatementsPerBatch statements run sequentially and are not
// globally atomic; the per-table result map accounts for every expected row.
func (s *Service) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResult, error) {
	if req.Mode != database.ModeOverwrite && req.Mode != database.ModeMerge {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown restore mode %q", req.Mode))
	}
	if err := ValidateBackup(req.Backup); err != nil {
		return nil, err
	}

	for table := range req.Backup.Data {
		if !database.IsBackupTable(table) {
			return nil, commonerrors.NewBackupInvalid(fmt.Sprintf("unknown table %q in backup", table))
		}
	}

	if req.Mode == database.ModeMerge && req.CurrentAdminId != "" {
		remapOwnership(req.Backup, req.CurrentAdminId)
	}

	// Pre-flight gates the restore on schema compatibility. Integrity is
	// scanned separately below so its findings reflect the remapped data.
	preview, err := s.PreviewRestore(ctx, req.Backup, req.Mode, true)
	if err != nil {
		return nil, err
	}
	if blockers := errorIssues(preview.Issues); len(blockers) > 0 {
		return nil, commonerrors.NewRestoreBlocked(describeIssues(blockers))
	}

	integrityIssues := []*Issue{}
	if !req.SkipIntegrityCheck {
		integrityIssues = s.scanIntegrity(ctx, req.Backup)
	}

	ordered := preview.OrderedTables
	statements := s.buildStatements(req, ordered)

	result := &RestoreResult{
		RestoredTables:  ordered,
		Results:         map[string]*TableResult{},
		IntegrityIssues: integrityIssues,
	}
	for _, table := range ordered {
		expected := int64(len(req.Backup.Data[table]))
		result.Results[table] = &TableResult{Expected: expected}
		result.TotalRecords += int(expected)
	}

	// Cancellation is observed between batches only; the in-flight batch
	// and the cleanup below always run to completion so the tallies report
	// what actually happened to the database.
	execCtx := context.WithoutCancel(ctx)

	if err := s.dbClient.SetDeferredForeignKeys(execCtx, true); err != nil {
		klog.ErrorS(err, "failed to defer foreign key enforcement")
	}
	defer func() {
		if err := s.dbClient.SetDeferredForeignKeys(execCtx, false); err != nil {
			klog.ErrorS(err, "failed to restore foreign key enforcement")
		}
	}()

	interrupted := false
	for start := 0; start < len(statements); start += database.MaxStatementsPerBatch {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		end := start + database.MaxStatementsPerBatch
		if end > len(statements) {
			end = len(statements)
		}
		batch := statements[start:end]
		for _, outcome := range s.dbClient.ExecStatements(execCtx, batch) {
			reconcile(result, batch[outcome.Index], outcome.Changes, outcome.Err, req.Mode)
		}
	}

	// The index is derived data; whatever just happened to the base tables,
	// it can no longer be trusted.
	for _, table := range database.FsSearchIndexTables {
		if err := s.dbClient.DeleteAllRows(execCtx, table); err != nil {
			klog.ErrorS(err, "failed to clear search index table after restore", "table", table)
		}
	}

	if interrupted {
		return result, commonerrors.NewRestoreInterrupted(
			"restore cancelled between batches; earlier tables may already be written")
	}
	return result, nil
}

// buildStatements assembles overwrite deletes (reverse order) followed by
// inserts (dependency order).
func (s *Service) buildStatements(req *RestoreRequest, ordered []string) []database.Statement {
	var statements []database.Statement
	if req.Mode == database.ModeOverwrite {
		for _, table := range reverse(ordered) {
			statements = append(statements, database.Statement{
				SQL:   fmt.Sprintf("DELETE FROM %s", table),
				Table: table,
			})
		}
	}
	opts := database.BuildOptions{
		Mode:               req.Mode,
		PreserveTimestamps: req.PreserveTimestamps,
	}
	for _, table := range ordered {
		statements = append(statements,
			database.BuildInsertStatements(s.dialect, table, req.Backup.Data[table], opts)...)
	}
	return statements
}

// reconcile folds one statement outcome into the per-table tallies. Delete
// statements carry no expected rows and stay out of the books.
func reconcile(result *RestoreResult, stmt database.Statement, changes int64, execErr error,
	mode database.InsertMode) {
	if stmt.ExpectedRows == 0 {
		return
	}
	tally := result.Results[stmt.Table]
	if tally == nil {
		tally = &TableResult{}
		result.Results[stmt.Table] = tally
	}
	expected := int64(stmt.ExpectedRows)

	if execErr != nil {
		tally.Failed += expected
		return
	}
	tally.Success += changes
	if shortfall := expected - changes; shortfall > 0 {
		if mode == database.ModeMerge {
			tally.Ignored += shortfall
		} else {
			tally.Failed += shortfall
		}
	}
}

func remapOwnership(backup *Backup, adminId string) {
	for table, column := range adminOwnedColumns {
		for _, row := range backup.Data[table] {
			if _, ok := row[column]; ok {
				row[column] = adminId
			}
		}
	}
}

func errorIssues(issues []*Issue) []*Issue {
	var out []*Issue
	for _, issue := range issues {
		if issue.Level == IssueLevelError {
			out = append(out, issue)
		}
	}
	return out
}

func describeIssues(issues []*Issue) string {
	msg := fmt.Sprintf("%d blocking issues:", len(issues))
	for _, issue := range issues {
		msg += fmt.Sprintf(" [%s %s] %s;", issue.Code, issue.Table, issue.Message)
	}
	return msg
}
