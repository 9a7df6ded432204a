/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"context"
	"fmt"
	"sort"

	"github.com/stashbin/stashbin/pkg/database"
)

// sampleRows bounds how many rows inform the column-shape estimate.
const sampleRows = 50

// PreviewRestore reports what a restore would do without writing anything.
// TABLE_NOT_FOUND and COLUMN_MISMATCH issues are level error and block the
// actual restore; integrity findings are advisory.
func (s *Service) PreviewRestore(ctx context.Context, backup *Backup, mode database.InsertMode,
	skipIntegrityCheck bool) (*Preview, error) {
	if err := ValidateBackup(backup); err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(backup.Data))
	for table := range backup.Data {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	ordered := SortTablesByDependency(tables)

	preview := &Preview{
		Mode:            mode,
		BackupType:      backup.Metadata.BackupType,
		TotalRecords:    backup.Metadata.TotalRecords,
		OrderedTables:   ordered,
		Issues:          []*Issue{},
		IntegrityIssues: []*Issue{},
	}
	if mode == database.ModeOverwrite {
		preview.DeleteOrder = reverse(ordered)
	}

	total := 0
	for _, table := range ordered {
		rows := backup.Data[table]
		plan := &TablePlan{Table: table, Records: len(rows)}
		plan.SampledColumns = sampleColumns(rows)
		plan.EstimatedStatements = s.estimateStatements(len(rows), len(plan.SampledColumns))
		total += plan.EstimatedStatements
		preview.Tables = append(preview.Tables, plan)

		exists, err := s.dbClient.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			preview.Issues = append(preview.Issues, &Issue{
				Level:   IssueLevelError,
				Code:    IssueTableNotFound,
				Table:   table,
				Message: fmt.Sprintf("table %s does not exist in the target schema", table),
			})
			continue
		}
		if len(plan.SampledColumns) == 0 {
			continue
		}
		targetColumns, err := s.dbClient.TableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		if missing := missingColumns(plan.SampledColumns, targetColumns); len(missing) > 0 {
			preview.Issues = append(preview.Issues, &Issue{
				Level:   IssueLevelError,
				Code:    IssueColumnMismatch,
				Table:   table,
				Message: fmt.Sprintf("backup columns %v are absent from table %s", missing, table),
				Columns: missing,
			})
		}
	}
	preview.TotalStatements = total
	preview.Batches = (total + database.MaxStatementsPerBatch - 1) / database.MaxStatementsPerBatch

	if !skipIntegrityCheck {
		preview.IntegrityIssues = s.scanIntegrity(ctx, backup)
	}

	preview.Notes = buildNotes(preview)
	return preview, nil
}

func sampleColumns(rows []map[string]interface{}) []string {
	limit := len(rows)
	if limit > sampleRows {
		limit = sampleRows
	}
	seen := map[string]bool{}
	var columns []string
	for _, row := range rows[:limit] {
		for column := range row {
			if !seen[column] {
				seen[column] = true
				columns = append(columns, column)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func (s *Service) estimateStatements(records, columns int) int {
	if records == 0 {
		return 0
	}
	if !s.dialect.IsSQLiteFamily() {
		return records
	}
	perStatement := database.MaxRowsPerStatement(columns)
	return (records + perStatement - 1) / perStatement
}

func missingColumns(sampled, target []string) []string {
	have := make(map[string]bool, len(target))
	for _, column := range target {
		have[column] = true
	}
	var missing []string
	for _, column := range sampled {
		if !have[column] {
			missing = append(missing, column)
		}
	}
	return missing
}

// scanIntegrity cross-checks references: mounts against configs present in
// the backup or live, passwords against their parent share rows.
func (s *Service) scanIntegrity(ctx context.Context, backup *Backup) []*Issue {
	scan := &integrityScan{service: s, backup: backup, liveIds: map[string]map[string]bool{}}

	issues := scan.checkRefs(ctx, database.TStorageMount, columnStorageConfigId, database.TStorageConfig)
	issues = append(issues, scan.checkRefs(ctx, database.TFilePassword, "file_id", database.TFile)...)
	issues = append(issues, scan.checkRefs(ctx, database.TPastePassword, "paste_id", database.TPaste)...)
	return issues
}

type integrityScan struct {
	service *Service
	backup  *Backup
	liveIds map[string]map[string]bool
}

func (sc *integrityScan) checkRefs(ctx context.Context, childTable, refColumn, parentTable string) []*Issue {
	parents := idSet(sc.backup.Data[parentTable], "id")
	issues := []*Issue{}
	for _, row := range sc.backup.Data[childTable] {
		parentId, _ := row[refColumn].(string)
		if parentId == "" || parents[parentId] || sc.live(ctx, parentTable)[parentId] {
			continue
		}
		issues = append(issues, &Issue{
			Level:   IssueLevelWarning,
			Code:    "DANGLING_REFERENCE",
			Table:   childTable,
			Message: fmt.Sprintf("%s row references missing %s row %s", childTable, parentTable, parentId),
		})
	}
	return issues
}

func (sc *integrityScan) live(ctx context.Context, table string) map[string]bool {
	if ids, ok := sc.liveIds[table]; ok {
		return ids
	}
	ids := map[string]bool{}
	if rows, err := sc.service.dbClient.SelectAllRows(ctx, table); err == nil {
		ids = idSet(rows, "id")
	}
	sc.liveIds[table] = ids
	return ids
}

func idSet(rows []map[string]interface{}, column string) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		if id, ok := row[column].(string); ok && id != "" {
			set[id] = true
		}
	}
	return set
}

func buildNotes(preview *Preview) []string {
	notes := []string{
		fmt.Sprintf("%d tables, %d records, about %d statements in %d batches",
			len(preview.OrderedTables), preview.TotalRecords,
			preview.TotalStatements, preview.Batches),
	}
	if preview.Mode == database.ModeOverwrite {
		notes = append(notes,
			"overwrite mode deletes existing rows in reverse dependency order before inserting")
	} else {
		notes = append(notes,
			"merge mode keeps existing rows; conflicting inserts are counted as ignored")
	}
	if errorCount(preview.Issues) > 0 {
		notes = append(notes, "blocking issues found; restore will be refused until they are resolved")
	}
	if len(preview.IntegrityIssues) > 0 {
		notes = append(notes,
			fmt.Sprintf("%d integrity findings; they do not block the restore", len(preview.IntegrityIssues)))
	}
	notes = append(notes, "batches are not atomic: a late failure leaves earlier tables written")
	return notes
}

func errorCount(issues []*Issue) int {
	n := 0
	for _, issue := range issues {
		if issue.Level == IssueLevelError {
			n++
		}
	}
	return n
}

const columnStorageConfigId = "storage_config_id"
