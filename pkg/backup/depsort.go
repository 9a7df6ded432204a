/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"github.com/stashbin/stashbin/pkg/database"
)

// SortTablesByDependency orders tables parents-first. Dependencies outside
// the input set are ignored; if no table is pickable (a cycle, which the
// static DAG never produces but hostile input could), the remainder is
// appended in input order rather than failing.
func SortTablesByDependency(tables []string) []string {
	inSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		inSet[t] = true
	}

	remaining := append([]string(nil), tables...)
	sorted := make([]string, 0, len(tables))
	done := make(map[string]bool, len(tables))

	for len(remaining) > 0 {
		picked := -1
		for i, t := range remaining {
			ready := true
			for _, dep := range database.TableDependencies[t] {
				if inSet[dep] && !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				picked = i
				break
			}
		}
		if picked < 0 {
			sorted = append(sorted, remaining...)
			break
		}
		table := remaining[picked]
		sorted = append(sorted, table)
		done[table] = true
		remaining = append(remaining[:picked], remaining[picked+1:]...)
	}
	return sorted
}

// reverse returns a reversed copy; used for overwrite-mode delete order.
func reverse(tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[len(tables)-1-i] = t
	}
	return out
}
