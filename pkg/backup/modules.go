/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"fmt"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// ExpandModules resolves a module selection into the final module set,
// pulling in dependency modules the caller left out. The returned order is
// stable: selection order first, auto-included dependencies after.
func ExpandModules(selected []string) (final []string, autoIncluded []string, err error) {
	seen := map[string]bool{}
	for _, module := range selected {
		if _, ok := database.ModuleTables[module]; !ok {
			return nil, nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown backup module %q", module))
		}
		if seen[module] {
			continue
		}
		seen[module] = true
		final = append(final, module)
	}
	for _, module := range selected {
		for _, dep := range database.ModuleDependencies[module] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			final = append(final, dep)
			autoIncluded = append(autoIncluded, dep)
		}
	}
	if len(final) == 0 {
		return nil, nil, commonerrors.NewBadRequest("no backup modules selected")
	}
	return final, autoIncluded, nil
}

// TablesForModules unions the table lists of the given modules, preserving
// first-seen order.
func TablesForModules(modules []string) []string {
	seen := map[string]bool{}
	var tables []string
	for _, module := range modules {
		for _, table := range database.ModuleTables[module] {
			if seen[table] {
				continue
			}
			seen[table] = true
			tables = append(tables, table)
		}
	}
	return tables
}
