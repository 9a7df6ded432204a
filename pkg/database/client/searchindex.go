/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// ClearSearchIndexForMount drops the derived search rows for one mount.
// With keepState the readiness row survives but is flipped to not-ready, so
// readers see "index pending" instead of "never indexed".
func (c *Client) ClearSearchIndexForMount(ctx context.Context, mountId string, keepState bool) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	// FTS rows hang off entries, so they go first.
	cmds := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE entry_id IN (SELECT id FROM %s WHERE mount_id = ?)`,
			database.TFsSearchFts, database.TFsSearchEntry),
		fmt.Sprintf(`DELETE FROM %s WHERE mount_id = ?`, database.TFsSearchEntry),
		fmt.Sprintf(`DELETE FROM %s WHERE mount_id = ?`, database.TFsSearchDirty),
	}
	for _, cmd := range cmds {
		if _, err = db.ExecContext(ctx, db.Rebind(cmd), mountId); err != nil {
			klog.ErrorS(err, "failed to clear search index", "mountId", mountId)
			return commonerrors.NewInternalError(err.Error())
		}
	}

	var cmd string
	if keepState {
		cmd = fmt.Sprintf(`UPDATE %s SET ready = 0, indexed_at = NULL WHERE mount_id = ?`,
			database.TFsSearchState)
	} else {
		cmd = fmt.Sprintf(`DELETE FROM %s WHERE mount_id = ?`, database.TFsSearchState)
	}
	if _, err = db.ExecContext(ctx, db.Rebind(cmd), mountId); err != nil {
		klog.ErrorS(err, "failed to update search index state", "mountId", mountId)
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}
