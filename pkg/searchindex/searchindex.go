/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package searchindex invalidates the derived filesystem search index. The
// index holds no authoritative data; any event that changes what a mount can
// see simply clears it and lets the indexer rebuild.
package searchindex

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database"
	"github.com/stashbin/stashbin/pkg/database/client"
)

type Service struct {
	dbClient client.Interface
}

func NewService(dbClient client.Interface) *Service {
	return &Service{dbClient: dbClient}
}

// ClearForMount drops index rows for one mount. keepState leaves the
// readiness marker in place, flipped to not-ready.
func (s *Service) ClearForMount(ctx context.Context, mountId string, keepState bool) error {
	return s.dbClient.ClearSearchIndexForMount(ctx, mountId, keepState)
}

// ClearForConfig drops index rows for every mount bound to the config.
func (s *Service) ClearForConfig(ctx context.Context, storageConfigId string, keepState bool) error {
	mounts, err := s.dbClient.SelectMountsByConfig(ctx, storageConfigId)
	if err != nil {
		return err
	}
	for _, mount := range mounts {
		if err := s.dbClient.ClearSearchIndexForMount(ctx, mount.Id, keepState); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll truncates every index table. Used after restore, where the index
// can no longer be trusted at all. Failures are logged per table and the
// first one is returned after all tables were attempted.
func (s *Service) ClearAll(ctx context.Context) error {
	var firstErr error
	for _, table := range database.FsSearchIndexTables {
		if err := s.dbClient.DeleteAllRows(ctx, table); err != nil {
			klog.ErrorS(err, "failed to clear search index table", "table", table)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
