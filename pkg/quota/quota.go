/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package quota admits or rejects writes against per-config storage limits
// using the latest computed-usage snapshot. The check is advisory by design:
// with no limit or no snapshot the write is allowed.
package quota

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database/client"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

const (
	MetricsScopeStorageConfig = "storage_config"
	MetricsKeyComputedUsage   = "computed_usage"
)

type Service struct {
	dbClient client.Interface
}

func NewService(dbClient client.Interface) *Service {
	return &Service{dbClient: dbClient}
}

type ConsumeRequest struct {
	StorageConfigId string
	IncomingBytes   int64
	OldBytes        int64
	// Context tags the caller (share upload, fs write, ...) in rejections.
	Context string
}

// AssertCanConsume admits the write unless the projected usage exceeds the
// configured limit. Replacing an object credits its old size, but a shrink
// never frees headroom the snapshot has not observed yet.
func (s *Service) AssertCanConsume(ctx context.Context, req *ConsumeRequest) error {
	cfg, err := s.dbClient.GetStorageConfig(ctx, req.StorageConfigId)
	if err != nil {
		return err
	}
	if !cfg.TotalStorageBytes.Valid {
		return nil
	}
	limit := cfg.TotalStorageBytes.Int64

	entry, err := s.dbClient.GetMetricsCacheEntry(ctx,
		MetricsScopeStorageConfig, req.StorageConfigId, MetricsKeyComputedUsage)
	if err != nil {
		klog.ErrorS(err, "failed to read usage snapshot", "storageConfigId", req.StorageConfigId)
		return nil
	}
	if entry == nil || !entry.ValueNum.Valid {
		return nil
	}
	used := int64(entry.ValueNum.Float64)

	delta := req.IncomingBytes - req.OldBytes
	if delta < 0 {
		delta = 0
	}
	if used+delta > limit {
		return commonerrors.NewQuotaInsufficient(fmt.Sprintf(
			"%s rejected by storage quota: used=%d limit=%d delta=%d",
			req.Context, used, limit, delta))
	}
	return nil
}

// OldBytesForShareUpload looks up the size of a share record already stored
// at the planned key, so overwrites are charged only for their growth.
func (s *Service) OldBytesForShareUpload(ctx context.Context, storageConfigId, storageKey string) int64 {
	record, err := s.dbClient.GetFileByStorageKey(ctx, storageConfigId, storageKey)
	if err != nil {
		klog.ErrorS(err, "failed to look up prior share record",
			"storageConfigId", storageConfigId, "storageKey", storageKey)
		return 0
	}
	if record == nil || record.Size < 0 {
		return 0
	}
	return record.Size
}

type ComputedUsage struct {
	UsedBytes  int64                  `json:"usedBytes"`
	Source     string                 `json:"source,omitempty"`
	SnapshotAt string                 `json:"snapshotAt,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

type LimitStatus struct {
	RemainingBytes int64   `json:"remainingBytes"`
	PercentUsed    float64 `json:"percentUsed"`
	Exceeded       bool    `json:"exceeded"`
}

type ConfigUsage struct {
	StorageConfigId      string         `json:"storage_config_id"`
	Name                 string         `json:"name"`
	StorageType          string         `json:"storage_type"`
	ConfiguredLimitBytes *int64         `json:"configuredLimitBytes"`
	EnableDiskUsage      bool           `json:"enableDiskUsage"`
	ComputedUsage        *ComputedUsage `json:"computedUsage,omitempty"`
	LimitStatus          *LimitStatus   `json:"limitStatus,omitempty"`
}

// UsageReport summarizes the quota position of every config.
func (s *Service) UsageReport(ctx context.Context) ([]*ConfigUsage, error) {
	configs, err := s.dbClient.SelectStorageConfigs(ctx, nil, []string{"created_at " + client.ASC})
	if err != nil {
		return nil, err
	}
	report := make([]*ConfigUsage, 0, len(configs))
	for _, cfg := range configs {
		usage := &ConfigUsage{
			StorageConfigId: cfg.Id,
			Name:            cfg.Name,
			StorageType:     cfg.StorageType,
			EnableDiskUsage: cfg.TotalStorageBytes.Valid,
		}
		if cfg.TotalStorageBytes.Valid {
			limit := cfg.TotalStorageBytes.Int64
			usage.ConfiguredLimitBytes = &limit
		}

		entry, err := s.dbClient.GetMetricsCacheEntry(ctx,
			MetricsScopeStorageConfig, cfg.Id, MetricsKeyComputedUsage)
		if err != nil {
			return nil, err
		}
		if entry != nil && entry.ValueNum.Valid {
			computed := &ComputedUsage{
				UsedBytes:  int64(entry.ValueNum.Float64),
				Source:     entry.ValueText.String,
				SnapshotAt: timeutil.FormatISO(timeutil.CvtMilliSecToTime(entry.SnapshotAtMs)),
			}
			if entry.ValueJsonText.Valid && entry.ValueJsonText.String != "" {
				details := map[string]interface{}{}
				if err := json.Unmarshal([]byte(entry.ValueJsonText.String), &details); err == nil {
					computed.Details = details
				}
			}
			usage.ComputedUsage = computed

			if usage.ConfiguredLimitBytes != nil {
				limit := *usage.ConfiguredLimitBytes
				status := &LimitStatus{
					RemainingBytes: limit - computed.UsedBytes,
					Exceeded:       computed.UsedBytes > limit,
				}
				if limit > 0 {
					status.PercentUsed = float64(computed.UsedBytes) / float64(limit) * 100
				}
				usage.LimitStatus = status
			}
		}
		report = append(report, usage)
	}
	return report, nil
}
