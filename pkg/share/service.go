/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package share

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/config"
	"github.com/stashbin/stashbin/pkg/database/client"
	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/quota"
	"github.com/stashbin/stashbin/pkg/storageconfig"
	"github.com/stashbin/stashbin/pkg/utils/httpclient"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

const (
	// System settings that override the static configuration when present.
	SettingMaxUploadSize     = "max_upload_size"
	SettingShareRandomSuffix = "share_random_suffix"

	quotaContextShareUpload = "share upload"

	defaultSlugLength = 8
	slugSuffixLength  = 4
	slugConflictTries = 5
)

// Service routes an upload through config resolution, admission and the
// storage driver, then records the share.
type Service struct {
	dbClient   client.Interface
	registry   *drivers.Registry
	configs    *storageconfig.Service
	quota      *quota.Service
	httpClient httpclient.Interface
}

func NewService(dbClient client.Interface, registry *drivers.Registry,
	configs *storageconfig.Service, quotaGuard *quota.Service,
	httpClient httpclient.Interface) *Service {
	return &Service{
		dbClient:   dbClient,
		registry:   registry,
		configs:    configs,
		quota:      quotaGuard,
		httpClient: httpClient,
	}
}

// admission is the outcome of the common upload prologue: a resolved config,
// its driver with decrypted settings, and the key the bytes will land at.
type admission struct {
	cfg    *client.StorageConfig
	driver drivers.Driver
	plain  map[string]interface{}
	key    string
}

func (s *Service) admit(ctx context.Context, subject Subject,
	storageConfigId, filename string, size int64) (*admission, error) {
	if size < 0 {
		return nil, commonerrors.NewBadRequest("upload size must not be negative")
	}
	if maxBytes := s.maxUploadBytes(ctx); size > maxBytes {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf(
			"upload of %d bytes exceeds the configured limit of %d bytes", size, maxBytes))
	}

	cfg, err := s.resolveConfig(ctx, subject, storageConfigId)
	if err != nil {
		return nil, err
	}
	driver, err := s.registry.Get(cfg.StorageType)
	if err != nil {
		return nil, err
	}
	plain, err := s.configs.Reveal(ctx, cfg.Id, storageconfig.RevealModePlain)
	if err != nil {
		return nil, err
	}

	if limit := driver.MaxDirectUploadBytes(plain); limit > 0 && size > limit {
		return nil, commonerrors.NewRequestEntityTooLargeError(fmt.Sprintf(
			"upload of %d bytes exceeds the %s direct-upload limit of %d bytes",
			size, driver.DisplayName(), limit))
	}

	key, err := driver.PlanKey(ctx, plain, filename)
	if err != nil {
		return nil, err
	}
	err = s.quota.AssertCanConsume(ctx, &quota.ConsumeRequest{
		StorageConfigId: cfg.Id,
		IncomingBytes:   size,
		OldBytes:        s.quota.OldBytesForShareUpload(ctx, cfg.Id, key),
		Context:         quotaContextShareUpload,
	})
	if err != nil {
		return nil, err
	}
	return &admission{cfg: cfg, driver: driver, plain: plain, key: key}, nil
}

// resolveConfig picks the storage config an upload goes to. API-Key subjects
// only see public configs, further narrowed by their ACL allow-set when one
// exists; admins see everything.
func (s *Service) resolveConfig(ctx context.Context, subject Subject,
	storageConfigId string) (*client.StorageConfig, error) {
	var allowed map[string]bool
	if !subject.IsAdmin() {
		ids, err := s.dbClient.SelectAllowedConfigIds(ctx, subject.ACLSubject())
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			allowed = make(map[string]bool, len(ids))
			for _, id := range ids {
				allowed[id] = true
			}
		}
	}

	if storageConfigId != "" {
		cfg, err := s.dbClient.GetStorageConfig(ctx, storageConfigId)
		if err != nil {
			return nil, err
		}
		if cfg.Status != storageconfig.StatusActive {
			return nil, commonerrors.NewBadRequest(
				fmt.Sprintf("storage config %s is disabled", cfg.Id))
		}
		if !subject.IsAdmin() {
			if cfg.IsPublic == 0 {
				return nil, commonerrors.NewForbidden(
					fmt.Sprintf("storage config %s is not public", cfg.Id))
			}
			if allowed != nil && !allowed[cfg.Id] {
				return nil, commonerrors.NewForbidden(
					fmt.Sprintf("storage config %s is not in the allow-set", cfg.Id))
			}
		}
		return cfg, nil
	}

	query := sqrl.Sqlizer(sqrl.Eq{"status": storageconfig.StatusActive})
	if !subject.IsAdmin() {
		query = sqrl.And{query, sqrl.Eq{"is_public": 1}}
	}
	candidates, err := s.dbClient.SelectStorageConfigs(ctx, query,
		[]string{"created_at " + client.ASC})
	if err != nil {
		return nil, err
	}
	var fallback *client.StorageConfig
	for _, cfg := range candidates {
		if allowed != nil && !allowed[cfg.Id] {
			continue
		}
		if cfg.IsDefault == 1 {
			return cfg, nil
		}
		if fallback == nil {
			fallback = cfg
		}
	}
	if fallback == nil {
		return nil, commonerrors.NewNoUsableStorageConfig()
	}
	return fallback, nil
}

// UploadDirectStream pushes the request body straight through the driver and
// records the share.
func (s *Service) UploadDirectStream(ctx context.Context, subject Subject,
	req *UploadRequest) (*client.FileRecord, error) {
	adm, err := s.admit(ctx, subject, req.StorageConfigId, req.Filename, req.Size)
	if err != nil {
		return nil, err
	}
	res, err := adm.driver.Upload(ctx, adm.plain, adm.key, req.Body, req.Size, req.MimeType)
	if err != nil {
		return nil, err
	}
	rec := &client.FileRecord{
		Filename:        req.Filename,
		StorageConfigId: sql.NullString{String: adm.cfg.Id, Valid: true},
		StoragePath:     sql.NullString{String: res.Key, Valid: true},
		Mimetype:        nullStr(req.MimeType),
		Size:            res.Size,
		Etag:            nullStr(res.Etag),
	}
	out, err := s.createRecord(ctx, subject, rec, &req.Options)
	if err != nil {
		return nil, err
	}
	s.touchUsed(ctx, adm.cfg.Id)
	return out, nil
}

// UploadFileObject is the multipart-form flavor of the direct upload. The
// handler decodes the form part into the request body; the pipeline is the
// same from there on.
func (s *Service) UploadFileObject(ctx context.Context, subject Subject,
	req *UploadRequest) (*client.FileRecord, error) {
	return s.UploadDirectStream(ctx, subject, req)
}

// PresignInit runs the full admission and hands the client a URL to put the
// bytes at. The record is created by PresignCommit once the upload is done.
func (s *Service) PresignInit(ctx context.Context, subject Subject,
	req *PresignInitRequest) (*PresignInitResult, error) {
	adm, err := s.admit(ctx, subject, req.StorageConfigId, req.Filename, req.Size)
	if err != nil {
		return nil, err
	}
	uploadUrl, err := adm.driver.PresignPut(ctx, adm.plain, adm.key, 0)
	if err != nil {
		return nil, err
	}
	return &PresignInitResult{
		UploadUrl:       uploadUrl,
		Key:             adm.key,
		StorageConfigId: adm.cfg.Id,
	}, nil
}

// PresignCommit records a share for bytes the client already put at Key.
func (s *Service) PresignCommit(ctx context.Context, subject Subject,
	req *PresignCommitRequest) (*client.FileRecord, error) {
	if req.StorageConfigId == "" || req.Key == "" {
		return nil, commonerrors.NewBadRequest("storage_config_id and key are required")
	}
	if req.Size < 0 {
		return nil, commonerrors.NewBadRequest("upload size must not be negative")
	}
	cfg, err := s.resolveConfig(ctx, subject, req.StorageConfigId)
	if err != nil {
		return nil, err
	}
	filename := req.Filename
	if filename == "" {
		filename = req.Key
	}
	rec := &client.FileRecord{
		Filename:        filename,
		StorageConfigId: sql.NullString{String: cfg.Id, Valid: true},
		StoragePath:     sql.NullString{String: req.Key, Valid: true},
		Mimetype:        nullStr(req.MimeType),
		Size:            req.Size,
		Etag:            nullStr(req.Etag),
	}
	out, err := s.createRecord(ctx, subject, rec, &req.Options)
	if err != nil {
		return nil, err
	}
	s.touchUsed(ctx, cfg.Id)
	return out, nil
}

// CreateShareFromFs shares an entry already living on a mount. No bytes move
// and no quota is consumed.
func (s *Service) CreateShareFromFs(ctx context.Context, subject Subject,
	req *FsShareRequest) (*client.FileRecord, error) {
	if req.FilePath == "" {
		return nil, commonerrors.NewBadRequest("file_path is required")
	}
	rec := &client.FileRecord{
		Filename: req.Filename,
		FilePath: sql.NullString{String: req.FilePath, Valid: true},
		Mimetype: nullStr(req.MimeType),
		Size:     req.Size,
	}
	if req.StorageConfigId != "" {
		cfg, err := s.resolveConfig(ctx, subject, req.StorageConfigId)
		if err != nil {
			return nil, err
		}
		rec.StorageConfigId = sql.NullString{String: cfg.Id, Valid: true}
	}
	return s.createRecord(ctx, subject, rec, &req.Options)
}

// createRecord applies the slug policy, fills the record, persists it and
// stores the password hash when one was supplied.
func (s *Service) createRecord(ctx context.Context, subject Subject,
	rec *client.FileRecord, opts *Options) (*client.FileRecord, error) {
	rec.Remark = nullStr(opts.Remark)
	rec.ExpiresAt = nullStr(opts.ExpiresAt)
	if opts.MaxViews > 0 {
		rec.MaxViews = sql.NullInt64{Int64: opts.MaxViews, Valid: true}
	}
	if opts.UseProxy {
		rec.UseProxy = 1
	}
	rec.CreatedBy = subject.CreatorTag()

	slug := opts.Slug
	if slug == "" {
		slug = stringutil.RandomSlug(defaultSlugLength)
	}
	randomSuffix := s.isRandomSuffixEnabled(ctx)

	for try := 0; try < slugConflictTries; try++ {
		existing, err := s.dbClient.GetFileBySlug(ctx, slug)
		if err != nil {
			if commonerrors.IsNotFound(err) {
				rec.Slug = slug
				return s.insertRecord(ctx, rec, opts.Password)
			}
			return nil, err
		}
		if randomSuffix {
			slug = opts.Slug
			if slug == "" {
				slug = stringutil.RandomSlug(defaultSlugLength)
			} else {
				slug = slug + "-" + stringutil.RandomSlug(slugSuffixLength)
			}
			continue
		}
		if !opts.UpdateIfExists {
			return nil, commonerrors.NewSlugConflict(slug)
		}
		return s.overwriteRecord(ctx, existing, rec, opts.Password)
	}
	return nil, commonerrors.NewSlugConflict(slug)
}

func (s *Service) insertRecord(ctx context.Context, rec *client.FileRecord,
	password string) (*client.FileRecord, error) {
	rec.Id = uuid.NewString()
	now := timeutil.FormatISO(time.Now())
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := s.dbClient.InsertFile(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.storePassword(ctx, rec.Id, password); err != nil {
		return nil, err
	}
	return rec, nil
}

// overwriteRecord repoints an existing slug at the new bytes. Views carry
// over; the creator stays whoever made the original share.
func (s *Service) overwriteRecord(ctx context.Context, existing, rec *client.FileRecord,
	password string) (*client.FileRecord, error) {
	existing.Filename = rec.Filename
	existing.StorageConfigId = rec.StorageConfigId
	existing.StoragePath = rec.StoragePath
	existing.FilePath = rec.FilePath
	existing.Mimetype = rec.Mimetype
	existing.Size = rec.Size
	existing.Etag = rec.Etag
	existing.Remark = rec.Remark
	existing.UseProxy = rec.UseProxy
	existing.ExpiresAt = rec.ExpiresAt
	existing.MaxViews = rec.MaxViews
	if err := s.dbClient.UpdateFile(ctx, existing); err != nil {
		return nil, err
	}
	if err := s.storePassword(ctx, existing.Id, password); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) storePassword(ctx context.Context, fileId, password string) error {
	if password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return s.dbClient.UpsertFilePassword(ctx, fileId, string(hash))
}

func (s *Service) touchUsed(ctx context.Context, configId string) {
	if err := s.dbClient.TouchStorageConfigUsed(ctx, configId); err != nil {
		klog.ErrorS(err, "failed to touch storage config", "storageConfigId", configId)
	}
}

func (s *Service) maxUploadBytes(ctx context.Context) int64 {
	raw, err := s.dbClient.GetSystemSetting(ctx, SettingMaxUploadSize)
	if err == nil && raw != "" {
		if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil && v > 0 {
			return v
		}
		klog.InfoS("ignoring malformed max_upload_size setting", "value", raw)
	}
	return config.GetMaxUploadSizeBytes()
}

func (s *Service) isRandomSuffixEnabled(ctx context.Context) bool {
	raw, err := s.dbClient.GetSystemSetting(ctx, SettingShareRandomSuffix)
	if err != nil || raw == "" {
		return config.IsShareRandomSuffixEnable()
	}
	return raw == "1" || raw == "true"
}

func nullStr(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
