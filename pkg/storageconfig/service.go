/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package storageconfig manages the lifecycle of storage backend
// configurations: schema-driven validation, secret-field encryption, masked
// views, default selection and connection testing.
package storageconfig

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/config"
	"github.com/stashbin/stashbin/pkg/database/client"
	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/searchindex"
	"github.com/stashbin/stashbin/pkg/utils/crypto"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"

	RevealModeMasked = "masked"
	RevealModePlain  = "plain"
)

type Service struct {
	dbClient client.Interface
	registry *drivers.Registry
	cipher   *crypto.Cipher
	index    *searchindex.Service
}

func NewService(dbClient client.Interface, registry *drivers.Registry, cipher *crypto.Cipher) *Service {
	return &Service{
		dbClient: dbClient,
		registry: registry,
		cipher:   cipher,
		index:    searchindex.NewService(dbClient),
	}
}

type CreateRequest struct {
	Name              string                 `json:"name"`
	StorageType       string                 `json:"storage_type"`
	IsPublic          bool                   `json:"is_public"`
	Remark            string                 `json:"remark"`
	UrlProxy          string                 `json:"url_proxy"`
	Config            map[string]interface{} `json:"config"`
	TotalStorageBytes json.RawMessage        `json:"total_storage_bytes,omitempty"`
}

type UpdateRequest struct {
	Name              *string                `json:"name,omitempty"`
	IsPublic          *bool                  `json:"is_public,omitempty"`
	Remark            *string                `json:"remark,omitempty"`
	UrlProxy          *string                `json:"url_proxy,omitempty"`
	Status            *string                `json:"status,omitempty"`
	Config            map[string]interface{} `json:"config,omitempty"`
	TotalStorageBytes json.RawMessage        `json:"total_storage_bytes,omitempty"`
}

// View is the externally visible shape of a config. Secret fields are
// masked; Config is omitted entirely from public views.
type View struct {
	Id                string                 `json:"id"`
	Name              string                 `json:"name"`
	StorageType       string                 `json:"storage_type"`
	AdminId           string                 `json:"admin_id,omitempty"`
	IsPublic          bool                   `json:"is_public"`
	IsDefault         bool                   `json:"is_default"`
	Remark            string                 `json:"remark,omitempty"`
	UrlProxy          string                 `json:"url_proxy,omitempty"`
	Status            string                 `json:"status"`
	Config            map[string]interface{} `json:"config,omitempty"`
	TotalStorageBytes *int64                 `json:"total_storage_bytes"`
	SupportedPolicies []string               `json:"supported_policies,omitempty"`
	LastUsedAt        string                 `json:"last_used_at,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
}

func (s *Service) List(ctx context.Context) ([]*View, error) {
	return s.list(ctx, nil, false)
}

func (s *Service) ListPublic(ctx context.Context) ([]*View, error) {
	return s.list(ctx, sqrl.Eq{"is_public": 1}, true)
}

func (s *Service) list(ctx context.Context, query sqrl.Sqlizer, public bool) ([]*View, error) {
	rows, err := s.dbClient.SelectStorageConfigs(ctx, query, []string{"created_at " + client.DESC})
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.buildView(row, public))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	row, err := s.dbClient.GetStorageConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(row, false), nil
}

func (s *Service) GetPublic(ctx context.Context, id string) (*View, error) {
	row, err := s.dbClient.GetStorageConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.IsPublic == 0 {
		return nil, commonerrors.NewNotFound("storage config", id)
	}
	return s.buildView(row, true), nil
}

// Reveal returns the driver config bag with secrets decrypted. In masked
// mode each secret is reduced to its display form; plain mode is for
// admin-only edit flows.
func (s *Service) Reveal(ctx context.Context, id, mode string) (map[string]interface{}, error) {
	if mode != RevealModeMasked && mode != RevealModePlain {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown reveal mode %q", mode))
	}
	row, err := s.dbClient.GetStorageConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	schema, err := s.schemaFor(row.StorageType)
	if err != nil {
		return nil, err
	}
	cfg, err := s.decodeStoredConfig(schema, row.ConfigJson, mode == RevealModePlain)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Create(ctx context.Context, adminId string, req *CreateRequest) (*View, error) {
	if req.Name == "" {
		return nil, commonerrors.NewBadRequest("name is required")
	}
	driver, err := s.registry.Get(req.StorageType)
	if err != nil {
		return nil, err
	}
	schema := driver.Schema()

	cfg := req.Config
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	applyDefaults(schema, cfg)
	if err := validateCreate(schema, cfg); err != nil {
		return nil, err
	}
	normalizeForStore(schema, cfg)
	if err := s.encryptSecrets(schema, cfg); err != nil {
		return nil, err
	}

	totalStorage, err := parseTotalStorageBytes(req.TotalStorageBytes, true)
	if err != nil {
		return nil, err
	}

	now := timeutil.FormatISO(time.Now())
	row := &client.StorageConfig{
		Id:                uuid.NewString(),
		Name:              req.Name,
		StorageType:       req.StorageType,
		AdminId:           adminId,
		IsPublic:          boolToInt(req.IsPublic),
		Remark:            client.NullString(req.Remark),
		UrlProxy:          client.NullString(req.UrlProxy),
		Status:            StatusActive,
		ConfigJson:        string(jsonutil.MarshalSilently(cfg)),
		TotalStorageBytes: totalStorage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.dbClient.InsertStorageConfig(ctx, row); err != nil {
		return nil, err
	}
	return s.buildView(row, false), nil
}

func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*View, error) {
	row, err := s.dbClient.GetStorageConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	schema, err := s.schemaFor(row.StorageType)
	if err != nil {
		return nil, err
	}

	driverConfigChanged := false
	if req.Config != nil {
		stored := map[string]interface{}{}
		if row.ConfigJson != "" {
			if err := jsonutil.Unmarshal([]byte(row.ConfigJson), &stored); err != nil {
				return nil, commonerrors.NewInternalError(err.Error())
			}
		}
		patch := map[string]interface{}{}
		for key, value := range req.Config {
			field := schema.Field(key)
			if field != nil && field.Kind == drivers.KindSecret &&
				(isMaskedValue(value) || isEmptyValue(value)) {
				// Masked or empty secrets keep the stored ciphertext.
				continue
			}
			patch[key] = value
		}
		if err := validateUpdate(schema, patch); err != nil {
			return nil, err
		}
		normalizeForStore(schema, patch)
		if err := s.encryptSecrets(schema, patch); err != nil {
			return nil, err
		}
		for key, value := range patch {
			if !sameJsonValue(stored[key], value) {
				driverConfigChanged = true
			}
			stored[key] = value
		}
		row.ConfigJson = string(jsonutil.MarshalSilently(stored))
	}

	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.IsPublic != nil {
		row.IsPublic = boolToInt(*req.IsPublic)
	}
	if req.Remark != nil {
		row.Remark = client.NullString(*req.Remark)
	}
	if req.UrlProxy != nil {
		row.UrlProxy = client.NullString(*req.UrlProxy)
	}
	if req.Status != nil {
		row.Status = *req.Status
	}
	if len(req.TotalStorageBytes) > 0 {
		row.TotalStorageBytes, err = parseTotalStorageBytes(req.TotalStorageBytes, false)
		if err != nil {
			return nil, err
		}
	}
	row.UpdatedAt = timeutil.FormatISO(time.Now())

	if err := s.dbClient.UpdateStorageConfig(ctx, row); err != nil {
		return nil, err
	}

	// Index invalidation is best-effort: the update already succeeded.
	if driverConfigChanged {
		if err := s.index.ClearForConfig(ctx, id, true); err != nil {
			klog.ErrorS(err, "failed to invalidate search index after config update", "id", id)
		}
	}
	return s.buildView(row, false), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.dbClient.GetStorageConfig(ctx, id); err != nil {
		return err
	}
	if err := s.index.ClearForConfig(ctx, id, false); err != nil {
		klog.ErrorS(err, "failed to clear search index before config delete", "id", id)
	}
	if err := s.dbClient.DeleteMountsByConfig(ctx, id); err != nil {
		return err
	}
	if err := s.dbClient.DeleteACLByConfig(ctx, id); err != nil {
		return err
	}
	return s.dbClient.DeleteStorageConfig(ctx, id)
}

func (s *Service) SetDefault(ctx context.Context, adminId, id string) error {
	return s.dbClient.SetDefaultStorageConfig(ctx, adminId, id)
}

// TestConnection loads the stored secrets and runs the driver's tester. A
// passing report refreshes last_used_at.
func (s *Service) TestConnection(ctx context.Context, id, origin string) (*drivers.TestReport, error) {
	row, err := s.dbClient.GetStorageConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	schema, err := s.schemaFor(row.StorageType)
	if err != nil {
		return nil, err
	}
	cfg, err := s.decodeStoredConfig(schema, row.ConfigJson, true)
	if err != nil {
		return nil, err
	}
	report, err := s.registry.Test(ctx, row.StorageType, cfg, origin)
	if err != nil {
		return nil, err
	}
	if report.Success {
		if err := s.dbClient.TouchStorageConfigUsed(ctx, id); err != nil {
			klog.ErrorS(err, "failed to record last_used_at", "id", id)
		}
	}
	return report, nil
}

func (s *Service) schemaFor(storageType string) (*drivers.ConfigSchema, error) {
	driver, err := s.registry.Get(storageType)
	if err != nil {
		return nil, err
	}
	return driver.Schema(), nil
}

// decodeStoredConfig parses config_json, normalizes wire booleans and either
// decrypts (plain) or masks each secret field.
func (s *Service) decodeStoredConfig(schema *drivers.ConfigSchema, configJson string, plain bool) (map[string]interface{}, error) {
	cfg := map[string]interface{}{}
	if configJson != "" {
		if err := jsonutil.Unmarshal([]byte(configJson), &cfg); err != nil {
			return nil, commonerrors.NewInternalError(err.Error())
		}
	}
	normalizeForRead(schema, cfg)
	for _, name := range schema.SecretFields() {
		ciphertext, ok := cfg[name].(string)
		if !ok || ciphertext == "" {
			continue
		}
		plaintext, err := s.cipher.Decrypt(ciphertext)
		if err != nil {
			return nil, commonerrors.NewInternalError(
				fmt.Sprintf("failed to decrypt field %s: %v", name, err))
		}
		if plain {
			cfg[name] = plaintext
		} else {
			cfg[name] = maskSecret(plaintext)
		}
	}
	return cfg, nil
}

func (s *Service) encryptSecrets(schema *drivers.ConfigSchema, cfg map[string]interface{}) error {
	for _, name := range schema.SecretFields() {
		value, ok := cfg[name].(string)
		if !ok || value == "" {
			continue
		}
		ciphertext, err := s.cipher.Encrypt([]byte(value))
		if err != nil {
			return commonerrors.NewInternalError(err.Error())
		}
		cfg[name] = ciphertext
	}
	return nil
}

func (s *Service) buildView(row *client.StorageConfig, public bool) *View {
	view := &View{
		Id:          row.Id,
		Name:        row.Name,
		StorageType: row.StorageType,
		IsPublic:    row.IsPublic != 0,
		IsDefault:   row.IsDefault != 0,
		Remark:      row.Remark.String,
		UrlProxy:    row.UrlProxy.String,
		Status:      row.Status,
		LastUsedAt:  row.LastUsedAt.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.TotalStorageBytes.Valid {
		v := row.TotalStorageBytes.Int64
		view.TotalStorageBytes = &v
	}
	if driver, err := s.registry.Get(row.StorageType); err == nil {
		view.SupportedPolicies = drivers.SupportedPolicies(driver.Capabilities(), row.UrlProxy.String)
		if !public {
			view.AdminId = row.AdminId
			if cfg, err := s.decodeStoredConfig(driver.Schema(), row.ConfigJson, false); err == nil {
				view.Config = cfg
			} else {
				klog.ErrorS(err, "failed to decode stored config", "id", row.Id)
			}
		}
	}
	return view
}

func applyDefaults(schema *drivers.ConfigSchema, cfg map[string]interface{}) {
	for i := range schema.Fields {
		field := &schema.Fields[i]
		if field.DefaultValue == nil {
			continue
		}
		if _, ok := cfg[field.Name]; !ok {
			cfg[field.Name] = field.DefaultValue
		}
	}
}

// parseTotalStorageBytes implements the limit column policy: absent on
// create means the default cap, explicit null means unlimited, the empty
// string normalizes to null, anything else must be a positive integer.
func parseTotalStorageBytes(raw json.RawMessage, creating bool) (sql.NullInt64, error) {
	if len(raw) == 0 {
		if creating {
			return sql.NullInt64{Int64: config.DefaultTotalStorageBytes, Valid: true}, nil
		}
		return sql.NullInt64{}, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return sql.NullInt64{}, nil
	}
	var n int64
	if err := jsonutil.Unmarshal(trimmed, &n); err != nil || n <= 0 {
		return sql.NullInt64{}, commonerrors.NewBadRequest(
			"total_storage_bytes must be a positive integer or null")
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func sameJsonValue(a, b interface{}) bool {
	return bytes.Equal(jsonutil.MarshalSilently(a), jsonutil.MarshalSilently(b))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
