/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/httpclient"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
)

// remoteDriver carries schema, capabilities and a connectivity tester for
// backends whose wire protocol lives outside this process. Upload traffic for
// these types flows through presigned or client-side paths, so the backend
// upload primitives report NotImplemented.
type remoteDriver struct {
	tag         string
	displayName string
	schema      *ConfigSchema
	caps        Capabilities
	probeUrl    probeUrlFunc
	httpClient  httpclient.Interface
}

// probeUrlFunc derives the URL the connectivity check heads. Config fields
// that hold identifiers rather than URLs (a drive folder id, a github repo)
// need their backend's API URL synthesized here.
type probeUrlFunc func(cfg map[string]interface{}) (string, error)

func newRemoteDriver(tag, displayName string, schema *ConfigSchema, caps Capabilities, probeUrl probeUrlFunc) *remoteDriver {
	return &remoteDriver{
		tag:         tag,
		displayName: displayName,
		schema:      schema,
		caps:        caps,
		probeUrl:    probeUrl,
		httpClient:  httpclient.NewHttpClient(),
	}
}

// probeConfigUrl heads a URL taken verbatim from the named config field.
func probeConfigUrl(field string) probeUrlFunc {
	return func(cfg map[string]interface{}) (string, error) {
		raw, _ := cfg[field].(string)
		if raw == "" {
			return "", fmt.Errorf("%s is not set", field)
		}
		return raw, nil
	}
}

// probeFixedUrl heads a well-known API endpoint regardless of config.
func probeFixedUrl(url string) probeUrlFunc {
	return func(map[string]interface{}) (string, error) {
		return url, nil
	}
}

func (d *remoteDriver) Type() string {
	return d.tag
}

func (d *remoteDriver) DisplayName() string {
	return d.displayName
}

func (d *remoteDriver) Schema() *ConfigSchema {
	return d.schema
}

func (d *remoteDriver) Capabilities() Capabilities {
	return d.caps
}

func (d *remoteDriver) PlanKey(_ context.Context, cfg map[string]interface{}, filename string) (string, error) {
	if filename == "" {
		filename = stringutil.RandomSlug(12)
	}
	folder, _ := cfg["default_folder"].(string)
	return path.Join(stringutil.TrimLeadingSlashes(folder), filename), nil
}

func (d *remoteDriver) Upload(context.Context, map[string]interface{}, string, io.Reader, int64, string) (*UploadResult, error) {
	return nil, commonerrors.NewNotImplemented(
		fmt.Sprintf("the %s driver has no backend upload path", d.tag))
}

func (d *remoteDriver) PresignPut(context.Context, map[string]interface{}, string, time.Duration) (string, error) {
	return "", commonerrors.NewNotImplemented(
		fmt.Sprintf("the %s driver does not presign uploads", d.tag))
}

func (d *remoteDriver) MaxDirectUploadBytes(map[string]interface{}) int64 {
	return 0
}

// Test probes the backend endpoint for reachability.
func (d *remoteDriver) Test(ctx context.Context, cfg map[string]interface{}, _ string) (*TestReport, error) {
	report := &TestReport{Type: d.tag}
	endpoint, err := d.probeUrl(cfg)
	if err != nil {
		report.Checks = append(report.Checks, TestCheck{
			Name:    "config",
			Status:  CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	result, err := d.httpClient.Head(ctx, endpoint)
	if err != nil {
		report.Checks = append(report.Checks, TestCheck{
			Name:    "connectivity",
			Status:  CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	// Auth challenges still prove the endpoint is alive.
	if result.StatusCode >= 500 {
		report.Checks = append(report.Checks, TestCheck{
			Name:    "connectivity",
			Status:  CheckFailed,
			Message: result.String(),
		})
		return report, nil
	}
	report.Success = true
	report.Checks = append(report.Checks, TestCheck{Name: "connectivity", Status: CheckOK})
	return report, nil
}
