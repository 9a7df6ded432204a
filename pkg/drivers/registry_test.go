/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

func TestRegistryClosedSet(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewMirrorDriver()))

	err := registry.Register(newRemoteDriver("FTP", "FTP", &ConfigSchema{}, Capabilities{}, probeConfigUrl("host")))
	assert.Error(t, err)

	err = registry.Register(NewMirrorDriver())
	assert.Error(t, err, "duplicate registration must fail")

	_, err = registry.Get("AZURE_BLOB")
	require.Error(t, err)
	assert.True(t, commonerrors.IsBadRequest(err) || commonerrors.IsStash(err))
}

func TestRegistryTypesSorted(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(NewWebDAVDriver())
	registry.MustRegister(NewGithubReleasesDriver())
	registry.MustRegister(NewMirrorDriver())

	assert.Equal(t, []string{TypeGithubReleases, TypeMirror, TypeWebDAV}, registry.Types())
}

func TestRegistryTestNormalizesEmptyReport(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&emptyReportDriver{Driver: NewMirrorDriver()})

	report, err := registry.Test(context.Background(), TypeMirror, map[string]interface{}{}, "")
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, TypeMirror, report.Type)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "contract", report.Checks[0].Name)
	assert.Equal(t, CheckFailed, report.Checks[0].Status)
}

type emptyReportDriver struct {
	Driver
}

func (d *emptyReportDriver) Test(context.Context, map[string]interface{}, string) (*TestReport, error) {
	return &TestReport{}, nil
}

func TestPredicateMatches(t *testing.T) {
	cfg := map[string]interface{}{
		"mode":    "official",
		"enabled": true,
		"count":   float64(3),
	}

	assert.True(t, (&Predicate{Field: "mode", Equals: "official"}).Matches(cfg))
	assert.False(t, (&Predicate{Field: "mode", Equals: "self_hosted"}).Matches(cfg))
	assert.True(t, (&Predicate{Field: "mode", Values: []string{"custom", "official"}}).Matches(cfg))
	assert.True(t, (&Predicate{Field: "enabled", Truthy: true}).Matches(cfg))
	assert.True(t, (&Predicate{Field: "count", Truthy: true}).Matches(cfg))
	assert.False(t, (&Predicate{Field: "missing", Truthy: true}).Matches(cfg))
}

func TestConfigSchemaSecretFields(t *testing.T) {
	schema := NewWebDAVDriver().Schema()
	assert.Equal(t, []string{"password"}, schema.SecretFields())
	require.NotNil(t, schema.Field("endpoint_url"))
	assert.Nil(t, schema.Field("nope"))
}

func TestSupportedPolicies(t *testing.T) {
	base := Capabilities{}
	assert.Equal(t, []string{PolicyNativeProxy}, SupportedPolicies(base, ""))
	assert.Equal(t, []string{PolicyNativeProxy, PolicyUseProxyUrl}, SupportedPolicies(base, "https://proxy.example.com"))

	direct := Capabilities{DirectLink: true}
	assert.Equal(t, []string{PolicyNativeProxy, Policy302Redirect}, SupportedPolicies(direct, ""))
}

func TestRemoteDriverPlanKey(t *testing.T) {
	driver := NewWebDAVDriver()

	key, err := driver.PlanKey(context.Background(), map[string]interface{}{"default_folder": "/shares/"}, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "shares/a.txt", key)

	key, err = driver.PlanKey(context.Background(), map[string]interface{}{}, "")
	require.NoError(t, err)
	assert.Len(t, key, 12, "empty filename gets a random slug")
}
