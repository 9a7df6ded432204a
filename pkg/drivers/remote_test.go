/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashbin/stashbin/pkg/utils/httpclient"
)

type stubProbeClient struct {
	lastUrl string
	status  int
	err     error
}

func (s *stubProbeClient) Head(_ context.Context, url string) (*httpclient.Result, error) {
	s.lastUrl = url
	if s.err != nil {
		return nil, s.err
	}
	return &httpclient.Result{StatusCode: s.status}, nil
}

func (s *stubProbeClient) Get(ctx context.Context, url string) (*httpclient.Result, error) {
	return s.Head(ctx, url)
}

func (s *stubProbeClient) Fetch(ctx context.Context, url string) (*httpclient.Result, error) {
	return s.Head(ctx, url)
}

func (s *stubProbeClient) Post(context.Context, string, string, io.Reader) (*httpclient.Result, error) {
	return nil, nil
}

func probeWith(t *testing.T, d Driver, cfg map[string]interface{}) (*TestReport, *stubProbeClient) {
	t.Helper()
	remote, ok := d.(*remoteDriver)
	require.True(t, ok)
	stub := &stubProbeClient{status: 200}
	remote.httpClient = stub
	report, err := remote.Test(context.Background(), cfg, "")
	require.NoError(t, err)
	return report, stub
}

// Config fields that hold identifiers must never be headed verbatim; the
// probe targets the backend's API host.
func TestRemoteDriverProbeTargets(t *testing.T) {
	report, stub := probeWith(t, NewGithubReleasesDriver(),
		map[string]interface{}{"repo": "octo/stash"})
	assert.True(t, report.Success)
	assert.Equal(t, "https://api.github.com/repos/octo/stash/releases", stub.lastUrl)

	report, stub = probeWith(t, NewGoogleDriveDriver(),
		map[string]interface{}{"folder_id": "1AbCdEf"})
	assert.True(t, report.Success)
	assert.True(t, strings.HasPrefix(stub.lastUrl, "https://www.googleapis.com/"), stub.lastUrl)
	assert.NotContains(t, stub.lastUrl, "1AbCdEf")

	report, stub = probeWith(t, NewOneDriveDriver(),
		map[string]interface{}{"default_folder": "/shares"})
	assert.True(t, report.Success)
	assert.True(t, strings.HasPrefix(stub.lastUrl, "https://graph.microsoft.com/"), stub.lastUrl)

	report, stub = probeWith(t, NewMirrorDriver(),
		map[string]interface{}{"upstream_url": "https://mirror.example.com/pool"})
	assert.True(t, report.Success)
	assert.Equal(t, "https://mirror.example.com/pool", stub.lastUrl)
}

func TestRemoteDriverProbeMissingConfig(t *testing.T) {
	report, stub := probeWith(t, NewGithubReleasesDriver(), map[string]interface{}{})
	assert.False(t, report.Success)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "config", report.Checks[0].Name)
	assert.Empty(t, stub.lastUrl, "nothing should be headed without a repo")
}

func TestRemoteDriverProbeAuthChallengeCountsAsAlive(t *testing.T) {
	remote := NewGoogleDriveDriver().(*remoteDriver)
	remote.httpClient = &stubProbeClient{status: 401}
	report, err := remote.Test(context.Background(), map[string]interface{}{}, "")
	require.NoError(t, err)
	assert.True(t, report.Success)
}
