/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

func TestOfficialBotCap(t *testing.T) {
	driver := NewDriver()

	assert.Equal(t, int64(OfficialBotMaxBytes), driver.MaxDirectUploadBytes(map[string]interface{}{}))
	assert.Equal(t, int64(OfficialBotMaxBytes), driver.MaxDirectUploadBytes(map[string]interface{}{
		"use_official_bot": true,
	}))
	assert.Zero(t, driver.MaxDirectUploadBytes(map[string]interface{}{
		"use_official_bot": false,
	}))
	assert.Zero(t, driver.MaxDirectUploadBytes(map[string]interface{}{
		"use_official_bot": "false",
	}))
}

func TestUploadRejectsOversizedOfficialBody(t *testing.T) {
	driver := NewDriver()
	cfg := map[string]interface{}{
		"bot_token": "123:abc",
		"chat_id":   "-100200300",
	}

	_, err := driver.Upload(context.Background(), cfg, "big.bin",
		strings.NewReader(""), OfficialBotMaxBytes+1, "application/octet-stream")
	require.Error(t, err)
	assert.True(t, commonerrors.IsRequestEntityTooLarge(err))
}

func TestUploadRequiresCredentials(t *testing.T) {
	_, err := NewDriver().Upload(context.Background(), map[string]interface{}{},
		"a.txt", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestPlanKeyUniquePrefix(t *testing.T) {
	driver := NewDriver()
	ctx := context.Background()

	first, err := driver.PlanKey(ctx, nil, "doc.pdf")
	require.NoError(t, err)
	second, err := driver.PlanKey(ctx, nil, "doc.pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(first, "/doc.pdf"))
	assert.NotEqual(t, first, second)
}

func TestApiBase(t *testing.T) {
	d := &driver{}

	assert.Equal(t, officialApiBase, d.apiBase(map[string]interface{}{}))
	assert.Equal(t, "https://tg.internal", d.apiBase(map[string]interface{}{
		"use_official_bot": false,
		"api_base_url":     "https://tg.internal/",
	}))
}
