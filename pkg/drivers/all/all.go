/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package all assembles the full closed driver set into one registry.
package all

import (
	"github.com/stashbin/stashbin/pkg/drivers"
	"github.com/stashbin/stashbin/pkg/drivers/local"
	"github.com/stashbin/stashbin/pkg/drivers/s3"
	"github.com/stashbin/stashbin/pkg/drivers/telegram"
)

// NewRegistry builds a registry with every supported storage type registered.
func NewRegistry() *drivers.Registry {
	registry := drivers.NewRegistry()
	registry.MustRegister(s3.NewDriver())
	registry.MustRegister(local.NewDriver())
	registry.MustRegister(telegram.NewDriver())
	registry.MustRegister(drivers.NewWebDAVDriver())
	registry.MustRegister(drivers.NewOneDriveDriver())
	registry.MustRegister(drivers.NewGoogleDriveDriver())
	registry.MustRegister(drivers.NewGithubReleasesDriver())
	registry.MustRegister(drivers.NewMirrorDriver())
	return registry
}
