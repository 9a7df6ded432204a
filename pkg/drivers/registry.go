/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

// Registry maps a storage_type tag to its driver. Registration happens once
// at server init; lookups afterwards are read-only.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewRegistry() *Registry {
	return &Registry{drivers: map[string]Driver{}}
}

func (r *Registry) Register(driver Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := driver.Type()
	if !isKnownType(tag) {
		return fmt.Errorf("storage type %q is not part of the closed driver set", tag)
	}
	if _, ok := r.drivers[tag]; ok {
		return fmt.Errorf("storage type %q registered twice", tag)
	}
	r.drivers[tag] = driver
	return nil
}

func (r *Registry) MustRegister(driver Driver) {
	if err := r.Register(driver); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(storageType string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	driver, ok := r.drivers[storageType]
	if !ok {
		return nil, commonerrors.NewStorageTypeUnknown(storageType)
	}
	return driver, nil
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.drivers))
	for tag := range r.drivers {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// Test runs the driver's tester and normalizes the report: a report without
// checks gets a synthetic contract failure appended.
func (r *Registry) Test(ctx context.Context, storageType string, cfg map[string]interface{}, origin string) (*TestReport, error) {
	driver, err := r.Get(storageType)
	if err != nil {
		return nil, err
	}
	report, err := driver.Test(ctx, cfg, origin)
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = &TestReport{Type: storageType}
	}
	if report.Type == "" {
		report.Type = storageType
	}
	if len(report.Checks) == 0 {
		report.Success = false
		report.Checks = append(report.Checks, TestCheck{
			Name:    "contract",
			Status:  CheckFailed,
			Message: "tester returned no checks",
		})
	}
	return report, nil
}

func isKnownType(tag string) bool {
	switch tag {
	case TypeS3, TypeWebDAV, TypeOneDrive, TypeGoogleDrive,
		TypeGithubReleases, TypeTelegram, TypeLocal, TypeMirror:
		return true
	}
	return false
}
