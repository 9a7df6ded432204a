/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
)

const conflictRenameTries = 5

type driver struct{}

// NewDriver returns the local disk driver. Keys are paths relative to the
// configured root and never escape it.
func NewDriver() drivers.Driver {
	return &driver{}
}

func (d *driver) Type() string {
	return drivers.TypeLocal
}

func (d *driver) DisplayName() string {
	return "Local Disk"
}

func (d *driver) Schema() *drivers.ConfigSchema {
	return &drivers.ConfigSchema{
		Fields: []drivers.Field{
			{Name: "root_path", Kind: drivers.KindString, Required: true, Validation: &drivers.Validation{Rule: drivers.RuleAbsPath}},
			{Name: "default_folder", Kind: drivers.KindString},
		},
		Layout: drivers.Layout{Groups: []drivers.LayoutGroup{
			{TitleKey: "storage.group.paths", Fields: []interface{}{"root_path", "default_folder"}},
		}},
	}
}

func (d *driver) Capabilities() drivers.Capabilities {
	return drivers.Capabilities{
		Share: drivers.ShareCapabilities{BackendStream: true, BackendForm: true, Url: true},
		Fs:    drivers.FsCapabilities{BackendStream: true, BackendForm: true},
	}
}

func (d *driver) rootPath(cfg map[string]interface{}) (string, error) {
	root, _ := cfg["root_path"].(string)
	if root == "" || !filepath.IsAbs(root) {
		return "", commonerrors.NewDriverError("root_path must be an absolute path", nil)
	}
	return filepath.Clean(root), nil
}

// resolve maps a storage key to a path under root, rejecting traversal.
func (d *driver) resolve(cfg map[string]interface{}, key string) (string, error) {
	root, err := d.rootPath(cfg)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(key))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", commonerrors.NewDriverError(fmt.Sprintf("key %s escapes the storage root", key), nil)
	}
	return full, nil
}

func (d *driver) PlanKey(_ context.Context, cfg map[string]interface{}, filename string) (string, error) {
	if filename == "" {
		filename = stringutil.RandomSlug(12)
	}
	folder, _ := cfg["default_folder"].(string)
	folder = stringutil.TrimLeadingSlashes(folder)
	key := path.Join(folder, filename)

	for i := 0; i < conflictRenameTries; i++ {
		full, err := d.resolve(cfg, key)
		if err != nil {
			return "", err
		}
		if _, statErr := os.Stat(full); os.IsNotExist(statErr) {
			return key, nil
		}
		ext := path.Ext(filename)
		base := strings.TrimSuffix(filename, ext)
		key = path.Join(folder, fmt.Sprintf("%s-%s%s", base, stringutil.RandomSlug(6), ext))
	}
	return key, nil
}

func (d *driver) Upload(_ context.Context, cfg map[string]interface{}, key string,
	body io.Reader, size int64, _ string) (*drivers.UploadResult, error) {
	full, err := d.resolve(cfg, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, commonerrors.NewDriverError(fmt.Sprintf("failed to create directory for %s", key), err)
	}
	file, err := os.Create(full)
	if err != nil {
		return nil, commonerrors.NewDriverError(fmt.Sprintf("failed to create %s", key), err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		os.Remove(full)
		return nil, commonerrors.NewDriverError(fmt.Sprintf("failed to write %s", key), err)
	}
	if size > 0 && written != size {
		os.Remove(full)
		return nil, commonerrors.NewDriverError(
			fmt.Sprintf("short write for %s: expected %d bytes, got %d", key, size, written), nil)
	}
	return &drivers.UploadResult{Key: key, Size: written}, nil
}

func (d *driver) PresignPut(context.Context, map[string]interface{}, string, time.Duration) (string, error) {
	return "", commonerrors.NewNotImplemented("the LOCAL driver does not presign uploads")
}

func (d *driver) MaxDirectUploadBytes(map[string]interface{}) int64 {
	return 0
}

// Test checks the root exists, is a directory and is writable.
func (d *driver) Test(_ context.Context, cfg map[string]interface{}, _ string) (*drivers.TestReport, error) {
	report := &drivers.TestReport{Type: drivers.TypeLocal}

	root, err := d.rootPath(cfg)
	if err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "config",
			Status:  drivers.CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "config", Status: drivers.CheckOK})

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "root",
			Status:  drivers.CheckFailed,
			Message: fmt.Sprintf("%s is not an existing directory", root),
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "root", Status: drivers.CheckOK})

	probe := filepath.Join(root, fmt.Sprintf(".stashbin-probe-%s", stringutil.RandomSlug(8)))
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "write",
			Status:  drivers.CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	os.Remove(probe)
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "write", Status: drivers.CheckOK})
	report.Success = true
	return report, nil
}
