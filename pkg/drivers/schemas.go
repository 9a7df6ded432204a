/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"fmt"
	"strings"
)

// Schema and capability declarations for backends whose wire protocols live
// outside this process. The S3, LOCAL and TELEGRAM drivers carry their own
// declarations next to their implementations.

// githubReleasesProbeUrl heads the repo's releases listing on the API host;
// the repo config field is an "owner/name" identifier, not a URL.
func githubReleasesProbeUrl(cfg map[string]interface{}) (string, error) {
	repo, _ := cfg["repo"].(string)
	if repo == "" {
		return "", fmt.Errorf("repo is not set")
	}
	return "https://api.github.com/repos/" + strings.Trim(repo, "/") + "/releases", nil
}

func NewWebDAVDriver() Driver {
	schema := &ConfigSchema{
		Fields: []Field{
			{Name: "endpoint_url", Kind: KindString, Required: true, Validation: &Validation{Rule: RuleURL}},
			{Name: "username", Kind: KindString, Required: true},
			{Name: "password", Kind: KindSecret, RequiredOnCreate: true},
			{Name: "default_folder", Kind: KindString},
		},
		Layout: Layout{Groups: []LayoutGroup{
			{TitleKey: "storage.group.connection", Fields: []interface{}{"endpoint_url", []string{"username", "password"}}},
			{TitleKey: "storage.group.paths", Fields: []interface{}{"default_folder"}},
		}},
	}
	caps := Capabilities{
		Share: ShareCapabilities{BackendStream: true, Url: true},
		Fs:    FsCapabilities{BackendStream: true},
	}
	return newRemoteDriver(TypeWebDAV, "WebDAV", schema, caps, probeConfigUrl("endpoint_url"))
}

func NewOneDriveDriver() Driver {
	schema := &ConfigSchema{
		Fields: []Field{
			{Name: "client_id", Kind: KindString, Required: true},
			{Name: "client_secret", Kind: KindSecret, RequiredOnCreate: true},
			{Name: "refresh_token", Kind: KindSecret, RequiredOnCreate: true},
			{Name: "default_folder", Kind: KindString},
		},
		Layout: Layout{Groups: []LayoutGroup{
			{TitleKey: "storage.group.oauth", Fields: []interface{}{"client_id", "client_secret", "refresh_token"}},
			{TitleKey: "storage.group.paths", Fields: []interface{}{"default_folder"}},
		}},
	}
	caps := Capabilities{
		Share:      ShareCapabilities{BackendStream: true, Url: true},
		Fs:         FsCapabilities{BackendStream: true, PresignedSingle: true},
		DirectLink: true,
	}
	// default_folder is a path, not a URL: probe the Graph API host instead.
	return newRemoteDriver(TypeOneDrive, "OneDrive", schema, caps,
		probeFixedUrl("https://graph.microsoft.com/v1.0/"))
}

func NewGoogleDriveDriver() Driver {
	schema := &ConfigSchema{
		Fields: []Field{
			{Name: "service_account_json", Kind: KindSecret, RequiredOnCreate: true},
			{Name: "folder_id", Kind: KindString, Required: true},
			{Name: "default_folder", Kind: KindString},
		},
		Layout: Layout{Groups: []LayoutGroup{
			{TitleKey: "storage.group.credentials", Fields: []interface{}{"service_account_json"}},
			{TitleKey: "storage.group.paths", Fields: []interface{}{"folder_id", "default_folder"}},
		}},
	}
	caps := Capabilities{
		Share: ShareCapabilities{BackendStream: true},
		Fs:    FsCapabilities{BackendStream: true},
	}
	// folder_id is an identifier, not a URL: probe the Drive API host instead.
	return newRemoteDriver(TypeGoogleDrive, "Google Drive", schema, caps,
		probeFixedUrl("https://www.googleapis.com/drive/v3/about"))
}

func NewGithubReleasesDriver() Driver {
	schema := &ConfigSchema{
		Fields: []Field{
			{Name: "repo", Kind: KindString, Required: true},
			{Name: "token", Kind: KindSecret, RequiredOnCreate: true},
			{Name: "release_tag", Kind: KindString},
		},
		Layout: Layout{Groups: []LayoutGroup{
			{TitleKey: "storage.group.repository", Fields: []interface{}{"repo", "release_tag"}},
			{TitleKey: "storage.group.credentials", Fields: []interface{}{"token"}},
		}},
	}
	caps := Capabilities{
		Share:      ShareCapabilities{Url: true},
		DirectLink: true,
	}
	return newRemoteDriver(TypeGithubReleases, "GitHub Releases", schema, caps, githubReleasesProbeUrl)
}

func NewMirrorDriver() Driver {
	schema := &ConfigSchema{
		Fields: []Field{
			{Name: "upstream_url", Kind: KindString, Required: true, Validation: &Validation{Rule: RuleURL}},
		},
		Layout: Layout{Groups: []LayoutGroup{
			{TitleKey: "storage.group.upstream", Fields: []interface{}{"upstream_url"}},
		}},
	}
	caps := Capabilities{
		Share:      ShareCapabilities{Url: true},
		DirectLink: true,
		ReadOnly:   true,
	}
	return newRemoteDriver(TypeMirror, "Mirror", schema, caps, probeConfigUrl("upstream_url"))
}
