/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package share

import (
	"io"

	"github.com/stashbin/stashbin/pkg/database/client"
)

// Subject is the authenticated principal behind an upload. Exactly one of
// AdminId and ApiKeyId is set.
type Subject struct {
	AdminId  string
	ApiKeyId string
}

func (s Subject) IsAdmin() bool {
	return s.AdminId != ""
}

// ACLSubject is the key used in the principal_storage_acl table.
func (s Subject) ACLSubject() string {
	return client.ApiKeySubjectPrefix + s.ApiKeyId
}

// CreatorTag is the created_by value written to share records.
func (s Subject) CreatorTag() string {
	if s.IsAdmin() {
		return s.AdminId
	}
	return client.ApiKeyCreatorPrefix + s.ApiKeyId
}

// Options carries the share-record knobs common to every creation path.
type Options struct {
	Slug           string
	UpdateIfExists bool
	Password       string
	ExpiresAt      string
	MaxViews       int64
	UseProxy       bool
	Remark         string
}

type UploadRequest struct {
	Filename        string
	Size            int64
	MimeType        string
	Body            io.Reader
	StorageConfigId string
	Options         Options
}

type PresignInitRequest struct {
	Filename        string
	Size            int64
	MimeType        string
	StorageConfigId string
}

type PresignInitResult struct {
	UploadUrl       string `json:"upload_url"`
	Key             string `json:"key"`
	StorageConfigId string `json:"storage_config_id"`
}

// PresignCommitRequest finalizes a presigned upload: the client already put
// the bytes at Key and reports what landed there.
type PresignCommitRequest struct {
	StorageConfigId string
	Key             string
	Filename        string
	Size            int64
	Etag            string
	MimeType        string
	Options         Options
}

// FsShareRequest creates a share pointing at an existing filesystem entry,
// no bytes move.
type FsShareRequest struct {
	FilePath        string
	Filename        string
	Size            int64
	MimeType        string
	StorageConfigId string
	Options         Options
}

type UrlMetadata struct {
	Url           string `json:"url"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
	LastModified  string `json:"last_modified"`
	Filename      string `json:"filename"`
}
