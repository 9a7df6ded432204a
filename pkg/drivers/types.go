/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

import (
	"context"
	"io"
	"time"
)

// Storage type tags. The set is closed: a tag outside this list is a
// registry-time error, never a runtime string match.
const (
	TypeS3             = "S3"
	TypeWebDAV         = "WEBDAV"
	TypeOneDrive       = "ONEDRIVE"
	TypeGoogleDrive    = "GOOGLE_DRIVE"
	TypeGithubReleases = "GITHUB_RELEASES"
	TypeTelegram       = "TELEGRAM"
	TypeLocal          = "LOCAL"
	TypeMirror         = "MIRROR"
)

type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindEnum    FieldKind = "enum"
	KindSecret  FieldKind = "secret"
)

type ValidationRule string

const (
	RuleURL     ValidationRule = "url"
	RuleAbsPath ValidationRule = "abs_path"
)

// Predicate is a data-only condition over a sibling field.
type Predicate struct {
	Field  string   `json:"field"`
	Equals string   `json:"equals,omitempty"`
	Values []string `json:"values,omitempty"`
	Truthy bool     `json:"truthy,omitempty"`
}

// Matches evaluates the predicate against a raw config bag.
func (p *Predicate) Matches(cfg map[string]interface{}) bool {
	if p == nil {
		return true
	}
	value, ok := cfg[p.Field]
	if p.Truthy {
		return ok && isTruthy(value)
	}
	str, _ := value.(string)
	if p.Equals != "" {
		return str == p.Equals
	}
	for _, candidate := range p.Values {
		if str == candidate {
			return true
		}
	}
	return false
}

func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != "" && val != "0" && val != "false"
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return v != nil
	}
}

type Validation struct {
	Rule ValidationRule `json:"rule"`
}

type Field struct {
	Name             string      `json:"name"`
	Kind             FieldKind   `json:"type"`
	Required         bool        `json:"required,omitempty"`
	RequiredOnCreate bool        `json:"requiredOnCreate,omitempty"`
	RequiredWhen     *Predicate  `json:"requiredWhen,omitempty"`
	DisabledWhen     *Predicate  `json:"disabledWhen,omitempty"`
	DependsOn        string      `json:"dependsOn,omitempty"`
	EnumValues       []string    `json:"enumValues,omitempty"`
	DefaultValue     interface{} `json:"defaultValue,omitempty"`
	Validation       *Validation `json:"validation,omitempty"`
}

// LayoutGroup entries are either a field name or a row of field names.
type LayoutGroup struct {
	TitleKey string        `json:"titleKey"`
	Fields   []interface{} `json:"fields"`
}

type Layout struct {
	Groups []LayoutGroup `json:"groups"`
}

type ConfigSchema struct {
	Fields []Field `json:"fields"`
	Layout Layout  `json:"layout"`
}

// SecretFields lists the schema's secret field names.
func (s *ConfigSchema) SecretFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == KindSecret {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *ConfigSchema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

type ShareCapabilities struct {
	BackendStream bool `json:"backendStream"`
	BackendForm   bool `json:"backendForm"`
	Presigned     bool `json:"presigned"`
	Url           bool `json:"url"`
}

type FsCapabilities struct {
	BackendStream   bool `json:"backendStream"`
	BackendForm     bool `json:"backendForm"`
	PresignedSingle bool `json:"presignedSingle"`
	Multipart       bool `json:"multipart"`
}

type Capabilities struct {
	Share      ShareCapabilities `json:"share"`
	Fs         FsCapabilities    `json:"fs"`
	DirectLink bool              `json:"directLink"`
	ReadOnly   bool              `json:"readOnly"`
}

type TestCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	CheckOK     = "ok"
	CheckFailed = "failed"
)

// TestReport is the normalized result of a connectivity test. Checks is
// always non-nil once the report passes through the registry.
type TestReport struct {
	Success bool        `json:"success"`
	Type    string      `json:"type"`
	Checks  []TestCheck `json:"checks"`
}

type UploadResult struct {
	Key  string
	Etag string
	Size int64
}

// Driver is the capability interface every storage backend implements.
// The config bag arrives with secrets already decrypted.
type Driver interface {
	Type() string
	DisplayName() string
	Schema() *ConfigSchema
	Capabilities() Capabilities

	// PlanKey computes the storage key an upload will land at, applying the
	// driver's naming policy and conflict renaming before any byte moves.
	PlanKey(ctx context.Context, cfg map[string]interface{}, filename string) (string, error)

	Upload(ctx context.Context, cfg map[string]interface{}, key string, body io.Reader, size int64, mimeType string) (*UploadResult, error)

	// PresignPut returns a URL the client uploads to directly; drivers
	// without presign support return a NotImplemented error.
	PresignPut(ctx context.Context, cfg map[string]interface{}, key string, expires time.Duration) (string, error)

	// MaxDirectUploadBytes is zero when the driver imposes no body cap.
	MaxDirectUploadBytes(cfg map[string]interface{}) int64

	Test(ctx context.Context, cfg map[string]interface{}, origin string) (*TestReport, error)
}
