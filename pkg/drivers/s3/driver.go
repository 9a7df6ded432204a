/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
)

const (
	// DefaultPresignExpires bounds presigned PUT URLs when the config does
	// not set signature_expires_seconds.
	DefaultPresignExpires = 3600 * time.Second

	conflictRenameTries = 5
)

type driver struct{}

// NewDriver returns the S3-compatible object storage driver. It speaks to any
// endpoint that implements the S3 API, including MinIO and R2.
func NewDriver() drivers.Driver {
	return &driver{}
}

func (d *driver) Type() string {
	return drivers.TypeS3
}

func (d *driver) DisplayName() string {
	return "S3 Compatible"
}

func (d *driver) Schema() *drivers.ConfigSchema {
	return &drivers.ConfigSchema{
		Fields: []drivers.Field{
			{Name: "endpoint_url", Kind: drivers.KindString, Required: true, Validation: &drivers.Validation{Rule: drivers.RuleURL}},
			{Name: "bucket_name", Kind: drivers.KindString, Required: true},
			{Name: "region", Kind: drivers.KindString, DefaultValue: "auto"},
			{Name: "access_key_id", Kind: drivers.KindSecret, RequiredOnCreate: true},
			{Name: "secret_access_key", Kind: drivers.KindSecret, RequiredOnCreate: true},
			{Name: "path_style", Kind: drivers.KindBoolean, DefaultValue: false},
			{Name: "default_folder", Kind: drivers.KindString},
			{Name: "custom_host", Kind: drivers.KindString, Validation: &drivers.Validation{Rule: drivers.RuleURL}},
			{Name: "signature_expires_seconds", Kind: drivers.KindNumber, DefaultValue: 3600},
		},
		Layout: drivers.Layout{Groups: []drivers.LayoutGroup{
			{TitleKey: "storage.group.connection", Fields: []interface{}{"endpoint_url", []string{"bucket_name", "region"}, "path_style"}},
			{TitleKey: "storage.group.credentials", Fields: []interface{}{[]string{"access_key_id", "secret_access_key"}}},
			{TitleKey: "storage.group.advanced", Fields: []interface{}{"default_folder", "custom_host", "signature_expires_seconds"}},
		}},
	}
}

func (d *driver) Capabilities() drivers.Capabilities {
	return drivers.Capabilities{
		Share: drivers.ShareCapabilities{
			BackendStream: true,
			BackendForm:   true,
			Presigned:     true,
			Url:           true,
		},
		Fs: drivers.FsCapabilities{
			BackendStream:   true,
			BackendForm:     true,
			PresignedSingle: true,
			Multipart:       true,
		},
		DirectLink: true,
	}
}

func (d *driver) client(cfg map[string]interface{}) (*awss3.Client, string, error) {
	endpoint := cfgString(cfg, "endpoint_url")
	bucket := cfgString(cfg, "bucket_name")
	ak := cfgString(cfg, "access_key_id")
	sk := cfgString(cfg, "secret_access_key")
	if endpoint == "" || bucket == "" || ak == "" || sk == "" {
		return nil, "", commonerrors.NewDriverError("s3 config is missing endpoint, bucket or credentials", nil)
	}
	region := cfgString(cfg, "region")
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ak, sk, "")),
	)
	if err != nil {
		return nil, "", commonerrors.NewDriverError("failed to build s3 client config", err)
	}

	cli := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfgBool(cfg, "path_style")
	})
	return cli, bucket, nil
}

// PlanKey joins the configured folder with the filename and renames on
// conflict by suffixing a short random tag before the extension.
func (d *driver) PlanKey(ctx context.Context, cfg map[string]interface{}, filename string) (string, error) {
	if filename == "" {
		filename = stringutil.RandomSlug(12)
	}
	folder := stringutil.TrimLeadingSlashes(cfgString(cfg, "default_folder"))
	key := path.Join(folder, filename)

	cli, bucket, err := d.client(cfg)
	if err != nil {
		return "", err
	}
	for i := 0; i < conflictRenameTries; i++ {
		_, headErr := cli.HeadObject(ctx, &awss3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if headErr != nil {
			// Absent object is the normal case; treat any head failure
			// as "free" and let the upload surface real errors.
			return key, nil
		}
		key = path.Join(folder, renameOnConflict(filename))
	}
	return key, nil
}

func renameOnConflict(filename string) string {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s-%s%s", base, stringutil.RandomSlug(6), ext)
}

func (d *driver) Upload(ctx context.Context, cfg map[string]interface{}, key string,
	body io.Reader, size int64, mimeType string) (*drivers.UploadResult, error) {
	cli, bucket, err := d.client(cfg)
	if err != nil {
		return nil, err
	}
	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	output, err := cli.PutObject(ctx, input)
	if err != nil {
		return nil, commonerrors.NewDriverError(fmt.Sprintf("s3 put object %s failed", key), err)
	}
	result := &drivers.UploadResult{Key: key, Size: size}
	if output.ETag != nil {
		result.Etag = strings.Trim(*output.ETag, `"`)
	}
	return result, nil
}

func (d *driver) PresignPut(ctx context.Context, cfg map[string]interface{}, key string,
	expires time.Duration) (string, error) {
	cli, bucket, err := d.client(cfg)
	if err != nil {
		return "", err
	}
	if expires <= 0 {
		expires = presignExpires(cfg)
	}
	presigner := awss3.NewPresignClient(cli)
	resp, err := presigner.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(o *awss3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", commonerrors.NewDriverError(fmt.Sprintf("s3 presign put %s failed", key), err)
	}
	return resp.URL, nil
}

func presignExpires(cfg map[string]interface{}) time.Duration {
	if secs := cfgInt64(cfg, "signature_expires_seconds"); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return DefaultPresignExpires
}

func (d *driver) MaxDirectUploadBytes(map[string]interface{}) int64 {
	return 0
}

// Test verifies the bucket is reachable with the configured credentials and
// that object writes round-trip.
func (d *driver) Test(ctx context.Context, cfg map[string]interface{}, _ string) (*drivers.TestReport, error) {
	report := &drivers.TestReport{Type: drivers.TypeS3}

	cli, bucket, err := d.client(cfg)
	if err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "config",
			Status:  drivers.CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "config", Status: drivers.CheckOK})

	if _, err := cli.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "bucket",
			Status:  drivers.CheckFailed,
			Message: fmt.Sprintf("head bucket %s failed: %v", bucket, err),
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "bucket", Status: drivers.CheckOK})

	probeKey := path.Join(stringutil.TrimLeadingSlashes(cfgString(cfg, "default_folder")),
		fmt.Sprintf(".stashbin-probe-%s", stringutil.RandomSlug(8)))
	if _, err := cli.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(probeKey),
		Body:   strings.NewReader("probe"),
	}); err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "write",
			Status:  drivers.CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	_, _ = cli.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(probeKey),
	})
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "write", Status: drivers.CheckOK})
	report.Success = true
	return report, nil
}

func cfgString(cfg map[string]interface{}, key string) string {
	v, _ := cfg[key].(string)
	return v
}

func cfgBool(cfg map[string]interface{}, key string) bool {
	switch v := cfg[key].(type) {
	case bool:
		return v
	case string:
		return v == "1" || v == "true"
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

func cfgInt64(cfg map[string]interface{}, key string) int64 {
	switch v := cfg[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var n int64
		_, _ = fmt.Sscan(v, &n)
		return n
	}
	return 0
}
