/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/httpclient"
	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
)

const (
	// OfficialBotMaxBytes is the document size cap the hosted Bot API
	// enforces on uploads. Self-hosted bot servers have no such cap.
	OfficialBotMaxBytes = 20 * 1024 * 1024

	officialApiBase = "https://api.telegram.org"
)

type driver struct {
	httpClient httpclient.Interface
}

// NewDriver returns the Telegram Bot storage driver. Files are sent as
// documents to the configured chat; the returned message id becomes part of
// the storage key.
func NewDriver() drivers.Driver {
	return &driver{httpClient: httpclient.NewHttpClient()}
}

func (d *driver) Type() string {
	return drivers.TypeTelegram
}

func (d *driver) DisplayName() string {
	return "Telegram Bot"
}

func (d *driver) Schema() *drivers.ConfigSchema {
	return &drivers.ConfigSchema{
		Fields: []drivers.Field{
			{Name: "bot_token", Kind: drivers.KindSecret, RequiredOnCreate: true},
			{Name: "chat_id", Kind: drivers.KindString, Required: true},
			{Name: "use_official_bot", Kind: drivers.KindBoolean, DefaultValue: true},
			{
				Name:         "api_base_url",
				Kind:         drivers.KindString,
				Validation:   &drivers.Validation{Rule: drivers.RuleURL},
				DependsOn:    "use_official_bot",
				DisabledWhen: &drivers.Predicate{Field: "use_official_bot", Truthy: true},
			},
		},
		Layout: drivers.Layout{Groups: []drivers.LayoutGroup{
			{TitleKey: "storage.group.bot", Fields: []interface{}{"bot_token", "chat_id"}},
			{TitleKey: "storage.group.server", Fields: []interface{}{"use_official_bot", "api_base_url"}},
		}},
	}
}

func (d *driver) Capabilities() drivers.Capabilities {
	return drivers.Capabilities{
		Share: drivers.ShareCapabilities{BackendStream: true, BackendForm: true, Url: true},
		Fs:    drivers.FsCapabilities{BackendStream: true},
	}
}

func (d *driver) apiBase(cfg map[string]interface{}) string {
	if isOfficialBot(cfg) {
		return officialApiBase
	}
	base, _ := cfg["api_base_url"].(string)
	if base == "" {
		return officialApiBase
	}
	return strings.TrimRight(base, "/")
}

func isOfficialBot(cfg map[string]interface{}) bool {
	v, ok := cfg["use_official_bot"]
	if !ok {
		return true
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "false" && b != "0"
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return true
}

func (d *driver) PlanKey(_ context.Context, _ map[string]interface{}, filename string) (string, error) {
	if filename == "" {
		filename = stringutil.RandomSlug(12)
	}
	// Message ids are assigned at send time; a random prefix keeps planned
	// keys unique before the upload lands.
	return fmt.Sprintf("%s/%s", stringutil.RandomSlug(8), filename), nil
}

type sendDocumentResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageId int64 `json:"message_id"`
		Document  struct {
			FileId   string `json:"file_id"`
			FileSize int64  `json:"file_size"`
		} `json:"document"`
	} `json:"result"`
}

func (d *driver) Upload(ctx context.Context, cfg map[string]interface{}, key string,
	body io.Reader, size int64, mimeType string) (*drivers.UploadResult, error) {
	token, _ := cfg["bot_token"].(string)
	chatId, _ := cfg["chat_id"].(string)
	if token == "" || chatId == "" {
		return nil, commonerrors.NewDriverError("telegram config is missing bot_token or chat_id", nil)
	}
	if isOfficialBot(cfg) && size > OfficialBotMaxBytes {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the official Telegram bot API rejects files over %d bytes", int64(OfficialBotMaxBytes)))
	}

	filename := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		filename = key[idx+1:]
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("chat_id", chatId); err != nil {
		return nil, commonerrors.NewDriverError("failed to build telegram form", err)
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return nil, commonerrors.NewDriverError("failed to build telegram form", err)
	}
	written, err := io.Copy(part, body)
	if err != nil {
		return nil, commonerrors.NewDriverError("failed to read upload body", err)
	}
	if err := writer.Close(); err != nil {
		return nil, commonerrors.NewDriverError("failed to build telegram form", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", d.apiBase(cfg), token)
	result, err := d.httpClient.Post(ctx, url, writer.FormDataContentType(), &form)
	if err != nil {
		return nil, commonerrors.NewDriverError("telegram sendDocument request failed", err)
	}
	var resp sendDocumentResponse
	if err := jsonutil.Unmarshal(result.Body, &resp); err != nil || !resp.Ok {
		message := resp.Description
		if message == "" {
			message = result.String()
		}
		return nil, commonerrors.NewDriverError(fmt.Sprintf("telegram sendDocument failed: %s", message), nil)
	}

	uploadSize := resp.Result.Document.FileSize
	if uploadSize == 0 {
		uploadSize = written
	}
	return &drivers.UploadResult{
		Key:  fmt.Sprintf("%d/%s", resp.Result.MessageId, filename),
		Etag: resp.Result.Document.FileId,
		Size: uploadSize,
	}, nil
}

func (d *driver) PresignPut(context.Context, map[string]interface{}, string, time.Duration) (string, error) {
	return "", commonerrors.NewNotImplemented("the TELEGRAM driver does not presign uploads")
}

func (d *driver) MaxDirectUploadBytes(cfg map[string]interface{}) int64 {
	if isOfficialBot(cfg) {
		return OfficialBotMaxBytes
	}
	return 0
}

type getMeResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		Username string `json:"username"`
	} `json:"result"`
}

// Test calls getMe to verify the token against the configured API server.
func (d *driver) Test(ctx context.Context, cfg map[string]interface{}, _ string) (*drivers.TestReport, error) {
	report := &drivers.TestReport{Type: drivers.TypeTelegram}

	token, _ := cfg["bot_token"].(string)
	chatId, _ := cfg["chat_id"].(string)
	if token == "" || chatId == "" {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "config",
			Status:  drivers.CheckFailed,
			Message: "bot_token and chat_id are required",
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{Name: "config", Status: drivers.CheckOK})

	result, err := d.httpClient.Fetch(ctx, fmt.Sprintf("%s/bot%s/getMe", d.apiBase(cfg), token))
	if err != nil {
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "auth",
			Status:  drivers.CheckFailed,
			Message: err.Error(),
		})
		return report, nil
	}
	var resp getMeResponse
	if err := jsonutil.Unmarshal(result.Body, &resp); err != nil || !resp.Ok {
		message := resp.Description
		if message == "" {
			message = result.String()
		}
		report.Checks = append(report.Checks, drivers.TestCheck{
			Name:    "auth",
			Status:  drivers.CheckFailed,
			Message: message,
		})
		return report, nil
	}
	report.Checks = append(report.Checks, drivers.TestCheck{
		Name:    "auth",
		Status:  drivers.CheckOK,
		Message: fmt.Sprintf("authenticated as @%s", resp.Result.Username),
	})
	report.Success = true
	return report, nil
}
