/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stashbin/stashbin/pkg/database/client"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/share"
)

func (h *Handler) UploadDirect(c *gin.Context) {
	handle(c, h.uploadDirect)
}

func (h *Handler) UploadForm(c *gin.Context) {
	handle(c, h.uploadForm)
}

func (h *Handler) PresignInit(c *gin.Context) {
	handle(c, h.presignInit)
}

func (h *Handler) PresignCommit(c *gin.Context) {
	handle(c, h.presignCommit)
}

func (h *Handler) CreateShareFromFs(c *gin.Context) {
	handle(c, h.createShareFromFs)
}

func (h *Handler) ValidateUrl(c *gin.Context) {
	handle(c, h.validateUrl)
}

func (h *Handler) CreatePaste(c *gin.Context) {
	handle(c, h.createPaste)
}

func (h *Handler) AccessFileShare(c *gin.Context) {
	handle(c, h.accessFileShare)
}

func (h *Handler) AccessPasteShare(c *gin.Context) {
	handle(c, h.accessPasteShare)
}

// ProxyUrl streams a remote document through the server. Unlike the other
// routes it writes the body itself, so no handle() wrapper.
func (h *Handler) ProxyUrl(c *gin.Context) {
	rawUrl := c.Query("url")
	rsp, err := h.shares.ProxyUrlContent(c.Request.Context(), rawUrl)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	contentType := rsp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(rsp.StatusCode, contentType, rsp.Body)
}

// uploadDirect takes the raw request body as the object content; everything
// else rides in the query string.
func (h *Handler) uploadDirect(c *gin.Context) (interface{}, error) {
	size := c.Request.ContentLength
	if size < 0 {
		return nil, commonerrors.NewBadRequest("content length is required")
	}
	filename := c.Query("filename")
	if filename == "" {
		return nil, commonerrors.NewBadRequest("filename is required")
	}
	req := &share.UploadRequest{
		Filename:        filename,
		Size:            size,
		MimeType:        c.ContentType(),
		Body:            c.Request.Body,
		StorageConfigId: c.Query("storage_config_id"),
		Options:         optionsFromQuery(c),
	}
	rec, err := h.shares.UploadDirectStream(c.Request.Context(), subjectFromContext(c), req)
	if err != nil {
		return nil, err
	}
	return cvtToFileShareView(rec), nil
}

func (h *Handler) uploadForm(c *gin.Context) (interface{}, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, commonerrors.NewBadRequest("missing file part: " + err.Error())
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	defer file.Close()

	req := &share.UploadRequest{
		Filename:        fileHeader.Filename,
		Size:            fileHeader.Size,
		MimeType:        fileHeader.Header.Get("Content-Type"),
		Body:            file,
		StorageConfigId: c.PostForm("storage_config_id"),
		Options:         optionsFromForm(c),
	}
	rec, err := h.shares.UploadFileObject(c.Request.Context(), subjectFromContext(c), req)
	if err != nil {
		return nil, err
	}
	return cvtToFileShareView(rec), nil
}

func (h *Handler) presignInit(c *gin.Context) (interface{}, error) {
	req := &presignInitBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	return h.shares.PresignInit(c.Request.Context(), subjectFromContext(c), &share.PresignInitRequest{
		Filename:        req.Filename,
		Size:            req.Size,
		MimeType:        req.MimeType,
		StorageConfigId: req.StorageConfigId,
	})
}

func (h *Handler) presignCommit(c *gin.Context) (interface{}, error) {
	req := &presignCommitBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	rec, err := h.shares.PresignCommit(c.Request.Context(), subjectFromContext(c), &share.PresignCommitRequest{
		StorageConfigId: req.StorageConfigId,
		Key:             req.Key,
		Filename:        req.Filename,
		Size:            req.Size,
		Etag:            req.Etag,
		MimeType:        req.MimeType,
		Options:         req.cvtOptions(),
	})
	if err != nil {
		return nil, err
	}
	return cvtToFileShareView(rec), nil
}

func (h *Handler) createShareFromFs(c *gin.Context) (interface{}, error) {
	req := &fsShareBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	rec, err := h.shares.CreateShareFromFs(c.Request.Context(), subjectFromContext(c), &share.FsShareRequest{
		FilePath:        req.FilePath,
		Filename:        req.Filename,
		Size:            req.Size,
		MimeType:        req.MimeType,
		StorageConfigId: req.StorageConfigId,
		Options:         req.cvtOptions(),
	})
	if err != nil {
		return nil, err
	}
	return cvtToFileShareView(rec), nil
}

func (h *Handler) validateUrl(c *gin.Context) (interface{}, error) {
	req := &struct {
		Url string `json:"url"`
	}{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	return h.shares.ValidateUrlMetadata(c.Request.Context(), req.Url)
}

type pasteBody struct {
	shareOptionsBody
	Content string `json:"content"`
}

func (h *Handler) createPaste(c *gin.Context) (interface{}, error) {
	req := &pasteBody{}
	if body, err := getBodyFromRequest(c.Request, req); err != nil {
		klog.ErrorS(err, "failed to parse request", "body", string(body))
		return nil, err
	}
	rec, err := h.shares.CreatePaste(c.Request.Context(), subjectFromContext(c), &share.PasteRequest{
		Content: req.Content,
		Options: req.cvtOptions(),
	})
	if err != nil {
		return nil, err
	}
	return cvtToPasteShareView(rec), nil
}

func (h *Handler) accessFileShare(c *gin.Context) (interface{}, error) {
	rec, err := h.shares.AccessFile(c.Request.Context(),
		c.Param(paramSlug), c.Query("password"))
	if err != nil {
		return nil, err
	}
	return cvtToFileShareView(rec), nil
}

func (h *Handler) accessPasteShare(c *gin.Context) (interface{}, error) {
	rec, err := h.shares.AccessPaste(c.Request.Context(),
		c.Param(paramSlug), c.Query("password"))
	if err != nil {
		return nil, err
	}
	return cvtToPasteShareView(rec), nil
}

type fileShareView struct {
	Id              string `json:"id"`
	Slug            string `json:"slug"`
	Filename        string `json:"filename"`
	StorageConfigId string `json:"storage_config_id,omitempty"`
	StoragePath     string `json:"storage_path,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	Mimetype        string `json:"mimetype,omitempty"`
	Size            int64  `json:"size"`
	Etag            string `json:"etag,omitempty"`
	Remark          string `json:"remark,omitempty"`
	UseProxy        bool   `json:"use_proxy"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	MaxViews        int64  `json:"max_views,omitempty"`
	Views           int64  `json:"views"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at"`
}

type pasteShareView struct {
	Id        string `json:"id"`
	Slug      string `json:"slug"`
	Content   string `json:"content"`
	Remark    string `json:"remark,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	MaxViews  int64  `json:"max_views,omitempty"`
	Views     int64  `json:"views"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

func cvtToFileShareView(rec *client.FileRecord) *fileShareView {
	return &fileShareView{
		Id:              rec.Id,
		Slug:            rec.Slug,
		Filename:        rec.Filename,
		StorageConfigId: rec.StorageConfigId.String,
		StoragePath:     rec.StoragePath.String,
		FilePath:        rec.FilePath.String,
		Mimetype:        rec.Mimetype.String,
		Size:            rec.Size,
		Etag:            rec.Etag.String,
		Remark:          rec.Remark.String,
		UseProxy:        rec.UseProxy == 1,
		ExpiresAt:       rec.ExpiresAt.String,
		MaxViews:        rec.MaxViews.Int64,
		Views:           rec.Views,
		CreatedBy:       rec.CreatedBy,
		CreatedAt:       rec.CreatedAt,
	}
}

func cvtToPasteShareView(rec *client.PasteRecord) *pasteShareView {
	return &pasteShareView{
		Id:        rec.Id,
		Slug:      rec.Slug,
		Content:   rec.Content,
		Remark:    rec.Remark.String,
		ExpiresAt: rec.ExpiresAt.String,
		MaxViews:  rec.MaxViews.Int64,
		Views:     rec.Views,
		CreatedBy: rec.CreatedBy,
		CreatedAt: rec.CreatedAt,
	}
}

type shareOptionsBody struct {
	Slug           string `json:"slug,omitempty"`
	UpdateIfExists bool   `json:"update_if_exists,omitempty"`
	Password       string `json:"password,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	MaxViews       int64  `json:"max_views,omitempty"`
	UseProxy       bool   `json:"use_proxy,omitempty"`
	Remark         string `json:"remark,omitempty"`
}

func (b *shareOptionsBody) cvtOptions() share.Options {
	return share.Options{
		Slug:           b.Slug,
		UpdateIfExists: b.UpdateIfExists,
		Password:       b.Password,
		ExpiresAt:      b.ExpiresAt,
		MaxViews:       b.MaxViews,
		UseProxy:       b.UseProxy,
		Remark:         b.Remark,
	}
}

type presignInitBody struct {
	Filename        string `json:"filename"`
	Size            int64  `json:"size"`
	MimeType        string `json:"mime_type,omitempty"`
	StorageConfigId string `json:"storage_config_id,omitempty"`
}

type presignCommitBody struct {
	shareOptionsBody
	StorageConfigId string `json:"storage_config_id"`
	Key             string `json:"key"`
	Filename        string `json:"filename,omitempty"`
	Size            int64  `json:"size"`
	Etag            string `json:"etag,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
}

type fsShareBody struct {
	shareOptionsBody
	FilePath        string `json:"file_path"`
	Filename        string `json:"filename"`
	Size            int64  `json:"size,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	StorageConfigId string `json:"storage_config_id,omitempty"`
}

func optionsFromQuery(c *gin.Context) share.Options {
	maxViews, _ := strconv.ParseInt(c.Query("max_views"), 10, 64)
	return share.Options{
		Slug:           c.Query("slug"),
		UpdateIfExists: c.Query("update_if_exists") == "true",
		Password:       c.Query("password"),
		ExpiresAt:      c.Query("expires_at"),
		MaxViews:       maxViews,
		UseProxy:       c.Query("use_proxy") == "true",
		Remark:         c.Query("remark"),
	}
}

func optionsFromForm(c *gin.Context) share.Options {
	maxViews, _ := strconv.ParseInt(c.PostForm("max_views"), 10, 64)
	return share.Options{
		Slug:           c.PostForm("slug"),
		UpdateIfExists: c.PostForm("update_if_exists") == "true",
		Password:       c.PostForm("password"),
		ExpiresAt:      c.PostForm("expires_at"),
		MaxViews:       maxViews,
		UseProxy:       c.PostForm("use_proxy") == "true",
		Remark:         c.PostForm("remark"),
	}
}
