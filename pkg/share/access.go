/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package share

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stashbin/stashbin/pkg/database/client"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
	"github.com/stashbin/stashbin/pkg/utils/timeutil"
)

// AccessFile resolves a share link for viewing: expiry and view caps are
// enforced, the password is verified, and the view counts once.
func (s *Service) AccessFile(ctx context.Context, slug, password string) (*client.FileRecord, error) {
	rec, err := s.dbClient.GetFileBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := checkShareGates(slug, rec.ExpiresAt, rec.MaxViews, rec.Views); err != nil {
		return nil, err
	}
	hash, err := s.dbClient.GetFilePassword(ctx, rec.Id)
	if err != nil {
		return nil, err
	}
	if err := checkSharePassword(hash, password); err != nil {
		return nil, err
	}
	if err := s.dbClient.IncrementFileViews(ctx, rec.Id); err != nil {
		return nil, err
	}
	rec.Views++
	return rec, nil
}

type PasteRequest struct {
	Content string
	Options Options
}

// CreatePaste records a text share. Pastes carry no storage pointer, the
// content lives in the row itself.
func (s *Service) CreatePaste(ctx context.Context, subject Subject, req *PasteRequest) (*client.PasteRecord, error) {
	if req.Content == "" {
		return nil, commonerrors.NewBadRequest("content is required")
	}
	opts := &req.Options

	slug := opts.Slug
	if slug == "" {
		slug = stringutil.RandomSlug(defaultSlugLength)
	}
	randomSuffix := s.isRandomSuffixEnabled(ctx)
	for try := 0; try < slugConflictTries; try++ {
		_, err := s.dbClient.GetPasteBySlug(ctx, slug)
		if err == nil {
			if !randomSuffix {
				return nil, commonerrors.NewSlugConflict(slug)
			}
			if opts.Slug == "" {
				slug = stringutil.RandomSlug(defaultSlugLength)
			} else {
				slug = opts.Slug + "-" + stringutil.RandomSlug(slugSuffixLength)
			}
			continue
		}
		if !commonerrors.IsNotFound(err) {
			return nil, err
		}
		return s.insertPaste(ctx, subject, slug, req)
	}
	return nil, commonerrors.NewSlugConflict(slug)
}

func (s *Service) insertPaste(ctx context.Context, subject Subject, slug string, req *PasteRequest) (*client.PasteRecord, error) {
	now := timeutil.FormatISO(time.Now())
	rec := &client.PasteRecord{
		Id:        uuid.NewString(),
		Slug:      slug,
		Content:   req.Content,
		Remark:    nullStr(req.Options.Remark),
		ExpiresAt: nullStr(req.Options.ExpiresAt),
		CreatedBy: subject.CreatorTag(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Options.MaxViews > 0 {
		rec.MaxViews = sql.NullInt64{Int64: req.Options.MaxViews, Valid: true}
	}
	if err := s.dbClient.InsertPaste(ctx, rec); err != nil {
		return nil, err
	}
	if req.Options.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Options.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, commonerrors.NewInternalError(err.Error())
		}
		if err := s.dbClient.UpsertPastePassword(ctx, rec.Id, string(hash)); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (s *Service) AccessPaste(ctx context.Context, slug, password string) (*client.PasteRecord, error) {
	rec, err := s.dbClient.GetPasteBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := checkShareGates(slug, rec.ExpiresAt, rec.MaxViews, rec.Views); err != nil {
		return nil, err
	}
	hash, err := s.dbClient.GetPastePassword(ctx, rec.Id)
	if err != nil {
		return nil, err
	}
	if err := checkSharePassword(hash, password); err != nil {
		return nil, err
	}
	if err := s.dbClient.IncrementPasteViews(ctx, rec.Id); err != nil {
		return nil, err
	}
	rec.Views++
	return rec, nil
}

// Expired and view-exhausted shares are indistinguishable from absent ones
// on purpose: the link simply stops resolving.
func checkShareGates(slug string, expiresAt sql.NullString, maxViews sql.NullInt64, views int64) error {
	if expiresAt.Valid {
		expires, err := timeutil.ParseISO(expiresAt.String)
		if err != nil || !expires.After(time.Now()) {
			return commonerrors.NewNotFound("share", slug)
		}
	}
	if maxViews.Valid && views >= maxViews.Int64 {
		return commonerrors.NewNotFound("share", slug)
	}
	return nil
}

func checkSharePassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if password == "" {
		return commonerrors.NewUnauthorized("this share requires a password")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return commonerrors.NewUnauthorized("wrong share password")
	}
	return nil
}
