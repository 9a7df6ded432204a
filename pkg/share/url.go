/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package share

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/stashbin/stashbin/pkg/config"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/httpclient"
)

const fallbackFilename = "download"

// ValidateUrlMetadata probes a remote URL before a url-sourced share is
// created. HEAD first; servers that refuse it get a GET retry.
func (s *Service) ValidateUrlMetadata(ctx context.Context, rawUrl string) (*UrlMetadata, error) {
	parsed, err := parseShareUrl(rawUrl)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx,
		time.Duration(config.GetUrlProbeTimeoutSeconds())*time.Second)
	defer cancel()

	rsp, err := s.httpClient.Head(ctx, rawUrl)
	if err != nil || !rsp.IsSuccess() {
		rsp, err = s.httpClient.Get(ctx, rawUrl)
		if err != nil {
			return nil, commonerrors.NewDriverError(
				fmt.Sprintf("failed to probe %s", rawUrl), err)
		}
	}
	if !rsp.IsSuccess() {
		return nil, commonerrors.NewDriverError(
			fmt.Sprintf("probe of %s returned status %d", rawUrl, rsp.StatusCode), nil)
	}

	meta := &UrlMetadata{
		Url:           rawUrl,
		ContentType:   rsp.Header.Get("Content-Type"),
		ContentLength: -1,
		LastModified:  rsp.Header.Get("Last-Modified"),
		Filename:      filenameFromProbe(parsed, rsp),
	}
	if raw := rsp.Header.Get("Content-Length"); raw != "" {
		if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil && n >= 0 {
			meta.ContentLength = n
		}
	}
	return meta, nil
}

// ProxyUrlContent fetches the remote body on behalf of a proxied share view.
func (s *Service) ProxyUrlContent(ctx context.Context, rawUrl string) (*httpclient.Result, error) {
	if _, err := parseShareUrl(rawUrl); err != nil {
		return nil, err
	}
	rsp, err := s.httpClient.Fetch(ctx, rawUrl)
	if err != nil {
		return nil, commonerrors.NewDriverError(
			fmt.Sprintf("failed to fetch %s", rawUrl), err)
	}
	if !rsp.IsSuccess() {
		return nil, commonerrors.NewDriverError(
			fmt.Sprintf("fetch of %s returned status %d", rawUrl, rsp.StatusCode), nil)
	}
	return rsp, nil
}

func parseShareUrl(rawUrl string) (*url.URL, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("malformed url: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, commonerrors.NewBadRequest(
			fmt.Sprintf("unsupported url scheme %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return nil, commonerrors.NewBadRequest("url has no host")
	}
	return parsed, nil
}

// filenameFromProbe prefers the url path tail when it carries an extension,
// then the Content-Disposition filename, then a generic default.
func filenameFromProbe(parsed *url.URL, rsp *httpclient.Result) string {
	if tail := path.Base(parsed.Path); tail != "/" && tail != "." &&
		strings.Contains(tail, ".") {
		return tail
	}
	if cd := rsp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return fallbackFilename
}
