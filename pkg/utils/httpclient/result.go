/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
)

type Interface interface {
	Head(ctx context.Context, url string) (*Result, error)
	Get(ctx context.Context, url string) (*Result, error)
	Fetch(ctx context.Context, url string) (*Result, error)
	Post(ctx context.Context, url, contentType string, body io.Reader) (*Result, error)
}

type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (r *Result) IsSuccess() bool {
	return r != nil && r.StatusCode/100 == 2
}

func (r *Result) String() string {
	return "http code: " + strconv.Itoa(r.StatusCode) + ", body: " + string(r.Body)
}
