/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

type client struct {
	*http.Client
}

const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxTry  = 2
)

var (
	once     sync.Once
	instance *client
)

func NewHttpClient() Interface {
	once.Do(func() {
		instance = &client{
			Client: &http.Client{
				Timeout: DefaultTimeout,
				Transport: &http.Transport{
					TLSHandshakeTimeout:   10 * time.Second,
					MaxIdleConns:          128,
					MaxConnsPerHost:       64,
					IdleConnTimeout:       1 * time.Minute,
					ExpectContinueTimeout: 10 * time.Second,
				},
			},
		}
	})
	return instance
}

func (c *client) Head(ctx context.Context, url string) (*Result, error) {
	return c.do(ctx, url, http.MethodHead, false)
}

// Get probes url for response headers only, discarding the body.
func (c *client) Get(ctx context.Context, url string) (*Result, error) {
	return c.do(ctx, url, http.MethodGet, false)
}

// Fetch reads the full response body.
func (c *client) Fetch(ctx context.Context, url string) (*Result, error) {
	return c.do(ctx, url, http.MethodGet, true)
}

// Post sends body once, without retries, and reads the full response.
func (c *client) Post(ctx context.Context, url, contentType string, body io.Reader) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	rsp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	result := &Result{StatusCode: rsp.StatusCode, Header: rsp.Header}
	if result.Body, err = io.ReadAll(rsp.Body); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) do(ctx context.Context, url, method string, readBody bool) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	var rsp *http.Response
	for i := 0; i < DefaultMaxTry; i++ {
		if rsp, err = c.Client.Do(req); err == nil {
			break
		} else if i == DefaultMaxTry-1 {
			return nil, err
		}
	}
	defer rsp.Body.Close()

	result := &Result{StatusCode: rsp.StatusCode, Header: rsp.Header}
	if readBody {
		if result.Body, err = io.ReadAll(rsp.Body); err != nil {
			return nil, err
		}
	}
	return result, nil
}
