/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/stashbin/stashbin/pkg/errors"
)

type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (err *ApiError) Error() string {
	return err.ErrorMessage
}

func AbortWithApiError(c *gin.Context, err error) {
	_ = c.Error(err)
	rsp := cvtToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

func cvtToErrResponse(err error) ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return *apiErr
	}
	var statusErr *commonerrors.StatusError
	if !errors.As(err, &statusErr) {
		statusErr = commonerrors.NewInternalError(err.Error())
	}
	code := statusErr.HttpCode
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return ApiError{
		HttpCode:     code,
		ErrorCode:    statusErr.Reason,
		ErrorMessage: statusErr.Error(),
	}
}
