/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"
)

const StashPrefix = "Stash."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Storage-related errors
   02: Backup/restore-related errors
   03: Share-related errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError         = StashPrefix + "00001"
	BadRequest            = StashPrefix + "00002"
	Forbidden             = StashPrefix + "00003"
	AlreadyExist          = StashPrefix + "00004"
	NotFound              = StashPrefix + "00005"
	RequestEntityTooLarge = StashPrefix + "00006"
	NotImplemented        = StashPrefix + "00007"
	QuotaInsufficient     = StashPrefix + "00008"
	Unauthorized          = StashPrefix + "00009"
)

// storage: 01xxx
const (
	StorageTypeUnknown    = StashPrefix + "01001"
	DriverFailed          = StashPrefix + "01002"
	NoUsableStorageConfig = StashPrefix + "01003"
)

// backup: 02xxx
const (
	BackupInvalid      = StashPrefix + "02001"
	RestoreBlocked     = StashPrefix + "02002"
	RestoreInterrupted = StashPrefix + "02003"
)

// share: 03xxx
const (
	SlugConflict = StashPrefix + "03001"
)

// IsStash returns true if the specified error carries a stash reason code.
func IsStash(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(ReasonForError(err), StashPrefix)
}

func IsBadRequest(err error) bool {
	return ReasonForError(err) == BadRequest
}

func IsNotFound(err error) bool {
	reason := ReasonForError(err)
	return reason == NotFound || reason == StorageTypeUnknown
}

func IsForbidden(err error) bool {
	return ReasonForError(err) == Forbidden
}

func IsAlreadyExist(err error) bool {
	reason := ReasonForError(err)
	return reason == AlreadyExist || reason == SlugConflict
}

func IsInternal(err error) bool {
	return ReasonForError(err) == InternalError
}

func IsQuotaInsufficient(err error) bool {
	return ReasonForError(err) == QuotaInsufficient
}

func IsDriverFailed(err error) bool {
	return ReasonForError(err) == DriverFailed
}

func IsRequestEntityTooLarge(err error) bool {
	return ReasonForError(err) == RequestEntityTooLarge
}

func NewInternalError(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusInternalServerError,
		Reason:   InternalError,
		Message:  message,
	}
}

func NewBadRequest(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadRequest,
		Reason:   BadRequest,
		Message:  message,
	}
}

func NewForbidden(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusForbidden,
		Reason:   Forbidden,
		Message:  message,
	}
}

func NewAlreadyExist(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusConflict,
		Reason:   AlreadyExist,
		Message:  message,
	}
}

func NewNotFound(kind, name string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusNotFound,
		Reason:   NotFound,
		Message:  fmt.Sprintf("the %s(%s) is not found", kind, name),
	}
}

func NewNotFoundWithMessage(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusNotFound,
		Reason:   NotFound,
		Message:  message,
	}
}

func NewRequestEntityTooLargeError(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusRequestEntityTooLarge,
		Reason:   RequestEntityTooLarge,
		Message:  message,
	}
}

func NewNotImplemented(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusNotImplemented,
		Reason:   NotImplemented,
		Message:  message,
	}
}

func NewQuotaInsufficient(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusForbidden,
		Reason:   QuotaInsufficient,
		Message:  message,
	}
}

func NewUnauthorized(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusUnauthorized,
		Reason:   Unauthorized,
		Message:  message,
	}
}

func NewStorageTypeUnknown(storageType string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadRequest,
		Reason:   StorageTypeUnknown,
		Message:  fmt.Sprintf("unknown storage type %q", storageType),
	}
}

func NewDriverError(message string, cause error) *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadGateway,
		Reason:   DriverFailed,
		Message:  message,
		Cause:    cause,
	}
}

func NewNoUsableStorageConfig() *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadRequest,
		Reason:   NoUsableStorageConfig,
		Message:  "no usable storage config",
	}
}

func NewSlugConflict(slug string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusConflict,
		Reason:   SlugConflict,
		Message:  fmt.Sprintf("slug %q is already taken", slug),
	}
}

func NewBackupInvalid(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadRequest,
		Reason:   BackupInvalid,
		Message:  message,
	}
}

func NewRestoreBlocked(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusBadRequest,
		Reason:   RestoreBlocked,
		Message:  message,
	}
}

func NewRestoreInterrupted(message string) *StatusError {
	return &StatusError{
		HttpCode: http.StatusInternalServerError,
		Reason:   RestoreInterrupted,
		Message:  message,
	}
}
