package app_errors

import "errors"

var ErrStorageUnavailable = errors.New("durable blob store is disabled")
var ErrBlobNotFound = errors.New("blob not found")
var ErrCorruptBlob = errors.New("corrupt blob")
var ErrCourseNotFound = errors.New("course not found")
var ErrValidation = errors.New("invalid course object")
var ErrStoreTimeout = errors.New("metadata store timed out")
var ErrQuotaExhausted = errors.New("metadata store quota exhausted")
var ErrTokenExpired = errors.New("token expired")
var ErrBadVariant = errors.New("unknown variant")
