package models

import "errors"

var (
	ErrMalformedRequest   = errors.New("malformed request")
	ErrMissingIdentity    = errors.New("wallet address is required")
	ErrNotFound           = errors.New("profile not found")
	ErrInvalidSocialLinks = errors.New("invalid social links")
	ErrUploadFailed       = errors.New("image upload failed")
	ErrInvalidReference   = errors.New("invalid image reference")
	ErrDeleteFailed       = errors.New("image delete failed")
	ErrNoFieldsProvided   = errors.New("no fields to update")
	ErrPersistence        = errors.New("persistence error")
)
