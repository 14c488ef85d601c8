package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrParse         = errors.New("parse error")
)
