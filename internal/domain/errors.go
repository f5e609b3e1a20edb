package domain

import "errors"

var (
	ErrInvalidDomain        = errors.New("invalid domain")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrDNSTimeout           = errors.New("dns lookup timed out")
	ErrDNSResolutionFailure = errors.New("dns resolution failed")
)
