package session

import "errors"

var (
	ErrNotConnected       = errors.New("store connection is not configured")
	ErrMissingCredentials = errors.New("store url and access key are required")
)
