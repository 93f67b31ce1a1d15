package source

import "errors"

var (
	// ErrMissingProxySource means neither a proxy list nor a custom proxy was configured.
	ErrMissingProxySource = errors.New("proxy source is not configured")
	// ErrProxySourceUnreadable wraps the I/O error hit while reading a proxy list.
	ErrProxySourceUnreadable = errors.New("proxy source is unreadable")
	// ErrInvalidProxyFormat means the custom proxy spec is not well formatted.
	ErrInvalidProxyFormat = errors.New("custom proxy is not well formatted")
)
