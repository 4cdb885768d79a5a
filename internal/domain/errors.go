package domain

import "errors"

var (
	ErrInvalidLookahead = errors.New("lookahead minutes must be positive")
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrScanDeadline     = errors.New("scan deadline exceeded")
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnavailable      = errors.New("source unavailable")
	ErrLockHeld         = errors.New("lock already held")
)
