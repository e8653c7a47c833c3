package search

import "errors"

var (
	// ErrInvalidVectorDimension reports a query vector whose length does not
	// match the stored embedding dimensions. No retry will help.
	ErrInvalidVectorDimension = errors.New("query vector dimension mismatch")

	// ErrInvalidTimeWindow reports a recency window that does not parse as
	// "<count> <unit>" with a unit from the allow-list.
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrStorageUnavailable wraps failures from the underlying retrieval
	// store. The engine never retries; callers own the retry policy.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
