package querystring

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

const (
	msgQueryTooLong               = "cirrussearch-query-too-long"
	msgQueryTooLongWithExemptions = "cirrussearch-query-too-long-with-exemptions"
)

// QueryTooLongError is the only error Parse returns. It matches
// ErrQueryTooLong and, depending on Hard, ErrHardLengthExceeded or
// ErrSoftLengthExceeded.
type QueryTooLongError struct {
	Hard      bool
	Actual    int
	Limit     int
	Exemption int
}

func (e *QueryTooLongError) Error() string {
	kind := "soft"
	if e.Hard {
		kind = "hard"
	}
	return fmt.Sprintf("query too long: %d code points exceeds %s limit %d", e.Actual, kind, e.Limit)
}

func (e *QueryTooLongError) Unwrap() error { return apperrors.ErrQueryTooLong }

func (e *QueryTooLongError) Is(target error) bool {
	switch target {
	case apperrors.ErrHardLengthExceeded:
		return e.Hard
	case apperrors.ErrSoftLengthExceeded:
		return !e.Hard
	}
	return false
}

// MessageKey returns the localisation key for user-facing messages.
func (e *QueryTooLongError) MessageKey() string {
	if !e.Hard && e.Exemption > 0 {
		return msgQueryTooLongWithExemptions
	}
	return msgQueryTooLong
}

// Params returns the message parameters: actual length, then limit.
func (e *QueryTooLongError) Params() []any {
	return []any{e.Actual, e.Limit}
}

func checkHardLimit(length int, opts Options) error {
	if limit := opts.hardLimit(); length > limit {
		return &QueryTooLongError{Hard: true, Actual: length, Limit: limit}
	}
	return nil
}

// checkSoftLimit allows MaxQueryLength plus the code points covered by
// recognized keywords.
func checkSoftLimit(length, exemption int, opts Options) error {
	if opts.MaxQueryLength <= 0 {
		return nil
	}
	if limit := opts.MaxQueryLength + exemption; length > limit {
		return &QueryTooLongError{Actual: length, Limit: limit, Exemption: exemption}
	}
	return nil
}
