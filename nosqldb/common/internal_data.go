//
// Copyright (c) 2019, 2024 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

package common

import (
	"time"

	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
)

// RetryStats accumulates the bookkeeping a single request gathers across the
// retry loop in Client.doExecute: how many attempts were made, how long was
// spent waiting between them, and which kinds of errors triggered a retry.
// It is copied onto the Result on a successful call so callers can see what
// it cost to get there.
type RetryStats struct {
	// NumRetries is the number of retry attempts made for the request.
	NumRetries int

	// RetryDelay is the accumulated time spent sleeping between retries
	// (backoff delay, not including time spent waiting on the wire).
	RetryDelay time.Duration

	// Exceptions is a name-keyed multiset counting how many times each
	// kind of error triggered a retry, keyed by ErrorCode name for a
	// *nosqlerr.Error and by its Error() string otherwise.
	Exceptions map[string]int
}

// IncrRetries records one retry attempt triggered by err, adding delay to the
// accumulated RetryDelay. Exceptions is keyed by the error's nosqlerr.ErrorCode
// name when err is a *nosqlerr.Error, or by its Error() string otherwise, so
// counts aggregate by kind of failure rather than by exact message text.
func (rs *RetryStats) IncrRetries(err error, delay time.Duration) {
	rs.NumRetries++
	rs.RetryDelay += delay
	if err == nil {
		return
	}
	if rs.Exceptions == nil {
		rs.Exceptions = make(map[string]int)
	}
	rs.Exceptions[exceptionKey(err)]++
}

func exceptionKey(err error) string {
	if e, ok := err.(*nosqlerr.Error); ok {
		return e.Code.String()
	}
	return err.Error()
}

// Reset clears accumulated retry stats so a request struct can be reused for
// a fresh call to execute().
func (rs *RetryStats) Reset() {
	rs.NumRetries = 0
	rs.RetryDelay = 0
	rs.Exceptions = nil
}

// InternalRequestDataInt is used to give all requests a
// set of common internal data (rate limiters, retry stats, etc)
type InternalRequestDataInt interface {
	RateLimiterPairInt
	GetRetryTime() time.Duration
	SetRetryTime(d time.Duration)
	GetRetryStats() RetryStats
	IncrRetryStats(err error, delay time.Duration)
	ResetRetryStats()
}

// InternalRequestData is the actual struct that gets included
// in every Request type
type InternalRequestData struct {
	RateLimiterPair
	retryTime  time.Duration
	retryStats RetryStats
}

// GetRetryTime returns the current time spent in the client in retries
func (ird *InternalRequestData) GetRetryTime() time.Duration {
	return ird.retryTime
}

// SetRetryTime sets the current time spent in the client in retries
func (ird *InternalRequestData) SetRetryTime(d time.Duration) {
	ird.retryTime = d
}

// GetRetryStats returns the retry statistics accumulated for the request so far.
func (ird *InternalRequestData) GetRetryStats() RetryStats {
	return ird.retryStats
}

// IncrRetryStats records one retry attempt triggered by err.
func (ird *InternalRequestData) IncrRetryStats(err error, delay time.Duration) {
	ird.retryStats.IncrRetries(err, delay)
}

// ResetRetryStats clears the accumulated retry statistics.
func (ird *InternalRequestData) ResetRetryStats() {
	ird.retryStats.Reset()
}
