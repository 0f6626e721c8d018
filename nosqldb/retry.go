//
// Copyright (C) 2019 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl
//
// Please see LICENSE.txt file included in the top-level directory of the
// appropriate download for a copy of the license and additional information.
//

package nosqldb

import (
	"errors"
	"math/rand"
	"time"

	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
)

// RetryHandler is the policy collaborator consulted by the execution engine's
// retry loop. ShouldRetry corresponds to doRetry(request, numRetries, exception)
// in the request-execution-core specification; Delay corresponds to
// delay(request, numRetries, exception), and blocks the calling goroutine for
// the computed backoff period before the loop re-enters.
//
// A Client uses the RetryHandler set in Config.RetryHandler. NewClient does
// not configure a default one; when it is nil, failed requests are not retried.
//
// It is not recommended that applications rely on a RetryHandler for
// regulating provisioned throughput. It is best to add rate-limiting to the
// application based on a table's capacity and access patterns to avoid
// throttling errors.
//
// Implementations of this interface must be immutable so they can be shared.
type RetryHandler interface {
	// MaxNumRetries returns the maximum number of retries that this handler
	// instance will allow before the error is reported to the application.
	MaxNumRetries() uint

	// ShouldRetry indicates whether the request should continue to retry upon
	// receiving the specified error and having attempted the specified number
	// of retries.
	ShouldRetry(req Request, numRetries uint, err error) bool

	// Delay is called when a retryable error is reported and ShouldRetry has
	// returned true. It blocks the calling goroutine for the computed backoff
	// period. Implementations should not busy-wait in a tight loop.
	Delay(req Request, numRetries uint, err error)
}

// securityErrorRetryInterval is the fixed pause used while the authorization
// subsystem has not yet loaded security information, before the backoff
// policy takes over.
const securityErrorRetryInterval = 100 * time.Millisecond

// securityInfoGracePeriod is the number of attempts tolerated at the fixed
// securityErrorRetryInterval before escalating to exponential backoff.
const securityInfoGracePeriod = 10

// backoffPolicy computes the pause between retry attempts. It captures the
// two knobs a DefaultRetryHandler exposes: a fixed interval (when non-zero)
// or a jittered exponential ramp keyed off a base unit.
type backoffPolicy struct {
	fixed time.Duration
	base  time.Duration
}

// delayFor returns the pause appropriate for attempt numRetries (1-based).
func (b backoffPolicy) delayFor(numRetries uint) time.Duration {
	if b.fixed > 0 {
		return b.fixed
	}
	return b.exponential(numRetries)
}

// exponential implements DelayMS = 2^(numRetries-1) * base + jitter(0..1s).
// numRetries is assumed to start at 1; values below that are clamped.
func (b backoffPolicy) exponential(numRetries uint) time.Duration {
	if numRetries < 1 {
		return b.base
	}
	d := (1 << (numRetries - 1)) * b.base
	return d + time.Duration(rand.Intn(1000))*time.Millisecond
}

// securityInfoBackoff is the schedule applied while waiting for security
// info to become available: a flat wait for the first securityInfoGracePeriod
// attempts, then the same exponential ramp as ordinary retries.
func securityInfoBackoff(numRetries uint) time.Duration {
	if numRetries <= securityInfoGracePeriod {
		return securityErrorRetryInterval
	}
	policy := backoffPolicy{base: securityErrorRetryInterval}
	return policy.exponential(numRetries - securityInfoGracePeriod)
}

// DefaultRetryHandler is the stock RetryHandler: a maximum retry count plus a
// backoff policy, with a carve-out that lets SecurityInfoUnavailable errors
// retry past the configured limit while the handler waits for the
// authorization provider to warm up.
type DefaultRetryHandler struct {
	maxNumRetries uint
	backoff       backoffPolicy
}

// NewDefaultRetryHandler creates a DefaultRetryHandler with the specified
// maximum number of retries and retry interval. The retry interval must be
// greater than or equal to 1 millisecond.
//
// A smaller interval, including zero, is rejected with an error. The handler
// waits the fixed retryInterval between retries, except for
// SecurityInfoUnavailable errors, which follow their own schedule.
func NewDefaultRetryHandler(maxNumRetries uint, retryInterval time.Duration) (*DefaultRetryHandler, error) {
	if retryInterval < time.Millisecond {
		return nil, errors.New("retry interval must be greater than or equal to 1 millisecond")
	}

	return &DefaultRetryHandler{
		maxNumRetries: maxNumRetries,
		backoff:       backoffPolicy{fixed: retryInterval, base: time.Second},
	}, nil
}

// MaxNumRetries returns the maximum number of retries that this handler
// will allow before the error is reported to the application.
func (r DefaultRetryHandler) MaxNumRetries() uint {
	return r.maxNumRetries
}

// Delay pauses the current goroutine for the period computed by the retry
// policy. SecurityInfoUnavailable uses a dedicated schedule; every other
// retryable error uses the handler's configured backoff policy.
func (r DefaultRetryHandler) Delay(req Request, numRetries uint, err error) {
	var d time.Duration
	if nosqlerr.IsSecurityInfoUnavailable(err) {
		d = securityInfoBackoff(numRetries)
	} else {
		d = r.backoff.delayFor(numRetries)
	}
	time.Sleep(d)
}

// nonRetryableCodes holds the error codes this handler never retries
// regardless of remaining attempts: DDL operations that hit the store's
// internal rate limit report OperationLimitExceeded, and retrying them is
// counterproductive since the limiting window is much longer than a normal
// request timeout.
var nonRetryableCodes = map[nosqlerr.ErrorCode]bool{
	nosqlerr.OperationLimitExceeded: true,
}

// ShouldRetry reports whether the request should continue to retry upon
// receiving the specified error and having attempted the specified number
// of retries.
//
// SecurityInfoUnavailable is always retried, unconstrained by maxNumRetries,
// until the request's own timeout elapses — the caller with a zero-retry
// handler configuration would otherwise never recover from a cold-started
// authorization provider. Every other retryable error defers to the
// request's own shouldRetry() classification (set per request type: DDL-style
// requests such as TableRequest, GetTableRequest, and PrepareRequest are not
// retried) and the configured attempt ceiling.
func (r DefaultRetryHandler) ShouldRetry(req Request, numRetries uint, err error) bool {
	if nerr, ok := err.(*nosqlerr.Error); ok {
		if nonRetryableCodes[nerr.Code] {
			return false
		}
		if nerr.Code == nosqlerr.SecurityInfoUnavailable {
			return true
		}
	}

	if !req.shouldRetry() {
		return false
	}

	return numRetries < r.maxNumRetries
}
