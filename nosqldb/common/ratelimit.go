//
// Copyright (c) 2019, 2022 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

package common

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiterPairInt is implemented by every Request so the execution engine
// can attach a read/write limiter pair to it once the table's throughput
// limits are known.
type RateLimiterPairInt interface {
	GetReadRateLimiter() RateLimiter
	GetWriteRateLimiter() RateLimiter
	SetReadRateLimiter(rl RateLimiter)
	SetWriteRateLimiter(rl RateLimiter)
}

// RateLimiterPair holds the read and write limiter for a single table. Both
// fields may be nil when rate limiting is disabled or the table's limits
// have not yet been resolved.
type RateLimiterPair struct {
	ReadLimiter  RateLimiter
	WriteLimiter RateLimiter
}

// GetReadRateLimiter returns the read limiter, which may be nil.
func (rlp *RateLimiterPair) GetReadRateLimiter() RateLimiter {
	return rlp.ReadLimiter
}

// GetWriteRateLimiter returns the write limiter, which may be nil.
func (rlp *RateLimiterPair) GetWriteRateLimiter() RateLimiter {
	return rlp.WriteLimiter
}

// SetReadRateLimiter sets the read limiter to use during request execution.
func (rlp *RateLimiterPair) SetReadRateLimiter(rl RateLimiter) {
	rlp.ReadLimiter = rl
}

// SetWriteRateLimiter sets the write limiter to use during request execution.
func (rlp *RateLimiterPair) SetWriteRateLimiter(rl RateLimiter) {
	rlp.WriteLimiter = rl
}

// RateLimiter is the client-side throughput limiter used by the execution
// engine to pace requests against a table's per-second read or write unit
// limit before it ever reaches the server.
//
// Implementations must be safe for concurrent use: a single limiter instance
// is shared by every goroutine issuing requests against the same table and
// the same direction (read or write).
//
// The simplest use blocks until units are available:
//
//	delay := limiter.ConsumeUnits(units)
//
// A non-blocking check:
//
//	if limiter.TryConsumeUnits(0) { /* currently under the limit */ }
//
// A bounded wait, giving up after timeout:
//
//	delay, err := limiter.ConsumeUnitsWithTimeout(units, timeout, false)
//
// Implementations support a configurable "duration" (sometimes called burst
// window): units that went unused in the recent past remain available for a
// later burst, up to that many seconds back.
type RateLimiter interface {
	// ConsumeUnits blocks until the given units are available and returns how
	// long it blocked. Negative units give units back to the limiter.
	ConsumeUnits(units int64) time.Duration

	// TryConsumeUnits consumes units only if they are immediately available,
	// reporting success without blocking. Zero units polls whether the
	// limiter is currently under its limit.
	TryConsumeUnits(units int64) bool

	// ConsumeUnitsWithTimeout blocks until units are available or timeout
	// elapses, whichever comes first. A zero timeout blocks indefinitely. If
	// alwaysConsume is true the units are consumed even after a timeout.
	ConsumeUnitsWithTimeout(units int64, timeout time.Duration, alwaysConsume bool) (time.Duration, error)

	// GetLimitPerSecond returns the configured units-per-second limit.
	GetLimitPerSecond() float64

	// SetDuration sets how many seconds of unused capacity the limiter may
	// carry forward for a future burst.
	SetDuration(durationSecs float64)

	// GetDuration returns the configured burst duration in seconds.
	GetDuration() float64

	// Reset reinitializes the limiter as if newly constructed.
	Reset()

	// SetLimitPerSecond changes the units-per-second limit. Changing the
	// limit may cause bursty behavior for goroutines already consuming from
	// this limiter.
	SetLimitPerSecond(rateLimitPerSecond float64)

	// ConsumeUnitsUnconditionally updates the consumed total by units without
	// checking or waiting on the current limit state. Negative units give
	// units back.
	ConsumeUnitsUnconditionally(units int64)

	// GetCurrentRate returns the current consumption rate as a percentage of
	// the configured limit (values above 100 mean the limiter is over limit).
	GetCurrentRate() float64

	// SetCurrentRate forces the current rate to the given percentage without
	// changing the configured limit. A value above 100.0 pushes the limiter
	// over its limit.
	SetCurrentRate(rateToSet float64)
}

const nanosPerSecFloat = 1000000000.0

// SimpleRateLimiter is a token-bucket RateLimiter keyed on "the nanosecond
// timestamp through which units have already been accounted for" rather
// than an explicit token count. Advancing that timestamp into the future
// when units are consumed, and never letting it fall further than
// windowNanos behind the wall clock, gives the same burst/refill behavior as
// an explicit bucket without needing a background refill goroutine.
type SimpleRateLimiter struct {
	// unitNanos is how many nanoseconds of "capacity" one unit represents.
	unitNanos int64

	// windowNanos bounds how far into the past unused capacity can still be
	// drawn from (the burst window).
	windowNanos int64

	// accountedThrough is the timestamp, in nanoseconds since the epoch,
	// through which consumption has already been charged. This is the one
	// piece of mutable state the limiter carries.
	accountedThrough int64

	mu sync.Mutex
}

// NewSimpleRateLimiter creates a limiter with a one-second burst window.
func NewSimpleRateLimiter(rateLimitPerSec float64) (srl *SimpleRateLimiter) {
	return NewSimpleRateLimiterWithDuration(rateLimitPerSec, 1.0)
}

// NewSimpleRateLimiterWithDuration creates a limiter with the given
// units-per-second limit and burst window, in seconds.
func NewSimpleRateLimiterWithDuration(rateLimitPerSec float64, durationSecs float64) (srl *SimpleRateLimiter) {
	srl = &SimpleRateLimiter{}
	srl.SetLimitPerSecond(rateLimitPerSec)
	srl.SetDuration(durationSecs)
	srl.Reset()
	return srl
}

// SetLimitPerSecond changes the units-per-second limit.
func (srl *SimpleRateLimiter) SetLimitPerSecond(rateLimitPerSec float64) {
	if rateLimitPerSec <= 0.0 {
		srl.unitNanos = 0
	} else {
		srl.unitNanos = (int64)(nanosPerSecFloat / rateLimitPerSec)
	}
	srl.clampWindowToUnit()
}

// clampWindowToUnit guarantees the burst window is at least one unit wide, so
// that a single-unit consume can always eventually succeed.
func (srl *SimpleRateLimiter) clampWindowToUnit() {
	if srl.windowNanos < srl.unitNanos {
		srl.windowNanos = srl.unitNanos
	}
}

// GetLimitPerSecond returns the configured units-per-second limit.
func (srl *SimpleRateLimiter) GetLimitPerSecond() float64 {
	return nanosPerSecFloat / (float64)(srl.unitNanos)
}

// GetDuration returns the configured burst window in seconds.
func (srl *SimpleRateLimiter) GetDuration() float64 {
	return (float64)(srl.windowNanos) / nanosPerSecFloat
}

// SetDuration sets the burst window, in seconds.
func (srl *SimpleRateLimiter) SetDuration(durationSecs float64) {
	srl.windowNanos = (int64)(durationSecs * nanosPerSecFloat)
	srl.clampWindowToUnit()
}

// Reset reinitializes the limiter as if newly constructed: nothing has been
// consumed, so the accounted-through timestamp is "now."
func (srl *SimpleRateLimiter) Reset() {
	srl.accountedThrough = time.Now().UnixNano()
}

// SetCurrentRate forces the limiter to report the given percentage of its
// limit as the current rate. There is no fixed "period" for this kind of
// limiter, so the percentage is interpreted relative to a one-second window.
func (srl *SimpleRateLimiter) SetCurrentRate(percent float64) {
	now := time.Now().UnixNano()
	if percent == 100.0 {
		srl.accountedThrough = now
		return
	}
	percent -= 100.0
	srl.accountedThrough = now + (int64)((percent/100.0)*nanosPerSecFloat)
}

// ConsumeUnits blocks until the units are available and returns how long it
// blocked.
func (srl *SimpleRateLimiter) ConsumeUnits(units int64) time.Duration {
	wait := srl.account(units, 0, false, time.Now().UnixNano())
	if wait > 0 {
		time.Sleep(wait)
	}
	return wait
}

// ConsumeUnitsWithTimeout blocks until the units are available or timeout
// elapses.
func (srl *SimpleRateLimiter) ConsumeUnitsWithTimeout(units int64, timeout time.Duration, alwaysConsume bool) (time.Duration, error) {
	wait := srl.account(units, timeout, alwaysConsume, time.Now().UnixNano())
	if wait == 0 {
		return 0, nil
	}

	// alwaysConsume may already have charged the units even though we're
	// about to report a timeout.
	if timeout > 0 && wait >= timeout {
		time.Sleep(timeout)
		return timeout, fmt.Errorf("timed out waiting %dms for %d units in rate limiter", (timeout / time.Millisecond), units)
	}

	time.Sleep(wait)
	return wait, nil
}

// account is the only method that mutates accountedThrough. It returns the
// duration the caller must wait before the requested units are actually
// available, charging the units as a side effect whenever the caller will
// end up honoring that wait (or is forced to via alwaysConsume).
func (srl *SimpleRateLimiter) account(units int64, timeout time.Duration, alwaysConsume bool, now int64) time.Duration {
	if srl.unitNanos <= 0 {
		// Disabled limiter.
		return 0
	}

	srl.mu.Lock()
	defer srl.mu.Unlock()

	nanosNeeded := units * srl.unitNanos

	// Never draw from further back than the burst window allows.
	earliestUsable := now - srl.windowNanos
	if srl.accountedThrough < earliestUsable {
		srl.accountedThrough = earliestUsable
	}

	projected := srl.accountedThrough + nanosNeeded

	if units < 0 {
		// Giving units back always succeeds immediately.
		srl.accountedThrough = projected
		return 0
	}

	if srl.accountedThrough <= now {
		// Already under the limit: charge and go.
		srl.accountedThrough = projected
		return 0
	}

	wait := time.Duration(srl.accountedThrough-now) * time.Nanosecond

	switch {
	case alwaysConsume:
		srl.accountedThrough = projected
	case timeout == 0:
		srl.accountedThrough = projected
	case wait < timeout:
		srl.accountedThrough = projected
	}

	return wait
}

// TryConsumeUnits consumes units only if they are immediately available.
func (srl *SimpleRateLimiter) TryConsumeUnits(units int64) bool {
	return srl.account(units, 1, false, time.Now().UnixNano()) == 0
}

// GetCurrentRate returns the current consumption rate as a percentage of the
// configured limit.
func (srl *SimpleRateLimiter) GetCurrentRate() float64 {
	capacity := srl.availableCapacity()
	limit := srl.GetLimitPerSecond()
	rate := 100.0 - ((capacity * 100.0) / limit)
	if rate < 0.0 {
		return 0.0
	}
	return rate
}

// ConsumeUnitsUnconditionally updates consumption without checking or
// waiting on the current limit state.
func (srl *SimpleRateLimiter) ConsumeUnitsUnconditionally(units int64) {
	srl.account(units, 0, true, time.Now().UnixNano())
}

// availableCapacity reports, in units, how much headroom remains between the
// accounted-through timestamp and now.
func (srl *SimpleRateLimiter) availableCapacity() float64 {
	now := time.Now().UnixNano()
	earliestUsable := now - srl.windowNanos
	from := srl.accountedThrough
	if from < earliestUsable {
		from = earliestUsable
	}
	return (float64)(now-from) / (float64)(srl.unitNanos)
}

func (srl *SimpleRateLimiter) String() string {
	return fmt.Sprintf("accountedThrough=%v, unitNanos=%v, windowNanos=%v, limit=%v, capacity=%v, rate=%.2f",
		srl.accountedThrough, srl.unitNanos, srl.windowNanos, srl.GetLimitPerSecond(), srl.availableCapacity(), srl.GetCurrentRate())
}
