// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Default rate limit: 10 requests per second per client, bursts of 20.
const (
	DefaultRateLimit = 10
	DefaultBurst     = 20
)

// LimiterIdleTTL is how long a client's bucket is kept after its last request.
const LimiterIdleTTL = 10 * time.Minute

// RateLimiter hands out one token bucket per client key.
//
// Buckets idle for longer than LimiterIdleTTL are swept on access, at most
// once per LimiterIdleTTL, so the map holds roughly the clients seen in the
// last two TTL windows.
//
// Thread Safety: Safe for concurrent use.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limits    map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with
// the given burst. perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	now := time.Now
	return &RateLimiter{
		limit:     limit,
		burst:     burst,
		limits:    make(map[string]*clientLimiter),
		lastSweep: now(),
		now:       now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= LimiterIdleTTL {
		rl.sweep(now)
	}

	if entry, ok := rl.limits[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	entry := &clientLimiter{
		limiter:  rate.NewLimiter(rl.limit, rl.burst),
		lastSeen: now,
	}
	rl.limits[key] = entry
	return entry.limiter
}

// sweep drops buckets idle for LimiterIdleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, entry := range rl.limits {
		if now.Sub(entry.lastSeen) >= LimiterIdleTTL {
			delete(rl.limits, key)
		}
	}
	rl.lastSweep = now
}

// size returns the number of tracked client keys.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// RateLimit rejects requests over the client's budget with 429. Clients are
// keyed by gin's ClientIP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Rate limit exceeded",
			Code:  CodeRateLimited,
		})
	}
}

// MaxBodyBytes caps request bodies at n bytes. Reads past the cap fail with
// *http.MaxBytesError, which the handlers report as 413. n <= 0 disables
// the cap.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
