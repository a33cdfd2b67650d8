// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package auth

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenLimiter rate-limits the token endpoint per client IP to slow down
// credential stuffing. Stale per-IP limiters are dropped lazily.
type TokenLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rpm      int

	// lastSweep tracks the last stale-entry sweep.
	lastSweep time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 15 * time.Minute

// NewTokenLimiter allows rpm token requests per minute per client IP.
func NewTokenLimiter(rpm int) *TokenLimiter {
	if rpm < 1 {
		rpm = 1
	}
	return &TokenLimiter{
		limiters:  make(map[string]*ipLimiter),
		rpm:       rpm,
		lastSweep: time.Now(),
	}
}

// Allow reports whether a token request from the IP may proceed.
func (l *TokenLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.rpm)/60.0), l.rpm),
		}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// ClientIP extracts the client IP from a request, stripping the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
