package middleware

import "time"

func (rm *RateLimiterMiddleware) EvictIdle(now time.Time) int { return rm.evictIdle(now) }
