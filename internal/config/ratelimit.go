package config

import "time"

// RateLimitConfig controls the Redis token bucket in front of the
// credential endpoints.  Capacity is the burst size; RefillTokens are
// added every RefillInterval.  TTL bounds how long an idle bucket stays
// in Redis.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables.
// RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are shorthand overrides
// for capacity and a one-token refill cadence.  Values are clamped so a
// misconfigured limiter can never block everything forever.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        defaultBool("RATE_LIMIT_ENABLED", true),
        Capacity:       defaultInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   defaultInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: defaultDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            defaultDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    defaultStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         defaultStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          defaultBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := defaultInt("RATE_LIMIT_BURST", 0); burst > 0 {
        cfg.Capacity = burst
    }
    if every := defaultDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        cfg.RefillTokens = 1
        cfg.RefillInterval = every
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    if min := 5 * cfg.RefillInterval; cfg.TTL < min {
        cfg.TTL = min
    }
    return cfg
}
