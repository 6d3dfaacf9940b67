package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache wrapped around the
// public catalog endpoints.  Methods lists the HTTP methods eligible
// for caching; KeyStrategy picks which request parts form the cache
// key; MaxBodyBytes caps how large a response body may be stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables, falling back
// to defaults suited to the catalog read endpoints.  A short TTL keeps
// borrow state visible quickly after a mutation.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      defaultBool("CACHE_ENABLED", true),
        Methods:      methodSet(defaultStr("CACHE_METHODS", "GET")),
        TTL:          defaultDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  defaultStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       defaultStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: defaultInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

// methodSet parses a comma separated method list into a lookup map.
func methodSet(s string) map[string]bool {
    m := make(map[string]bool)
    for _, p := range strings.Split(s, ",") {
        if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
            m[p] = true
        }
    }
    return m
}
