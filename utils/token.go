package utils

import (
	"sync"
	"time"
)

// Logged-out tokens are held here until their natural expiry. The
// blacklist is process-local; tokens expire after 24h anyway.
var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

func BlacklistToken(token string) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	blacklistedTokens[token] = time.Now().Add(24 * time.Hour)
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.RLock()
	expiry, exists := blacklistedTokens[token]
	blacklistMutex.RUnlock()

	return exists && time.Now().Before(expiry)
}

// CleanupBlacklist drops expired entries once an hour. Run it from main
// as a goroutine.
func CleanupBlacklist() {
	for {
		time.Sleep(1 * time.Hour)
		blacklistMutex.Lock()
		now := time.Now()
		for token, expiry := range blacklistedTokens {
			if now.After(expiry) {
				delete(blacklistedTokens, token)
			}
		}
		blacklistMutex.Unlock()
	}
}
