package repository

import "StockPulse/internal/domain/models"

// Persisted keys. The names are shared with existing client data and must not change.
const (
	KeyWatchlist       = "watchlist"
	KeyPriceAlerts     = "priceAlerts"
	KeyUserPreferences = "userPreferences"
	KeyAlertHistory    = "alertHistory"
	KeyQuotaCooldown   = "quota_cooldown"
)

// MarketDataKey is the cache key for a region's market bundle.
func MarketDataKey(r models.Region) string {
	return "marketData_" + string(r)
}
