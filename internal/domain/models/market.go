package models

import "strings"

type Region string

const (
	RegionUS    Region = "US"
	RegionIndia Region = "India"
)

// ParseRegion accepts "US" and "India" case-insensitively; anything else,
// including empty, is US.
func ParseRegion(s string) Region {
	if strings.EqualFold(strings.TrimSpace(s), string(RegionIndia)) {
		return RegionIndia
	}
	return RegionUS
}

type TrendingStock struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// MarketBundle is what the market cache stores per region.
type MarketBundle struct {
	Pulse     string          `json:"pulse"`
	Stocks    []TrendingStock `json:"stocks"`
	Timestamp int64           `json:"timestamp"` // epoch ms
}

// MarketSource says where a served bundle came from.
type MarketSource string

const (
	SourceFresh    MarketSource = "fresh"
	SourceCache    MarketSource = "cache"
	SourceStale    MarketSource = "stale"
	SourceCooldown MarketSource = "cooldown"
)

// MarketView is a bundle plus how it was obtained. Notice carries the
// user-facing explanation when the data is degraded.
type MarketView struct {
	Region Region       `json:"region"`
	Bundle MarketBundle `json:"bundle"`
	Source MarketSource `json:"source"`
	Notice string       `json:"notice,omitempty"`
}
