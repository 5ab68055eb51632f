package usecase

// User-facing messages. Clients match on some of these, keep them stable.
const (
	MsgCooldownSearch    = "API is in cooldown due to previous quota error. Please wait a few minutes."
	MsgQuotaExceeded     = "API Quota Exceeded. The Free Tier of Gemini has limits (15 requests/min). Cooldown active for 5 mins."
	MsgCooldownCached    = "API is in cooldown due to previous quota error. Using cached data."
	MsgCooldownNoData    = "API is in cooldown. Please wait a few minutes before refreshing."
	MsgMarketUnavailable = "Market data unavailable: "
	MsgRefreshInProgress = "Market data refresh already in progress."
	MsgAnalyzeFailed     = "Failed to analyze stock: "
	MsgAnalysisBusy      = "An analysis is already running. Please wait for it to finish."
	MsgChatCooldown      = "Chat restricted due to API cooldown. Please wait a few minutes."
	MsgChatOffline       = "Chat offline. Please try again."
	MsgPulseUnavailable  = "Market data currently unavailable."
)
