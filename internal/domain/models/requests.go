package models

type AnalyzeRequest struct {
	Ticker string `json:"ticker" validate:"required,ticker"`
	// Reason is the trending-card blurb when the search started from one.
	Reason string `json:"reason" validate:"max=500"`
}

type MarketRequest struct {
	Region string `query:"region" json:"region" default:"US" validate:"oneof=US India us india"`
}

type TickerParam struct {
	Ticker string `param:"ticker" validate:"required,ticker"`
}

type WatchlistAddRequest struct {
	Ticker string `json:"ticker" validate:"required,ticker"`
	Name   string `json:"name" validate:"max=100"`
}

type PriceAlertRequest struct {
	Ticker      string  `json:"ticker" validate:"required,ticker"`
	TargetPrice float64 `json:"targetPrice" validate:"gt=0"`
	Condition   string  `json:"condition" default:"above" validate:"oneof=above below"`
}

// PreferencesRequest replaces the stored preferences. A nil CustomAPIKey
// keeps the stored key; an empty one clears it.
type PreferencesRequest struct {
	Email                      string  `json:"email" validate:"omitempty,email"`
	Phone                      string  `json:"phone" validate:"max=32"`
	EnableBrowserPush          bool    `json:"enableBrowserPush"`
	EnableEmailAlerts          bool    `json:"enableEmailAlerts"`
	EnableSMSAlerts            bool    `json:"enableSMSAlerts"`
	OnlyHighImpact             *bool   `json:"onlyHighImpact" default:"true"`
	EnableBackgroundMonitoring bool    `json:"enableBackgroundMonitoring"`
	CustomAPIKey               *string `json:"customApiKey" validate:"omitempty,max=256"`
}

type PresenceRequest struct {
	Visible                bool   `json:"visible"`
	NotificationPermission string `json:"notificationPermission" default:"default" validate:"oneof=default granted denied"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}
