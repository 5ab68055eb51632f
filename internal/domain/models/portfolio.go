package models

type WatchlistItem struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"` // epoch ms
}

type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// PriceAlert fires once when the observed price crosses TargetPrice in the
// direction of Condition. A fired alert is deactivated, not deleted.
type PriceAlert struct {
	Ticker      string         `json:"ticker"`
	TargetPrice float64        `json:"targetPrice"`
	Condition   AlertCondition `json:"condition"`
	IsActive    bool           `json:"isActive"`
}

// UserPreferences is persisted wholesale on every change. Email and SMS
// toggles are stored for the client but nothing sends through them.
type UserPreferences struct {
	Email                      string `json:"email"`
	Phone                      string `json:"phone"`
	EnableBrowserPush          bool   `json:"enableBrowserPush"`
	EnableEmailAlerts          bool   `json:"enableEmailAlerts"`
	EnableSMSAlerts            bool   `json:"enableSMSAlerts"`
	OnlyHighImpact             bool   `json:"onlyHighImpact"`
	EnableBackgroundMonitoring bool   `json:"enableBackgroundMonitoring"`
	CustomAPIKey               string `json:"customApiKey,omitempty"`
}

// DefaultPreferences returns the preferences a fresh install starts with.
func DefaultPreferences() UserPreferences {
	return UserPreferences{OnlyHighImpact: true}
}
