package models

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// ChangeCheck is the answer to "did anything significant happen to this
// ticker in the last 24 hours".
type ChangeCheck struct {
	HasChange    bool        `json:"hasChange"`
	AlertMessage string      `json:"alertMessage"`
	Sentiment    Sentiment   `json:"sentiment"`
	ImpactLevel  ImpactLevel `json:"impactLevel"`
}

// NoChange is what an unreadable change check degrades to.
func NoChange() ChangeCheck {
	return ChangeCheck{Sentiment: SentimentNeutral, ImpactLevel: ImpactLow}
}

type NotificationKind string

const (
	KindPriceAlert  NotificationKind = "price"
	KindChangeAlert NotificationKind = "change"
)

// Notification is an in-app alert banner.
type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Ticker      string           `json:"ticker"`
	Message     string           `json:"message"`
	Sentiment   Sentiment        `json:"sentiment"`
	ImpactLevel ImpactLevel      `json:"impactLevel"`
	CreatedAt   int64            `json:"createdAt"` // epoch ms
}
