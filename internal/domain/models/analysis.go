package models

// NewsSentiment classifies how a news item reads for the stock.
type NewsSentiment string

const (
	NewsPositive NewsSentiment = "positive"
	NewsNegative NewsSentiment = "negative"
	NewsNeutral  NewsSentiment = "neutral"
)

type NewsItem struct {
	Title     string        `json:"title"`
	Impact    string        `json:"impact"`
	Sentiment NewsSentiment `json:"sentiment"`
}

// Source is a web reference the remote search grounding cited.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// AnalysisResult is one complete AI analysis of a ticker. It is built fresh on
// every successful analysis and never mutated after it is returned.
type AnalysisResult struct {
	Ticker               string     `json:"ticker"`
	CurrentPrice         float64    `json:"currentPrice"`
	PriceTimestamp       string     `json:"priceTimestamp,omitempty"`
	LastUpdated          int64      `json:"lastUpdated"` // epoch ms
	Summary              []string   `json:"summary"`
	Fundamental          string     `json:"fundamental"`
	Technical            string     `json:"technical"`
	SupportLevel         string     `json:"supportLevel"`
	ResistanceLevel      string     `json:"resistanceLevel"`
	News                 []NewsItem `json:"news"`
	EntryLevel           string     `json:"entryLevel"`
	ExitLevel            string     `json:"exitLevel"`
	DailySummary         string     `json:"dailySummary"`
	Recommendation       string     `json:"recommendation"`
	RecommendationReason string     `json:"recommendationReason,omitempty"`
	Sources              []Source   `json:"sources"`
}
