package usecase

import (
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/pkg/util"
)

func analyzePrompt(ticker string, now time.Time) string {
	ts := util.HumanDateTime(now)
	return fmt.Sprintf(`Current Date and Time: %[2]s.
Perform a comprehensive stock analysis for "%[1]s".
If the ticker includes a prefix like NSE: or BSE:, analyze it as an Indian stock.

CRITICAL INSTRUCTION: Fetch the absolute latest REAL-TIME price available from the current trading session (as of %[2]s).
Do NOT return the "Previous Close" or "Yesterday's" price if the market is currently open or in pre/post-market trading.
Look for labels like "Live", "Real-time", or "As of [Current Time]" in search results (e.g., Google Finance, Yahoo Finance, CNBC).

Include the following sections in your response as valid JSON:
1. currentPrice: The most recent available stock price as a number (e.g., 150.25).
2. priceTimestamp: The exact time/date the price was quoted (e.g., "Feb 25, 11:35 AM ET").
3. summary: An array of 2 strings, each representing a key point about the stock's current status.
4. fundamental: Key fundamental metrics (P/E, Revenue Growth, Debt-to-Equity) and an analysis of their health.
5. technical: Current technical trends (Moving averages, RSI, Volume trends).
6. supportLevel: Key support price levels found in technical analysis (e.g., "$142.50, $138.00").
7. resistanceLevel: Key resistance price levels found in technical analysis (e.g., "$155.00, $162.00").
8. news: A list of 3-4 recent news items. For each, include "title", "impact" (how it affects price), and "sentiment" (positive/negative/neutral).
9. entryLevel: Suggested buying price range with reasoning.
10. exitLevel: Suggested target/stop-loss price range with reasoning.
11. dailySummary: A concise wrap-up of today's market action for this stock.
12. recommendation: A clear "Buy", "Sell", or "Hold" recommendation with a 1-sentence justification.

Use Google Search to ensure data is as close to real-time as possible. Return only the JSON object.`, ticker, ts)
}

func changePrompt(ticker string) string {
	return fmt.Sprintf(`Check for any significant fundamental changes or high-impact news for %s in the last 24 hours.
Respond with JSON:
1. hasChange: true if there is major news affecting price or fundamentals.
2. alertMessage: A short headline of the change.
3. sentiment: current market sentiment (bullish/bearish/neutral).
4. impactLevel: The severity of the impact (high/medium/low). Only mark as 'high' if it's a major event like earnings, acquisition, or regulatory shift.`, ticker)
}

func pulsePrompt(region models.Region, now time.Time) string {
	market := "overall US stock market"
	if region == models.RegionIndia {
		market = "Indian stock market (NSE/BSE)"
	}
	return fmt.Sprintf("Current Date/Time: %s. Provide a summary of today's %s sentiment. "+
		"Format it as two distinct bullet points (Point 1 and Point 2) on separate lines, followed by a brief sector outlook.",
		util.HumanDateTime(now), market)
}

func trendingPrompt(region models.Region) string {
	if region == models.RegionIndia {
		return "List 5 currently trending Indian stocks (tickers with NSE: prefix, e.g., NSE:RELIANCE, NSE:TCS) that show strong growth potential. " +
			"For each, provide a 1-sentence reason for the recommendation based on recent trends."
	}
	return "List 5 currently trending US stocks (tickers only, e.g., AAPL, NVDA) that show strong growth potential. " +
		"For each, provide a 1-sentence reason for the recommendation based on recent news or trends."
}

func chatInstruction(now time.Time) string {
	return fmt.Sprintf("Expert Stock AI. Data-driven and professional. Current Date: %s. "+
		"Always use Google Search to find the latest real-time stock prices, news, and market data before answering. "+
		"Do not rely on your internal knowledge for current prices.", util.HumanDate(now))
}

func str() *dservice.Schema { return &dservice.Schema{Type: dservice.TypeString} }

var analysisSchema = &dservice.Schema{
	Type: dservice.TypeObject,
	Properties: map[string]*dservice.Schema{
		"currentPrice":    {Type: dservice.TypeNumber},
		"priceTimestamp":  str(),
		"summary":         {Type: dservice.TypeArray, Items: str()},
		"fundamental":     str(),
		"technical":       str(),
		"supportLevel":    str(),
		"resistanceLevel": str(),
		"news": {
			Type: dservice.TypeArray,
			Items: &dservice.Schema{
				Type: dservice.TypeObject,
				Properties: map[string]*dservice.Schema{
					"title":     str(),
					"impact":    str(),
					"sentiment": {Type: dservice.TypeString, Enum: []string{"positive", "negative", "neutral"}},
				},
				Required: []string{"title", "impact", "sentiment"},
			},
		},
		"entryLevel":     str(),
		"exitLevel":      str(),
		"dailySummary":   str(),
		"recommendation": str(),
	},
	Required: []string{
		"currentPrice", "priceTimestamp", "summary", "fundamental", "technical", "supportLevel",
		"resistanceLevel", "news", "entryLevel", "exitLevel", "dailySummary", "recommendation",
	},
}

var changeSchema = &dservice.Schema{
	Type: dservice.TypeObject,
	Properties: map[string]*dservice.Schema{
		"hasChange":    {Type: dservice.TypeBoolean},
		"alertMessage": str(),
		"sentiment":    {Type: dservice.TypeString, Enum: []string{"bullish", "bearish", "neutral"}},
		"impactLevel":  {Type: dservice.TypeString, Enum: []string{"high", "medium", "low"}},
	},
}

var trendingSchema = &dservice.Schema{
	Type: dservice.TypeArray,
	Items: &dservice.Schema{
		Type: dservice.TypeObject,
		Properties: map[string]*dservice.Schema{
			"ticker": str(),
			"reason": str(),
		},
		Required: []string{"ticker", "reason"},
	},
}

var fallbackTrending = map[models.Region][]models.TrendingStock{
	models.RegionUS: {
		{Ticker: "AAPL", Reason: "Anticipation of new AI features in upcoming software updates."},
		{Ticker: "NVDA", Reason: "Dominance in the AI chip market and strong quarterly earnings."},
		{Ticker: "TSLA", Reason: "Expansion of manufacturing capacity and FSD progress."},
		{Ticker: "MSFT", Reason: "Leadership in enterprise cloud and OpenAI partnership."},
		{Ticker: "GOOGL", Reason: "Strong ad revenue and advancements in Gemini AI."},
	},
	models.RegionIndia: {
		{Ticker: "NSE:RELIANCE", Reason: "Strong growth in retail and digital services sectors."},
		{Ticker: "NSE:TCS", Reason: "Robust deal pipeline and digital transformation demand."},
		{Ticker: "NSE:HDFCBANK", Reason: "Consistent credit growth and market leadership."},
		{Ticker: "NSE:INFY", Reason: "Expansion in cloud and AI services globally."},
		{Ticker: "NSE:ICICIBANK", Reason: "Improving asset quality and strong retail franchise."},
	},
}

// FallbackTrending returns a copy of the canned list for region.
func FallbackTrending(region models.Region) []models.TrendingStock {
	src := fallbackTrending[region]
	if src == nil {
		src = fallbackTrending[models.RegionUS]
	}
	out := make([]models.TrendingStock, len(src))
	copy(out, src)
	return out
}
