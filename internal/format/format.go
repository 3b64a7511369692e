// Package format renders token metrics as chat text. Everything here is
// pure: no state, no I/O.
package format

import (
	"fmt"
	"math"
	"strings"

	"memeiq_bot/internal/domain"
)

// USD renders a dollar magnitude with B/M/K suffixes above $1000 and plain
// two-decimal dollars below. Meme-coin market caps span 9+ orders of
// magnitude, so a fixed format would be unreadable.
func USD(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "$0"
	}
	switch {
	case n >= 1e9:
		return fmt.Sprintf("$%.2fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("$%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("$%.2fK", n/1e3)
	default:
		return fmt.Sprintf("$%.2f", n)
	}
}

// Price renders a token price with precision scaled to its magnitude;
// sub-cent prices keep 10 decimals so micro-caps don't collapse to $0.00.
func Price(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "$0"
	}
	switch {
	case p >= 1:
		return fmt.Sprintf("$%.4f", p)
	case p >= 0.01:
		return fmt.Sprintf("$%.6f", p)
	default:
		return fmt.Sprintf("$%.10f", p)
	}
}

// ScoreEmoji maps a 0-100 score to a traffic-light indicator.
func ScoreEmoji(score int) string {
	switch {
	case score >= 80:
		return "✅"
	case score >= 60:
		return "⚠️"
	default:
		return "🔴"
	}
}

// RecommendationEmoji maps the API recommendation to an indicator. Anything
// unknown is treated like AVOID.
func RecommendationEmoji(rec string) string {
	switch rec {
	case domain.RecommendBuy:
		return "💚"
	case domain.RecommendCaution:
		return "⚠️"
	default:
		return "🛑"
	}
}

// Change renders a signed 24h percentage with a direction arrow.
func Change(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	arrow := "📈"
	if pct < 0 {
		arrow = "📉"
	}
	return fmt.Sprintf("%s %+.2f%%", arrow, pct)
}

// ChartURL links the external chart viewer for a Solana token.
func ChartURL(address string) string {
	return "https://dexscreener.com/solana/" + address
}

// ReportURL links the full web report with attribution parameters.
func ReportURL(websiteBase, address string) string {
	return fmt.Sprintf("%s/?address=%s&utm_source=telegram&utm_medium=bot", websiteBase, address)
}

// Analysis renders the full analysis message (HTML parse mode).
func Analysis(t *domain.TokenAnalysis) string {
	overall := t.OverallScore()

	var b strings.Builder

	verified := ""
	if t.Verified {
		verified = " ✅"
	}
	fmt.Fprintf(&b, "🧠 <b>%s</b> (%s)%s\n\n", escapeHTML(t.Name), escapeHTML(t.Symbol), verified)

	fmt.Fprintf(&b, "💰 Price: %s  %s\n", Price(t.Price), Change(t.PriceChange24h))
	fmt.Fprintf(&b, "📊 Market Cap: %s | FDV: %s\n\n", USD(t.MarketCap), USD(t.FDV))

	fmt.Fprintf(&b, "💧 Liquidity: %s (LP locked %.0f%%)\n", USD(t.LiquidityUSD), t.LPLockedPct)
	fmt.Fprintf(&b, "⚖️ MCap/Liq: %.1fx\n", t.McapLiqRatio)
	fmt.Fprintf(&b, "🔄 Volume 24h: %s", USD(t.Volume24hUSD))
	if t.WashRisk != "" {
		fmt.Fprintf(&b, " (wash risk: %s)", escapeHTML(t.WashRisk))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "👥 Holders: %d | Top 10: %.1f%%", t.Holders, t.Top10Pct)
	if t.Concentration != "" {
		fmt.Fprintf(&b, " (%s)", escapeHTML(t.Concentration))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s <b>Score: %d/100</b>\n", ScoreEmoji(overall), overall)
	fmt.Fprintf(&b, "   💧 Liquidity %.0f | 🔄 Volume %.0f | 👥 Holders %.0f\n\n",
		t.Scores.Liquidity, t.Scores.Volume, t.Scores.Holders)

	fmt.Fprintf(&b, "%s <b>%s</b>\n", RecommendationEmoji(t.Recommendation), escapeHTML(t.Recommendation))
	if t.Summary != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>\n", escapeHTML(t.Summary))
	}

	return b.String()
}

// TrendingList renders the trending feed.
func TrendingList(tokens []domain.TrendingToken) string {
	var b strings.Builder
	b.WriteString("🔥 <b>Trending Tokens</b>\n\n")
	for i, t := range tokens {
		fmt.Fprintf(&b, "%d. <b>%s</b> (%s) — %s %s, vol %s\n",
			i+1, escapeHTML(t.Name), escapeHTML(t.Symbol),
			Price(t.Price), Change(t.PriceChange24h), USD(t.Volume24hUSD))
	}
	b.WriteString("\nSend any address for a full analysis.")
	return b.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
