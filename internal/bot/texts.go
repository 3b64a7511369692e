package bot

import (
	"fmt"
	"time"
)

func nowUTC() time.Time { return time.Now().UTC() }

func welcomeText(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`🧠 <b>Welcome to MemeIQ, %s!</b>

I analyze Solana meme coins before you ape in:
liquidity, volume, holder concentration, wash-trading risk — one score.

<b>Try it:</b> just paste a token address, or use
/analyze &lt;address&gt;

/help for everything I can do.`, name)
}

const helpText = `🧠 <b>MemeIQ Bot</b>

<b>Analysis</b>
/analyze &lt;address&gt; — full token analysis
/quick &lt;address&gt; — same thing, shorter to type
…or just paste an address into the chat

<b>Tracking</b>
/watchlist — your saved tokens
/trending — what's hot right now

<b>Account</b>
/stats — your usage, tier and referral link
/upgrade — unlimited analyses

Free tier: 5 analyses per day. Invite a friend with your
referral link (/stats) and get a day of unlimited access.`

const upgradeText = `🚀 <b>MemeIQ Tiers</b>

🆓 <b>Free</b> — %d analyses/day, 5 watchlist slots
⭐ <b>Pro</b> — unlimited analyses, unlimited watchlist
🐋 <b>Whale</b> — everything in Pro + priority alerts

Upgrades are handled on the website — tap a Full Report
link under any analysis and hit «Go Pro».

Tip: your referral link (/stats) earns free bonus days.`

const trendingFallback = `🔥 <b>Trending</b>

The trending feed is warming up — check back in a few minutes.

Meanwhile, paste any token address for a full analysis.`
