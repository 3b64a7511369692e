package domain

import "time"

// Tier is a user's subscription level gating the daily analysis quota.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierWhale Tier = "whale"
)

// DailyLimit returns the number of analyses allowed per day for the tier,
// or -1 for unlimited.
func (t Tier) DailyLimit(freeLimit int) int {
	switch t {
	case TierPro, TierWhale:
		return -1
	default:
		return freeLimit
	}
}

// User is the per-Telegram-user record. Lives for process lifetime with the
// in-memory store, or in Postgres when DATABASE_URL is configured.
type User struct {
	TgID      int64     `json:"tg_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	JoinedAt  time.Time `json:"joined_at"`

	Tier Tier `json:"tier"`

	// DailyCount resets lazily the first time the record is touched on a
	// new UTC day; LastAnalysisDay holds that day as "2006-01-02".
	DailyCount      int    `json:"daily_count"`
	LastAnalysisDay string `json:"last_analysis_day"`
	TotalCount      int64  `json:"total_count"`

	// BonusDay grants pro-level quota for one UTC day (referral reward).
	BonusDay string `json:"bonus_day,omitempty"`

	Watchlist []string `json:"watchlist"`

	ReferralCode string  `json:"referral_code"`
	ReferredBy   int64   `json:"referred_by,omitempty"`
	Referrals    []int64 `json:"referrals,omitempty"`
}

// DayKey is the UTC calendar day used for quota bookkeeping.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
