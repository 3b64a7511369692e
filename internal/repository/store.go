package repository

import (
	"context"
	"errors"
	"time"

	"memeiq_bot/internal/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	ErrWatchlistFull = errors.New("watchlist is full")
	ErrNotWatched    = errors.New("address not in watchlist")
	ErrReferralTaken = errors.New("user already has a referrer")
)

// Alert is a price alert registered for a watched token.
type Alert struct {
	TgID      int64     `json:"tg_id"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore is the persistence boundary for user records, quota counters,
// watchlists, referrals, alerts and the process analytics. The default
// implementation keeps everything in memory; a Postgres implementation sits
// behind the same interface when durability is wanted.
//
// Quota contract: ReserveDailySlot performs the lazy day reset, the limit
// check and the daily increment as one atomic step. A failed remote call is
// undone with ReleaseDailySlot, so failures never consume quota.
type UserStore interface {
	GetOrCreate(ctx context.Context, tgID int64, username, firstName string) (u *domain.User, created bool, err error)
	Get(ctx context.Context, tgID int64) (*domain.User, error)
	SetTier(ctx context.Context, tgID int64, tier domain.Tier) error

	ReserveDailySlot(ctx context.Context, tgID int64, freeLimit int, now time.Time) error
	ReleaseDailySlot(ctx context.Context, tgID int64, now time.Time) error
	CommitAnalysis(ctx context.Context, tgID int64, now time.Time) error

	AddToWatchlist(ctx context.Context, tgID int64, address string, cap int) error
	RemoveFromWatchlist(ctx context.Context, tgID int64, address string) error

	ByReferralCode(ctx context.Context, code string) (*domain.User, error)
	AttachReferral(ctx context.Context, referrerID, referredID int64, bonusDay string) error

	AddAlert(ctx context.Context, a Alert) error
	RemoveAlert(ctx context.Context, tgID int64, address string) error
	Alerts(ctx context.Context) ([]Alert, error)

	RecordCommand(ctx context.Context, name string) error
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	TopUsers(ctx context.Context, limit int) ([]*domain.User, error)
}

// hasUnlimitedQuota reports whether the record bypasses the free daily cap
// today: paid tiers always, free tier on a referral bonus day.
func hasUnlimitedQuota(u *domain.User, day string) bool {
	if u.Tier == domain.TierPro || u.Tier == domain.TierWhale {
		return true
	}
	return u.BonusDay == day
}
