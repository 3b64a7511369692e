package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"memeiq_bot/internal/domain"
	"memeiq_bot/internal/logger"
	"memeiq_bot/internal/repository"
)

// ReferralService attaches /start referral codes and grants the referrer
// their bonus: pro-level quota for the rest of the current UTC day.
type ReferralService struct {
	store repository.UserStore
	log   *slog.Logger
	now   func() time.Time
}

func NewReferralService(store repository.UserStore) *ReferralService {
	return &ReferralService{
		store: store,
		log:   logger.With("component", "referral"),
		now:   time.Now,
	}
}

// Attach links a new user to the owner of the given code. Unknown codes,
// self-referrals and repeat attempts are ignored rather than surfaced; a
// bad deep link should never break /start.
func (s *ReferralService) Attach(ctx context.Context, newUserID int64, code string) *domain.User {
	if code == "" {
		return nil
	}

	referrer, err := s.store.ByReferralCode(ctx, code)
	if err != nil {
		s.log.Debug("unknown referral code", "code", code)
		return nil
	}
	if referrer.TgID == newUserID {
		return nil
	}

	bonusDay := domain.DayKey(s.now())
	if err := s.store.AttachReferral(ctx, referrer.TgID, newUserID, bonusDay); err != nil {
		if !errors.Is(err, repository.ErrReferralTaken) {
			s.log.Warn("referral attach failed", "referrer", referrer.TgID, "referred", newUserID, "error", err)
		}
		return nil
	}

	s.log.Info("referral attached", "referrer", referrer.TgID, "referred", newUserID)
	return referrer
}
