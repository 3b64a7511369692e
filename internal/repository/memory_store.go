package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"memeiq_bot/internal/domain"
)

// MemoryStore is the default UserStore: process-lifetime maps behind one
// mutex. Everything is lost on restart, which matches the bot's original
// deployment model.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	byCode map[string]int64
	alerts []Alert

	totalAnalyses int64
	commandUsage  map[string]int64
	days          map[string]*dayAgg
}

type dayAgg struct {
	analyses int64
	active   map[int64]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]*domain.User),
		byCode:       make(map[string]int64),
		commandUsage: make(map[string]int64),
		days:         make(map[string]*dayAgg),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, tgID int64, username, firstName string) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[tgID]; ok {
		if username != "" {
			u.Username = username
		}
		return cloneUser(u), false, nil
	}

	u := &domain.User{
		TgID:         tgID,
		Username:     username,
		FirstName:    firstName,
		JoinedAt:     time.Now().UTC(),
		Tier:         domain.TierFree,
		ReferralCode: domain.ReferralCodeFor(tgID),
	}
	s.users[tgID] = u
	s.byCode[u.ReferralCode] = tgID
	return cloneUser(u), true, nil
}

func (s *MemoryStore) Get(_ context.Context, tgID int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) SetTier(_ context.Context, tgID int64, tier domain.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}
	u.Tier = tier
	return nil
}

func (s *MemoryStore) ReserveDailySlot(_ context.Context, tgID int64, freeLimit int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}

	day := domain.DayKey(now)
	resetDay(u, day)

	if !hasUnlimitedQuota(u, day) && u.DailyCount >= freeLimit {
		return ErrQuotaExceeded
	}
	u.DailyCount++
	return nil
}

func (s *MemoryStore) ReleaseDailySlot(_ context.Context, tgID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}
	if u.LastAnalysisDay == domain.DayKey(now) && u.DailyCount > 0 {
		u.DailyCount--
	}
	return nil
}

func (s *MemoryStore) CommitAnalysis(_ context.Context, tgID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}
	u.TotalCount++
	s.totalAnalyses++

	day := domain.DayKey(now)
	agg, ok := s.days[day]
	if !ok {
		agg = &dayAgg{active: make(map[int64]struct{})}
		s.days[day] = agg
	}
	agg.analyses++
	agg.active[tgID] = struct{}{}
	return nil
}

func (s *MemoryStore) AddToWatchlist(_ context.Context, tgID int64, address string, cap int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}
	for _, a := range u.Watchlist {
		if a == address {
			return nil // already watched
		}
	}
	if u.Tier == domain.TierFree && len(u.Watchlist) >= cap {
		return ErrWatchlistFull
	}
	u.Watchlist = append(u.Watchlist, address)
	return nil
}

func (s *MemoryStore) RemoveFromWatchlist(_ context.Context, tgID int64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[tgID]
	if !ok {
		return ErrUserNotFound
	}
	for i, a := range u.Watchlist {
		if a == address {
			u.Watchlist = append(u.Watchlist[:i], u.Watchlist[i+1:]...)
			return nil
		}
	}
	return ErrNotWatched
}

func (s *MemoryStore) ByReferralCode(_ context.Context, code string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tgID, ok := s.byCode[code]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.users[tgID]), nil
}

func (s *MemoryStore) AttachReferral(_ context.Context, referrerID, referredID int64, bonusDay string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrer, ok := s.users[referrerID]
	if !ok {
		return ErrUserNotFound
	}
	referred, ok := s.users[referredID]
	if !ok {
		return ErrUserNotFound
	}
	if referred.ReferredBy != 0 {
		return ErrReferralTaken
	}

	referred.ReferredBy = referrerID
	referrer.Referrals = append(referrer.Referrals, referredID)
	referrer.BonusDay = bonusDay
	return nil
}

func (s *MemoryStore) AddAlert(_ context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.alerts {
		if ex.TgID == a.TgID && ex.Address == a.Address {
			return nil
		}
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *MemoryStore) RemoveAlert(_ context.Context, tgID int64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.TgID == tgID && a.Address == address {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Alerts(_ context.Context) ([]Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *MemoryStore) RecordCommand(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commandUsage[name]++
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &domain.Snapshot{
		TotalUsers:    int64(len(s.users)),
		TotalAnalyses: s.totalAnalyses,
		CommandUsage:  make(map[string]int64, len(s.commandUsage)),
		Days:          make(map[string]domain.DayStats, len(s.days)),
	}
	for k, v := range s.commandUsage {
		snap.CommandUsage[k] = v
	}
	for day, agg := range s.days {
		snap.Days[day] = domain.DayStats{
			Analyses:    agg.analyses,
			ActiveUsers: len(agg.active),
		}
	}
	return snap, nil
}

// TopUsers returns the heaviest users by lifetime analysis count.
func (s *MemoryStore) TopUsers(_ context.Context, limit int) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCount != out[j].TotalCount {
			return out[i].TotalCount > out[j].TotalCount
		}
		return out[i].TgID < out[j].TgID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func resetDay(u *domain.User, day string) {
	if u.LastAnalysisDay != day {
		u.DailyCount = 0
		u.LastAnalysisDay = day
	}
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	cp.Watchlist = append([]string(nil), u.Watchlist...)
	cp.Referrals = append([]int64(nil), u.Referrals...)
	return &cp
}
