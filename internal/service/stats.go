package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"memeiq_bot/internal/domain"
	"memeiq_bot/internal/repository"
)

// StatsService serves the global analytics snapshot to the /admin command
// and the admin HTTP API.
type StatsService struct {
	store     repository.UserStore
	startedAt time.Time
}

func NewStatsService(store repository.UserStore) *StatsService {
	return &StatsService{store: store, startedAt: time.Now()}
}

func (s *StatsService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	return s.store.Snapshot(ctx)
}

// TopUsers lists the heaviest users by lifetime analysis count.
func (s *StatsService) TopUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	return s.store.TopUsers(ctx, limit)
}

// Uptime returns how long the process has been running.
func (s *StatsService) Uptime() time.Duration {
	return time.Since(s.startedAt).Round(time.Second)
}

// AdminText renders the snapshot for the /admin chat command.
func (s *StatsService) AdminText(ctx context.Context) (string, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📋 <b>MemeIQ Admin</b>\n\n")
	fmt.Fprintf(&b, "👥 Users: %d\n", snap.TotalUsers)
	fmt.Fprintf(&b, "🧠 Analyses: %d\n", snap.TotalAnalyses)
	fmt.Fprintf(&b, "⏱ Uptime: %s\n", s.Uptime())

	today := domain.DayKey(time.Now())
	if day, ok := snap.Days[today]; ok {
		fmt.Fprintf(&b, "\n📅 Today: %d analyses, %d active users\n", day.Analyses, day.ActiveUsers)
	}

	if len(snap.CommandUsage) > 0 {
		b.WriteString("\n<b>Commands</b>\n")
		names := make([]string, 0, len(snap.CommandUsage))
		for name := range snap.CommandUsage {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return snap.CommandUsage[names[i]] > snap.CommandUsage[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(&b, "/%s — %d\n", name, snap.CommandUsage[name])
		}
	}

	return b.String(), nil
}
