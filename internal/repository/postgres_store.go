package repository

import (
	"context"
	"errors"
	"time"

	"memeiq_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable UserStore used when DATABASE_URL is set.
// Same contract as MemoryStore; atomicity comes from single-statement
// conditional updates instead of a mutex.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables on first run.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			tg_id             BIGINT PRIMARY KEY,
			username          TEXT NOT NULL DEFAULT '',
			first_name        TEXT NOT NULL DEFAULT '',
			joined_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			tier              TEXT NOT NULL DEFAULT 'free',
			daily_count       INT NOT NULL DEFAULT 0,
			last_analysis_day TEXT NOT NULL DEFAULT '',
			total_count       BIGINT NOT NULL DEFAULT 0,
			bonus_day         TEXT NOT NULL DEFAULT '',
			referral_code     TEXT NOT NULL UNIQUE,
			referred_by       BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS watchlist (
			tg_id    BIGINT NOT NULL,
			address  TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tg_id, address)
		);
		CREATE TABLE IF NOT EXISTS referrals (
			referrer_id BIGINT NOT NULL,
			referred_id BIGINT PRIMARY KEY,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS alerts (
			tg_id      BIGINT NOT NULL,
			address    TEXT NOT NULL,
			symbol     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tg_id, address)
		);
		CREATE TABLE IF NOT EXISTS command_usage (
			name  TEXT PRIMARY KEY,
			count BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS day_stats (
			day      TEXT PRIMARY KEY,
			analyses BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS day_active (
			day   TEXT NOT NULL,
			tg_id BIGINT NOT NULL,
			PRIMARY KEY (day, tg_id)
		);
	`)
	return err
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, tgID int64, username, firstName string) (*domain.User, bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO users (tg_id, username, first_name, referral_code)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tg_id) DO NOTHING`,
		tgID, username, firstName, domain.ReferralCodeFor(tgID),
	)
	if err != nil {
		return nil, false, err
	}
	created := tag.RowsAffected() > 0

	if !created && username != "" {
		_, _ = s.db.Exec(ctx, `UPDATE users SET username = $1 WHERE tg_id = $2`, username, tgID)
	}

	u, err := s.Get(ctx, tgID)
	return u, created, err
}

func (s *PostgresStore) Get(ctx context.Context, tgID int64) (*domain.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT tg_id, username, first_name, joined_at, tier, daily_count,
		        last_analysis_day, total_count, bonus_day, referral_code, referred_by
		 FROM users WHERE tg_id = $1`, tgID)

	var u domain.User
	var tier string
	if err := row.Scan(&u.TgID, &u.Username, &u.FirstName, &u.JoinedAt, &tier,
		&u.DailyCount, &u.LastAnalysisDay, &u.TotalCount, &u.BonusDay,
		&u.ReferralCode, &u.ReferredBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Tier = domain.Tier(tier)

	rows, err := s.db.Query(ctx,
		`SELECT address FROM watchlist WHERE tg_id = $1 ORDER BY added_at`, tgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		u.Watchlist = append(u.Watchlist, addr)
	}

	refRows, err := s.db.Query(ctx,
		`SELECT referred_id FROM referrals WHERE referrer_id = $1 ORDER BY created_at`, tgID)
	if err != nil {
		return nil, err
	}
	defer refRows.Close()
	for refRows.Next() {
		var id int64
		if err := refRows.Scan(&id); err != nil {
			return nil, err
		}
		u.Referrals = append(u.Referrals, id)
	}

	return &u, nil
}

func (s *PostgresStore) SetTier(ctx context.Context, tgID int64, tier domain.Tier) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET tier = $1 WHERE tg_id = $2`, string(tier), tgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) ReserveDailySlot(ctx context.Context, tgID int64, freeLimit int, now time.Time) error {
	day := domain.DayKey(now)

	// Day reset, limit check and increment in one conditional update.
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET
			daily_count = (CASE WHEN last_analysis_day = $2 THEN daily_count ELSE 0 END) + 1,
			last_analysis_day = $2
		WHERE tg_id = $1
		  AND (tier IN ('pro', 'whale')
		       OR bonus_day = $2
		       OR (CASE WHEN last_analysis_day = $2 THEN daily_count ELSE 0 END) < $3)`,
		tgID, day, freeLimit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE tg_id = $1)`, tgID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrQuotaExceeded
}

func (s *PostgresStore) ReleaseDailySlot(ctx context.Context, tgID int64, now time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET daily_count = daily_count - 1
		 WHERE tg_id = $1 AND last_analysis_day = $2 AND daily_count > 0`,
		tgID, domain.DayKey(now))
	return err
}

func (s *PostgresStore) CommitAnalysis(ctx context.Context, tgID int64, now time.Time) error {
	day := domain.DayKey(now)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE users SET total_count = total_count + 1 WHERE tg_id = $1`, tgID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO day_stats (day, analyses) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET analyses = day_stats.analyses + 1`, day); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO day_active (day, tg_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, day, tgID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) AddToWatchlist(ctx context.Context, tgID int64, address string, cap int) error {
	// Free tier cap enforced inside the insert to stay atomic.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO watchlist (tg_id, address)
		SELECT $1, $2
		WHERE EXISTS (
			SELECT 1 FROM users u WHERE u.tg_id = $1
			  AND (u.tier <> 'free'
			       OR (SELECT COUNT(*) FROM watchlist w WHERE w.tg_id = $1) < $3)
		)
		ON CONFLICT DO NOTHING`,
		tgID, address, cap)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish duplicate (fine) from cap hit.
	var watched bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM watchlist WHERE tg_id = $1 AND address = $2)`,
		tgID, address).Scan(&watched); err != nil {
		return err
	}
	if watched {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE tg_id = $1)`, tgID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrWatchlistFull
}

func (s *PostgresStore) RemoveFromWatchlist(ctx context.Context, tgID int64, address string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM watchlist WHERE tg_id = $1 AND address = $2`, tgID, address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotWatched
	}
	return nil
}

func (s *PostgresStore) ByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var tgID int64
	err := s.db.QueryRow(ctx,
		`SELECT tg_id FROM users WHERE referral_code = $1`, code).Scan(&tgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Get(ctx, tgID)
}

func (s *PostgresStore) AttachReferral(ctx context.Context, referrerID, referredID int64, bonusDay string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE users SET referred_by = $1 WHERE tg_id = $2 AND referred_by = 0`,
		referrerID, referredID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE tg_id = $1)`, referredID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrReferralTaken
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO referrals (referrer_id, referred_id) VALUES ($1, $2)
		 ON CONFLICT (referred_id) DO NOTHING`, referrerID, referredID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET bonus_day = $1 WHERE tg_id = $2`, bonusDay, referrerID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) AddAlert(ctx context.Context, a Alert) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO alerts (tg_id, address, symbol) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`, a.TgID, a.Address, a.Symbol)
	return err
}

func (s *PostgresStore) RemoveAlert(ctx context.Context, tgID int64, address string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM alerts WHERE tg_id = $1 AND address = $2`, tgID, address)
	return err
}

func (s *PostgresStore) Alerts(ctx context.Context) ([]Alert, error) {
	rows, err := s.db.Query(ctx,
		`SELECT tg_id, address, symbol, created_at FROM alerts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.TgID, &a.Address, &a.Symbol, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordCommand(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO command_usage (name, count) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET count = command_usage.count + 1`, name)
	return err
}

// TopUsers returns the heaviest users by lifetime analysis count. Basic
// rows only; watchlists and referral lists are not loaded for a list view.
func (s *PostgresStore) TopUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx,
		`SELECT tg_id, username, first_name, joined_at, tier, total_count, referred_by
		 FROM users ORDER BY total_count DESC, tg_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		var tier string
		if err := rows.Scan(&u.TgID, &u.Username, &u.FirstName, &u.JoinedAt,
			&tier, &u.TotalCount, &u.ReferredBy); err != nil {
			return nil, err
		}
		u.Tier = domain.Tier(tier)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{
		CommandUsage: make(map[string]int64),
		Days:         make(map[string]domain.DayStats),
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&snap.TotalUsers); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(analyses), 0) FROM day_stats`).Scan(&snap.TotalAnalyses); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT name, count FROM command_usage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		snap.CommandUsage[name] = count
	}

	dayRows, err := s.db.Query(ctx, `
		SELECT d.day, d.analyses, COALESCE(a.active, 0)
		FROM day_stats d
		LEFT JOIN (
			SELECT day, COUNT(*) AS active FROM day_active GROUP BY day
		) a ON a.day = d.day`)
	if err != nil {
		return nil, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day string
		var ds domain.DayStats
		if err := dayRows.Scan(&day, &ds.Analyses, &ds.ActiveUsers); err != nil {
			return nil, err
		}
		snap.Days[day] = ds
	}

	return snap, nil
}
