package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

// SQLiteRecorder archives rounds to a local SQLite file when Postgres is not configured.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and creates its tables.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[RECORDER] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			round_no        INTEGER NOT NULL,
			seed_commitment TEXT,
			crash_point     REAL NOT NULL,
			aborted         INTEGER NOT NULL DEFAULT 0,
			ticks           INTEGER NOT NULL DEFAULT 0,
			started_at      INTEGER,
			resolved_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_resolved ON rounds(resolved_at)`,

		`CREATE TABLE IF NOT EXISTS cashouts (
			bet_id         TEXT PRIMARY KEY,
			round_id       INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL,
			amount         REAL NOT NULL,
			auto_cashout   REAL,
			multiplier     REAL,
			payout         REAL NOT NULL DEFAULT 0,
			placed_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cashouts_round ON cashouts(round_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRound(ctx context.Context, rec game.RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var started sql.NullInt64
	if !rec.StartedAt.IsZero() {
		started = sql.NullInt64{Int64: rec.StartedAt.UnixMilli(), Valid: true}
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO rounds
		(round_no, seed_commitment, crash_point, aborted, ticks, started_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(rec.RoundID), rec.SeedCommitment, rec.CrashPoint, rec.Aborted, rec.Ticks, started, rec.ResolvedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert round %d: %w", rec.RoundID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("round id: %w", err)
	}

	for _, b := range rec.Bets {
		_, err := tx.ExecContext(ctx, `INSERT INTO cashouts
			(bet_id, round_id, participant_id, amount, auto_cashout, multiplier, payout, placed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.BetID, id, b.ParticipantID, b.Amount, nullable(b.AutoCashout), nullable(b.CashedOutAt), b.Payout, b.PlacedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert bet %s: %w", b.BetID, err)
		}
	}
	return tx.Commit()
}

// RecentRounds returns the latest archived rounds, newest first, without bets.
func (r *SQLiteRecorder) RecentRounds(ctx context.Context, limit uint64) ([]game.RoundRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT round_no, seed_commitment, crash_point, aborted, ticks, started_at, resolved_at
		FROM rounds ORDER BY id DESC LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}
	defer rows.Close()

	var out []game.RoundRecord
	for rows.Next() {
		var (
			rec      game.RoundRecord
			commit   sql.NullString
			started  sql.NullInt64
			resolved int64
		)
		if err := rows.Scan(&rec.RoundID, &commit, &rec.CrashPoint, &rec.Aborted, &rec.Ticks, &started, &resolved); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rec.SeedCommitment = commit.String
		if started.Valid {
			rec.StartedAt = time.UnixMilli(started.Int64)
		}
		rec.ResolvedAt = time.UnixMilli(resolved)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ParticipantBets returns a participant's archived bets, newest first.
func (r *SQLiteRecorder) ParticipantBets(ctx context.Context, participantID string, limit uint64) ([]game.BetRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bet_id, participant_id, amount, auto_cashout, multiplier, payout, placed_at
		FROM cashouts WHERE participant_id = ? ORDER BY placed_at DESC, rowid DESC LIMIT ?`, participantID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	var out []game.BetRecord
	for rows.Next() {
		var (
			b            game.BetRecord
			auto, cashed sql.NullFloat64
			placed       int64
		)
		if err := rows.Scan(&b.BetID, &b.ParticipantID, &b.Amount, &auto, &cashed, &b.Payout, &placed); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.AutoCashout = auto.Float64
		b.CashedOutAt = cashed.Float64
		b.PlacedAt = time.UnixMilli(placed)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) PruneRounds(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM rounds WHERE resolved_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune rounds: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}
