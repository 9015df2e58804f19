package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

const (
	tableRounds = "rounds"
	tableBets   = "bets"
)

// Archive stores resolved rounds and their bets in Postgres.
type Archive struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ game.Archive = (*Archive)(nil)

func NewArchive(db *sql.DB) *Archive {
	return &Archive{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// RecordRound writes the round and all of its bets in one transaction.
func (a *Archive) RecordRound(ctx context.Context, rec game.RoundRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query, args, err := a.sb.Insert(tableRounds).
		Columns("round_no", "seed_commitment", "crash_point", "aborted", "ticks", "started_at", "resolved_at").
		Values(rec.RoundID, rec.SeedCommitment, rec.CrashPoint, rec.Aborted, rec.Ticks, nullTime(rec.StartedAt), rec.ResolvedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert round %d: %w", rec.RoundID, err)
	}

	if len(rec.Bets) > 0 {
		insert := a.sb.Insert(tableBets).
			Columns("id", "round_id", "participant_id", "amount", "auto_cashout", "cashed_out_at", "payout", "placed_at")
		for _, b := range rec.Bets {
			insert = insert.Values(b.BetID, id, b.ParticipantID, b.Amount, nullFloat(b.AutoCashout), nullFloat(b.CashedOutAt), b.Payout, b.PlacedAt)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert bets for round %d: %w", rec.RoundID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentRounds returns the latest archived rounds, newest first, without bets.
func (a *Archive) RecentRounds(ctx context.Context, limit uint64) ([]game.RoundRecord, error) {
	query, args, err := a.sb.Select("round_no", "seed_commitment", "crash_point", "aborted", "ticks", "started_at", "resolved_at").
		From(tableRounds).
		OrderBy("id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}
	defer rows.Close()

	var out []game.RoundRecord
	for rows.Next() {
		var (
			rec     game.RoundRecord
			started sql.NullTime
		)
		if err := rows.Scan(&rec.RoundID, &rec.SeedCommitment, &rec.CrashPoint, &rec.Aborted, &rec.Ticks, &started, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if started.Valid {
			rec.StartedAt = started.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ParticipantBets returns a participant's archived bets, newest first.
func (a *Archive) ParticipantBets(ctx context.Context, participantID string, limit uint64) ([]game.BetRecord, error) {
	query, args, err := a.sb.Select("id", "participant_id", "amount", "auto_cashout", "cashed_out_at", "payout", "placed_at").
		From(tableBets).
		Where(sq.Eq{"participant_id": participantID}).
		OrderBy("placed_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	var out []game.BetRecord
	for rows.Next() {
		var (
			b            game.BetRecord
			auto, cashed sql.NullFloat64
		)
		if err := rows.Scan(&b.BetID, &b.ParticipantID, &b.Amount, &auto, &cashed, &b.Payout, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.AutoCashout = auto.Float64
		b.CashedOutAt = cashed.Float64
		out = append(out, b)
	}
	return out, rows.Err()
}

// PruneRounds deletes rounds resolved before the cutoff. Bets go with them.
func (a *Archive) PruneRounds(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := a.sb.Delete(tableRounds).
		Where(sq.Lt{"resolved_at": before}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune rounds: %w", err)
	}
	return res.RowsAffected()
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
