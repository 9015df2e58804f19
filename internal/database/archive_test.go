package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	srv, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := RunMigrations(srv.DB(), migrationsPath); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if _, err := srv.DB().Exec("TRUNCATE rounds CASCADE"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewArchive(srv.DB())
}

func sampleRecord(roundNo uint64, resolved time.Time) game.RoundRecord {
	return game.RoundRecord{
		RoundID:        roundNo,
		SeedCommitment: game.SeedCommitment("archive-salt", 42),
		CrashPoint:     2.37,
		Ticks:          30,
		StartedAt:      resolved.Add(-3 * time.Second),
		ResolvedAt:     resolved,
		Bets: []game.BetRecord{
			{BetID: uuid.NewString(), ParticipantID: "alice", Amount: 100, CashedOutAt: 1.5, Payout: 150, PlacedAt: resolved.Add(-5 * time.Second)},
			{BetID: uuid.NewString(), ParticipantID: "bob", Amount: 20, AutoCashout: 3, PlacedAt: resolved.Add(-4 * time.Second)},
		},
	}
}

func TestArchive_RecordAndRead(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	now := time.Now().UTC().Truncate(time.Second)

	for i := uint64(1); i <= 3; i++ {
		if err := a.RecordRound(ctx, sampleRecord(i, now)); err != nil {
			t.Fatalf("RecordRound(%d) error = %v", i, err)
		}
	}

	rounds, err := a.RecentRounds(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRounds() error = %v", err)
	}
	if len(rounds) != 2 || rounds[0].RoundID != 3 || rounds[1].RoundID != 2 {
		t.Fatalf("RecentRounds() = %+v, want rounds 3, 2", rounds)
	}
	if rounds[0].CrashPoint != 2.37 || rounds[0].SeedCommitment != game.SeedCommitment("archive-salt", 42) {
		t.Errorf("round = %+v", rounds[0])
	}

	bets, err := a.ParticipantBets(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("ParticipantBets() error = %v", err)
	}
	if len(bets) != 3 {
		t.Fatalf("ParticipantBets() returned %d, want 3", len(bets))
	}
	if bets[0].AutoCashout != 3 || bets[0].CashedOutAt != 0 || bets[0].Payout != 0 {
		t.Errorf("bob's bet = %+v", bets[0])
	}
}

func TestArchive_AbortedRoundWithoutStart(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	rec := game.RoundRecord{RoundID: 9, Aborted: true, ResolvedAt: time.Now()}
	if err := a.RecordRound(ctx, rec); err != nil {
		t.Fatalf("RecordRound() error = %v", err)
	}
	rounds, err := a.RecentRounds(ctx, 1)
	if err != nil || len(rounds) != 1 {
		t.Fatalf("RecentRounds() = %v, %v", rounds, err)
	}
	if !rounds[0].Aborted || !rounds[0].StartedAt.IsZero() {
		t.Errorf("round = %+v, want aborted with no start", rounds[0])
	}
}

func TestArchive_PruneRounds(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)
	now := time.Now().UTC()

	a.RecordRound(ctx, sampleRecord(1, now.Add(-48*time.Hour)))
	a.RecordRound(ctx, sampleRecord(2, now))

	n, err := a.PruneRounds(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneRounds() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PruneRounds() deleted %d, want 1", n)
	}

	bets, _ := a.ParticipantBets(ctx, "alice", 10)
	if len(bets) != 1 {
		t.Errorf("alice has %d bets after prune, want 1", len(bets))
	}
}
