package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLedger_Register(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	l := NewLedger(client)

	bal, err := l.Register(ctx, "u1", game.INITIAL_BALANCE)
	if err != nil || bal != game.INITIAL_BALANCE {
		t.Fatalf("Register() = %v, %v; want %v", bal, err, game.INITIAL_BALANCE)
	}
	if got, _ := mr.Get(REDIS_KEY_USER_BALANCE + "u1"); got != "1000" {
		t.Errorf("stored balance = %q, want 1000", got)
	}

	mr.Set(REDIS_KEY_USER_BALANCE+"u1", "12.5")
	if bal, _ := l.Register(ctx, "u1", game.INITIAL_BALANCE); bal != 12.5 {
		t.Errorf("second Register() = %v, want existing 12.5", bal)
	}
}

func TestLedger_DebitCredit(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	l := NewLedger(client)
	l.Register(ctx, "u1", 100)

	bal, err := l.Debit(ctx, "u1", 40.5)
	if err != nil || bal != 59.5 {
		t.Fatalf("Debit() = %v, %v; want 59.5", bal, err)
	}

	bal, err = l.Debit(ctx, "u1", 60)
	if !errors.Is(err, game.ErrInvalidBetAmount) {
		t.Errorf("overdraw error = %v, want %v", err, game.ErrInvalidBetAmount)
	}
	if bal != 59.5 {
		t.Errorf("balance after rejected debit = %v, want 59.5", bal)
	}

	bal, err = l.Credit(ctx, "u1", 0.1)
	if err != nil || bal != 59.6 {
		t.Errorf("Credit() = %v, %v; want 59.6", bal, err)
	}
	if got, _ := l.Balance(ctx, "u1"); got != 59.6 {
		t.Errorf("Balance() = %v, want 59.6", got)
	}
}

func TestLedger_DebitUnknownParticipant(t *testing.T) {
	client, _ := newTestClient(t)
	l := NewLedger(client)

	if _, err := l.Debit(context.Background(), "ghost", 1); !errors.Is(err, game.ErrInvalidBetAmount) {
		t.Errorf("Debit() error = %v, want %v", err, game.ErrInvalidBetAmount)
	}
	if bal, err := l.Balance(context.Background(), "ghost"); err != nil || bal != 0 {
		t.Errorf("Balance() = %v, %v; want 0", bal, err)
	}
}

func TestLedger_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	l := NewLedger(client)
	l.Register(ctx, "u1", 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Debit(ctx, "u1", 10); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("%d debits succeeded, want 10", ok)
	}
	if bal, _ := l.Balance(ctx, "u1"); bal != 0 {
		t.Errorf("Balance() = %v, want 0", bal)
	}
}

func TestLedger_SetBalance(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	l := NewLedger(client)

	if err := l.SetBalance(ctx, "u1", 250.25); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	if bal, _ := l.Balance(ctx, "u1"); bal != 250.25 {
		t.Errorf("Balance() = %v, want 250.25", bal)
	}
	if err := l.SetBalance(ctx, "u1", -1); !errors.Is(err, game.ErrInvalidBetAmount) {
		t.Errorf("SetBalance(-1) error = %v, want %v", err, game.ErrInvalidBetAmount)
	}
}

func TestLedger_BacksMachine(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	l := NewLedger(client)
	l.Register(ctx, "p1", game.INITIAL_BALANCE)

	m, err := game.NewMachine(game.DefaultRoundConfig(), nil, l)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	if _, bal, err := m.PlaceBet(ctx, "p1", 100, 0); err != nil || bal != 900 {
		t.Fatalf("PlaceBet() = %v, %v; want 900", bal, err)
	}
	if _, _, err := m.PlaceBet(ctx, "p1", 100, 0); !errors.Is(err, game.ErrBetAlreadyPlaced) {
		t.Errorf("duplicate PlaceBet() error = %v, want %v", err, game.ErrBetAlreadyPlaced)
	}
}
