package game

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryLedger_Register(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	bal, err := l.Register(ctx, "u1", INITIAL_BALANCE)
	if err != nil || bal != INITIAL_BALANCE {
		t.Fatalf("Register() = %v, %v; want %v", bal, err, INITIAL_BALANCE)
	}

	if _, err := l.Debit(ctx, "u1", 250); err != nil {
		t.Fatalf("Debit() error = %v", err)
	}
	// Registering again keeps the existing balance.
	if bal, _ := l.Register(ctx, "u1", INITIAL_BALANCE); bal != 750 {
		t.Errorf("second Register() = %v, want 750", bal)
	}
}

func TestMemoryLedger_DebitCredit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Register(ctx, "u1", 100)

	tests := []struct {
		name    string
		op      func() (float64, error)
		want    float64
		wantErr error
	}{
		{"debit", func() (float64, error) { return l.Debit(ctx, "u1", 40.5) }, 59.5, nil},
		{"overdraw", func() (float64, error) { return l.Debit(ctx, "u1", 60) }, 59.5, ErrInvalidBetAmount},
		{"credit", func() (float64, error) { return l.Credit(ctx, "u1", 0.1) }, 59.6, nil},
		{"credit again", func() (float64, error) { return l.Credit(ctx, "u1", 0.2) }, 59.8, nil},
		{"debit all", func() (float64, error) { return l.Debit(ctx, "u1", 59.8) }, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("balance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryLedger_SetBalance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	if err := l.SetBalance(ctx, "u1", 42); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	if bal, _ := l.Balance(ctx, "u1"); bal != 42 {
		t.Errorf("Balance() = %v, want 42", bal)
	}
	if err := l.SetBalance(ctx, "u1", -1); err == nil {
		t.Error("SetBalance(-1) succeeded")
	}
}

func TestMemoryLedger_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	l.Register(ctx, "u1", 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
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

func TestPayoutFor(t *testing.T) {
	tests := []struct {
		amount, multiplier, want float64
	}{
		{100, 1.2, 120},
		{10, 2.345, 23.45},
		{33.33, 1.5, 50},
		{1, 1.005, 1.01},
	}
	for _, tt := range tests {
		if got := payoutFor(tt.amount, tt.multiplier); got != tt.want {
			t.Errorf("payoutFor(%v, %v) = %v, want %v", tt.amount, tt.multiplier, got, tt.want)
		}
	}
}
