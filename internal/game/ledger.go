package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

const INITIAL_BALANCE = 1000.0

// Ledger stores participant balances. Debit must fail with ErrInvalidBetAmount when
// the balance does not cover the amount.
type Ledger interface {
	Register(ctx context.Context, participantID string, initial float64) (float64, error)
	Balance(ctx context.Context, participantID string) (float64, error)
	Debit(ctx context.Context, participantID string, amount float64) (float64, error)
	Credit(ctx context.Context, participantID string, amount float64) (float64, error)
	SetBalance(ctx context.Context, participantID string, balance float64) error
}

// MemoryLedger keeps balances in process memory.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]decimal.Decimal)}
}

func (l *MemoryLedger) Register(_ context.Context, participantID string, initial float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[participantID]
	if !ok {
		bal = decimal.NewFromFloat(initial)
		l.balances[participantID] = bal
	}
	return bal.InexactFloat64(), nil
}

func (l *MemoryLedger) Balance(_ context.Context, participantID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[participantID].InexactFloat64(), nil
}

func (l *MemoryLedger) Debit(_ context.Context, participantID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[participantID]
	amt := decimal.NewFromFloat(amount)
	if bal.LessThan(amt) {
		return bal.InexactFloat64(), fmt.Errorf("%w: balance %s below %s", ErrInvalidBetAmount, bal, amt)
	}
	bal = bal.Sub(amt)
	l.balances[participantID] = bal
	return bal.InexactFloat64(), nil
}

func (l *MemoryLedger) Credit(_ context.Context, participantID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[participantID].Add(decimal.NewFromFloat(amount))
	l.balances[participantID] = bal
	return bal.InexactFloat64(), nil
}

func (l *MemoryLedger) SetBalance(_ context.Context, participantID string, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("%w: negative balance", ErrInvalidBetAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[participantID] = decimal.NewFromFloat(balance)
	return nil
}

// payoutFor returns amount × multiplier rounded to cents.
func payoutFor(amount, multiplier float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(multiplier)).
		Round(2).
		InexactFloat64()
}
