package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

const REDIS_KEY_USER_BALANCE = "crash:balance:"

// debitScript subtracts ARGV[1] only when the balance covers it. A nil reply means
// the participant is unknown or short of funds.
var debitScript = redis.NewScript(`
local bal = redis.call('GET', KEYS[1])
if not bal then
	return false
end
if tonumber(bal) < tonumber(ARGV[1]) then
	return false
end
return redis.call('INCRBYFLOAT', KEYS[1], '-' .. ARGV[1])
`)

// Ledger keeps balances in Redis so they survive restarts and are shared between
// processes.
type Ledger struct {
	client *redis.Client
}

var _ game.Ledger = (*Ledger)(nil)

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func balanceKey(participantID string) string {
	return REDIS_KEY_USER_BALANCE + participantID
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", s, err)
	}
	// INCRBYFLOAT works in long double and can leave noise in the last digits
	return d.Round(8).InexactFloat64(), nil
}

func (l *Ledger) Register(ctx context.Context, participantID string, initial float64) (float64, error) {
	key := balanceKey(participantID)
	if err := l.client.SetNX(ctx, key, formatAmount(initial), 0).Err(); err != nil {
		return 0, fmt.Errorf("register balance: %w", err)
	}
	return l.Balance(ctx, participantID)
}

func (l *Ledger) Balance(ctx context.Context, participantID string) (float64, error) {
	val, err := l.client.Get(ctx, balanceKey(participantID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return parseAmount(val)
}

func (l *Ledger) Debit(ctx context.Context, participantID string, amount float64) (float64, error) {
	res, err := debitScript.Run(ctx, l.client, []string{balanceKey(participantID)}, formatAmount(amount)).Text()
	if errors.Is(err, redis.Nil) {
		bal, _ := l.Balance(ctx, participantID)
		return bal, fmt.Errorf("%w: balance %.2f below %.2f", game.ErrInvalidBetAmount, bal, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return parseAmount(res)
}

func (l *Ledger) Credit(ctx context.Context, participantID string, amount float64) (float64, error) {
	res, err := l.client.IncrByFloat(ctx, balanceKey(participantID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return parseAmount(strconv.FormatFloat(res, 'f', -1, 64))
}

func (l *Ledger) SetBalance(ctx context.Context, participantID string, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("%w: negative balance", game.ErrInvalidBetAmount)
	}
	if err := l.client.Set(ctx, balanceKey(participantID), formatAmount(balance), 0).Err(); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}
