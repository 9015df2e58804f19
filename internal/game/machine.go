package game

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lameck-sudo/aviator-game/internal/rng"
)

const (
	GROWTH_RATE    = 0.03
	MIN_BET_AMOUNT = 1.0
	MAX_BET_AMOUNT = 10000.0
)

// RoundConfig is fixed for the lifetime of a Machine.
type RoundConfig struct {
	HouseEdge   float64
	GrowthRate  float64
	HistorySize int
	MaxBet      float64 // zero disables the cap
}

func DefaultRoundConfig() RoundConfig {
	return RoundConfig{
		HouseEdge:   HOUSE_EDGE,
		GrowthRate:  GROWTH_RATE,
		HistorySize: DEFAULT_HISTORY_SIZE,
		MaxBet:      MAX_BET_AMOUNT,
	}
}

func (c RoundConfig) Validate() error {
	if err := ValidateHouseEdge(c.HouseEdge); err != nil {
		return err
	}
	if math.IsNaN(c.GrowthRate) || c.GrowthRate <= 0 {
		return fmt.Errorf("%w: growth rate must be positive", ErrInvalidConfig)
	}
	if c.HistorySize < 1 || c.HistorySize > MAX_HISTORY_SIZE {
		return fmt.Errorf("%w: history size %d not in [1, %d]", ErrInvalidConfig, c.HistorySize, MAX_HISTORY_SIZE)
	}
	if c.MaxBet < 0 {
		return fmt.Errorf("%w: negative max bet", ErrInvalidConfig)
	}
	return nil
}

type cashoutRequest struct {
	participantID string
	multiplier    float64
	seq           uint64
}

// Machine is the round lifecycle: IDLE -> ACTIVE -> RESOLVED -> IDLE.
//
// All methods serialize on one mutex. Open, Start, Tick and Abort are meant for the
// single scheduler goroutine; PlaceBet and RequestCashout may come from anywhere.
type Machine struct {
	mu        sync.Mutex
	cfg       RoundConfig
	gen       *rng.MT19937
	ledger    Ledger
	history   *History
	round     *Round
	seq       uint64
	pending   []cashoutRequest
	requested map[string]bool
	now       func() time.Time
}

// NewMachine returns a machine with round 1 open for bets.
func NewMachine(cfg RoundConfig, gen *rng.MT19937, ledger Ledger) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		cfg:     cfg,
		gen:     gen,
		ledger:  ledger,
		history: NewHistory(cfg.HistorySize),
		now:     time.Now,
	}
	m.openLocked(1)
	return m, nil
}

func (m *Machine) Config() RoundConfig {
	return m.cfg
}

func (m *Machine) History() *History {
	return m.history
}

// Open starts betting for the next round. Only valid once the current round resolved.
func (m *Machine) Open() (RoundView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round.State != StateResolved {
		return m.viewLocked(), fmt.Errorf("%w: open from %s", ErrInvalidTransition, m.round.State)
	}
	m.openLocked(m.round.ID + 1)
	return m.viewLocked(), nil
}

func (m *Machine) openLocked(id uint64) {
	m.round = &Round{
		ID:                id,
		State:             StateIdle,
		CurrentMultiplier: MIN_MULTIPLIER,
		Bets:              make(map[string]*Bet),
		OpenedAt:          m.now(),
	}
	m.pending = nil
	m.requested = make(map[string]bool)
}

// PlaceBet debits the stake and records the bet for the open round.
func (m *Machine) PlaceBet(ctx context.Context, participantID string, amount, autoCashout float64) (Bet, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State != StateIdle {
		return Bet{}, 0, ErrBettingClosed
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Bet{}, 0, fmt.Errorf("%w: %v", ErrInvalidBetAmount, amount)
	}
	if amount < MIN_BET_AMOUNT {
		return Bet{}, 0, fmt.Errorf("%w: %v below minimum %v", ErrInvalidBetAmount, amount, MIN_BET_AMOUNT)
	}
	if m.cfg.MaxBet > 0 && amount > m.cfg.MaxBet {
		return Bet{}, 0, fmt.Errorf("%w: %v above limit %v", ErrInvalidBetAmount, amount, m.cfg.MaxBet)
	}
	if autoCashout != 0 && (math.IsNaN(autoCashout) || autoCashout <= MIN_MULTIPLIER) {
		return Bet{}, 0, fmt.Errorf("%w: %v", ErrInvalidAutoCashout, autoCashout)
	}
	if _, ok := r.Bets[participantID]; ok {
		return Bet{}, 0, ErrBetAlreadyPlaced
	}

	balance, err := m.ledger.Debit(ctx, participantID, amount)
	if err != nil {
		return Bet{}, balance, err
	}

	m.seq++
	bet := &Bet{
		BetID:         uuid.NewString(),
		ParticipantID: participantID,
		Amount:        amount,
		AutoCashout:   autoCashout,
		PlacedAt:      m.now(),
		seq:           m.seq,
	}
	r.Bets[participantID] = bet
	return *bet, balance, nil
}

// Start locks bets and draws the crash point for the round.
func (m *Machine) Start() (RoundView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State != StateIdle {
		return m.viewLocked(), fmt.Errorf("%w: start from %s", ErrInvalidTransition, r.State)
	}
	if err := m.gen.Check(); err != nil {
		return m.viewLocked(), err
	}

	r.CrashPoint = ComputeCrashPoint(m.gen.Float64(), m.cfg.HouseEdge)
	r.CurrentMultiplier = MIN_MULTIPLIER
	r.Tick = 0
	r.State = StateActive
	r.StartedAt = m.now()
	return m.viewLocked(), nil
}

// RequestCashout queues a cash-out at the current multiplier. It is applied at the
// next tick boundary.
func (m *Machine) RequestCashout(participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State != StateActive {
		return ErrRoundNotActive
	}
	bet, ok := r.Bets[participantID]
	if !ok {
		return ErrNoActiveBet
	}
	if bet.Settled || m.requested[participantID] {
		return ErrAlreadyCashedOut
	}

	m.seq++
	m.pending = append(m.pending, cashoutRequest{
		participantID: participantID,
		multiplier:    r.CurrentMultiplier,
		seq:           m.seq,
	})
	m.requested[participantID] = true
	return nil
}

// Tick advances the multiplier one step, settles queued and automatic cash-outs, and
// resolves the round once the crash point is reached.
func (m *Machine) Tick(ctx context.Context) (TickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State != StateActive {
		return TickResult{RoundID: r.ID}, ErrRoundNotActive
	}

	r.Tick++
	r.CurrentMultiplier = nextMultiplier(r.CurrentMultiplier, m.cfg.GrowthRate)
	res := TickResult{RoundID: r.ID, Tick: r.Tick}

	m.settlePendingLocked(ctx, &res)
	m.settleAutoLocked(ctx, &res)
	if r.CurrentMultiplier >= r.CrashPoint {
		m.resolveLocked(&res, false)
		res.Multiplier = r.CrashPoint
		return res, nil
	}
	res.Multiplier = displayMultiplier(r.CurrentMultiplier)
	return res, nil
}

// Abort force-resolves the active round at the current tick boundary. Queued
// cash-outs are honoured first.
func (m *Machine) Abort(ctx context.Context) (TickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State != StateActive {
		return TickResult{RoundID: r.ID}, ErrRoundNotActive
	}
	res := TickResult{RoundID: r.ID, Tick: r.Tick}
	m.settlePendingLocked(ctx, &res)
	m.resolveLocked(&res, true)
	res.Multiplier = displayMultiplier(r.CurrentMultiplier)
	return res, nil
}

// Halt force-resolves the round from any unresolved state without touching the
// generator. Used when the generator fails its consistency check.
func (m *Machine) Halt(ctx context.Context) (TickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.round
	if r.State == StateResolved {
		return TickResult{RoundID: r.ID}, fmt.Errorf("%w: halt from %s", ErrInvalidTransition, r.State)
	}
	res := TickResult{RoundID: r.ID, Tick: r.Tick}
	if r.State == StateActive {
		m.settlePendingLocked(ctx, &res)
	}
	m.resolveLocked(&res, true)
	res.Multiplier = displayMultiplier(r.CurrentMultiplier)
	return res, nil
}

func (m *Machine) settlePendingLocked(ctx context.Context, res *TickResult) {
	r := m.round
	for _, req := range m.pending {
		bet := r.Bets[req.participantID]
		if bet == nil || bet.Settled || bet.creditFailed {
			continue
		}
		if req.multiplier > r.CurrentMultiplier || req.multiplier >= r.CrashPoint {
			continue
		}
		m.settleLocked(ctx, res, bet, req.multiplier, false)
	}
	m.pending = nil
}

func (m *Machine) settleAutoLocked(ctx context.Context, res *TickResult) {
	r := m.round
	var due []*Bet
	for _, bet := range r.Bets {
		if bet.Settled || bet.creditFailed || bet.AutoCashout == 0 {
			continue
		}
		if bet.AutoCashout <= r.CurrentMultiplier && bet.AutoCashout < r.CrashPoint {
			due = append(due, bet)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].seq < due[j].seq })

	for _, bet := range due {
		m.requested[bet.ParticipantID] = true
		m.settleLocked(ctx, res, bet, bet.AutoCashout, true)
	}
}

// settleLocked credits a winning bet. A failed credit is not retried: the bet stays
// unsettled, resolves as a loss and is reported in res.Failures for reconciliation.
func (m *Machine) settleLocked(ctx context.Context, res *TickResult, bet *Bet, multiplier float64, auto bool) {
	payout := payoutFor(bet.Amount, multiplier)
	balance, err := m.ledger.Credit(ctx, bet.ParticipantID, payout)
	if err != nil {
		bet.creditFailed = true
		res.Failures = append(res.Failures, CreditFailure{
			BetID:         bet.BetID,
			ParticipantID: bet.ParticipantID,
			Multiplier:    multiplier,
			Payout:        payout,
			Err:           fmt.Errorf("credit %s: %w", bet.ParticipantID, err),
		})
		return
	}
	bet.CashedOutAt = multiplier
	bet.Payout = payout
	bet.Settled = true
	res.Settlements = append(res.Settlements, Settlement{
		BetID:         bet.BetID,
		ParticipantID: bet.ParticipantID,
		Amount:        bet.Amount,
		Multiplier:    multiplier,
		Payout:        payout,
		Balance:       balance,
		Auto:          auto,
	})
}

// resolveLocked settles every remaining bet as lost and appends to history. Lost
// stakes were already debited at placement.
func (m *Machine) resolveLocked(res *TickResult, aborted bool) {
	r := m.round
	r.State = StateResolved
	r.Aborted = aborted
	r.ResolvedAt = m.now()
	if !aborted {
		r.CurrentMultiplier = r.CrashPoint
	}

	for _, bet := range m.betsLocked() {
		if bet.Settled {
			continue
		}
		bet.Settled = true
		res.Losses = append(res.Losses, *bet)
	}
	m.pending = nil

	m.history.Push(HistoryEntry{
		RoundID:    r.ID,
		CrashPoint: r.CrashPoint,
		Aborted:    aborted,
		ResolvedAt: r.ResolvedAt,
	})

	res.Resolved = true
	res.Aborted = aborted
	res.CrashPoint = r.CrashPoint
	res.Record = m.recordLocked()
}

func (m *Machine) recordLocked() *RoundRecord {
	r := m.round
	rec := &RoundRecord{
		RoundID:    r.ID,
		CrashPoint: r.CrashPoint,
		Aborted:    r.Aborted,
		Ticks:      r.Tick,
		StartedAt:  r.StartedAt,
		ResolvedAt: r.ResolvedAt,
	}
	for _, bet := range m.betsLocked() {
		rec.Bets = append(rec.Bets, BetRecord{
			BetID:         bet.BetID,
			ParticipantID: bet.ParticipantID,
			Amount:        bet.Amount,
			AutoCashout:   bet.AutoCashout,
			CashedOutAt:   bet.CashedOutAt,
			Payout:        bet.Payout,
			PlacedAt:      bet.PlacedAt,
		})
	}
	return rec
}

// betsLocked returns the round's bets in placement order.
func (m *Machine) betsLocked() []*Bet {
	bets := make([]*Bet, 0, len(m.round.Bets))
	for _, bet := range m.round.Bets {
		bets = append(bets, bet)
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].seq < bets[j].seq })
	return bets
}

// Round returns the participant-facing view. The crash point is included only after
// resolution.
func (m *Machine) Round() RoundView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Machine) viewLocked() RoundView {
	r := m.round
	v := RoundView{
		RoundID:           r.ID,
		State:             r.State,
		CurrentMultiplier: displayMultiplier(r.CurrentMultiplier),
		Tick:              r.Tick,
		Participants:      len(r.Bets),
		StartedAt:         r.StartedAt,
	}
	if r.State == StateResolved {
		v.CrashPoint = r.CrashPoint
		v.Aborted = r.Aborted
	}
	return v
}

// Bet returns a copy of the participant's bet in the current round.
func (m *Machine) Bet(participantID string) (Bet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bet, ok := m.round.Bets[participantID]
	if !ok {
		return Bet{}, false
	}
	return *bet, true
}
