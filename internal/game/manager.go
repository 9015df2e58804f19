package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lameck-sudo/aviator-game/internal/rng"
)

const (
	TICK_INTERVAL   = 100 * time.Millisecond
	BETTING_TIME    = 5 * time.Second
	INTERMISSION    = 3 * time.Second
	CASHOUT_TIMEOUT = 2 * time.Second
)

var errStopped = errors.New("game loop stopped")

// Broadcaster pushes server messages to connected clients.
type Broadcaster interface {
	Broadcast(message interface{})
	SendTo(userID string, message interface{})
}

// HistoryStore persists recent crash points across restarts.
type HistoryStore interface {
	PushHistory(ctx context.Context, entry HistoryEntry) error
	LoadHistory(ctx context.Context, n int) ([]HistoryEntry, error)
}

// Archive keeps every resolved round.
type Archive interface {
	RecordRound(ctx context.Context, record RoundRecord) error
}

type ManagerConfig struct {
	Round          RoundConfig
	TickInterval   time.Duration
	BettingWindow  time.Duration
	Intermission   time.Duration
	CashoutTimeout time.Duration
	InitialBalance float64
	SeedCommitment string
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Round:          DefaultRoundConfig(),
		TickInterval:   TICK_INTERVAL,
		BettingWindow:  BETTING_TIME,
		Intermission:   INTERMISSION,
		CashoutTimeout: CASHOUT_TIMEOUT,
		InitialBalance: INITIAL_BALANCE,
	}
}

type Option func(*Manager)

func WithHistoryStore(store HistoryStore) Option {
	return func(m *Manager) { m.historyStore = store }
}

func WithArchive(archive Archive) Option {
	return func(m *Manager) { m.archive = archive }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

type cashoutOutcome struct {
	settlement Settlement
	err        error
}

// Manager drives the machine on a ticker and relays results to clients.
type Manager struct {
	machine      *Machine
	ledger       Ledger
	hub          Broadcaster
	historyStore HistoryStore
	archive      Archive
	metrics      *Metrics
	cfg          ManagerConfig
	ctx          context.Context

	waitMu  sync.Mutex
	waiters map[string][]chan cashoutOutcome

	abortChan chan chan error
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	started   atomic.Bool
}

func NewManager(cfg ManagerConfig, gen *rng.MT19937, ledger Ledger, hub Broadcaster, opts ...Option) (*Manager, error) {
	if cfg.TickInterval <= 0 || cfg.BettingWindow < 0 || cfg.Intermission < 0 || cfg.CashoutTimeout <= 0 {
		return nil, fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	machine, err := NewMachine(cfg.Round, gen, ledger)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		machine:   machine,
		ledger:    ledger,
		hub:       hub,
		cfg:       cfg,
		ctx:       context.Background(),
		waiters:   make(map[string][]chan cashoutOutcome),
		abortChan: make(chan chan error),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start restores persisted history and launches the game loop.
func (m *Manager) Start(ctx context.Context) {
	if m.historyStore != nil {
		entries, err := m.historyStore.LoadHistory(ctx, m.cfg.Round.HistorySize)
		if err != nil {
			log.Printf("[GAME] Could not restore history: %v", err)
		} else {
			m.machine.History().Restore(entries)
			log.Printf("[GAME] Restored %d history entries", len(entries))
		}
	}
	m.started.Store(true)
	go m.gameLoop()
}

// Stop aborts any running round and waits for the loop to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	if m.started.Load() {
		<-m.done
	}
}

// Done is closed when the game loop exits.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) Machine() *Machine {
	return m.machine
}

func (m *Manager) State() RoundView {
	return m.machine.Round()
}

func (m *Manager) History() []HistoryEntry {
	return m.machine.History().Entries()
}

func (m *Manager) SeedCommitment() string {
	return m.cfg.SeedCommitment
}

func (m *Manager) HouseEdge() float64 {
	return m.cfg.Round.HouseEdge
}

// Register creates a ledger entry with the initial balance if none exists.
func (m *Manager) Register(ctx context.Context, userID string) (float64, error) {
	balance, err := m.ledger.Register(ctx, userID, m.cfg.InitialBalance)
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", userID, err)
	}
	return balance, nil
}

func (m *Manager) Balance(ctx context.Context, userID string) (float64, error) {
	return m.ledger.Balance(ctx, userID)
}

func (m *Manager) SetBalance(ctx context.Context, userID string, balance float64) error {
	return m.ledger.SetBalance(ctx, userID, balance)
}

func (m *Manager) PlaceBet(ctx context.Context, req BetRequest) (Bet, float64, error) {
	bet, balance, err := m.machine.PlaceBet(ctx, req.UserID, req.Amount, req.AutoCashout)
	if err != nil {
		m.metrics.betRejected(err)
		return bet, balance, err
	}
	m.metrics.betPlaced(bet.Amount)
	log.Printf("[BET] User %s placed %.2f (ID: %s)", bet.ParticipantID, bet.Amount, bet.BetID)
	return bet, balance, nil
}

// Cashout queues a cash-out and waits for the next tick to settle it.
func (m *Manager) Cashout(ctx context.Context, userID string) (Settlement, error) {
	ch := make(chan cashoutOutcome, 1)
	m.addWaiter(userID, ch)

	if err := m.machine.RequestCashout(userID); err != nil {
		m.removeWaiter(userID, ch)
		return Settlement{}, err
	}

	timer := time.NewTimer(m.cfg.CashoutTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.settlement, out.err
	case <-timer.C:
		m.removeWaiter(userID, ch)
		return Settlement{}, ErrCashoutTimeout
	case <-ctx.Done():
		m.removeWaiter(userID, ch)
		return Settlement{}, ctx.Err()
	}
}

// AbortRound force-resolves the running round at the next loop iteration.
func (m *Manager) AbortRound(ctx context.Context) error {
	if m.machine.Round().State != StateActive {
		return ErrRoundNotActive
	}
	reply := make(chan error, 1)
	select {
	case m.abortChan <- reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopChan:
		return errStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) addWaiter(userID string, ch chan cashoutOutcome) {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	m.waiters[userID] = append(m.waiters[userID], ch)
}

func (m *Manager) removeWaiter(userID string, ch chan cashoutOutcome) {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	list := m.waiters[userID]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.waiters, userID)
	} else {
		m.waiters[userID] = list
	}
}

// notify hands out to every waiter of userID. It reports whether anyone was waiting.
func (m *Manager) notify(userID string, out cashoutOutcome) bool {
	m.waitMu.Lock()
	list := m.waiters[userID]
	delete(m.waiters, userID)
	m.waitMu.Unlock()

	for _, ch := range list {
		ch <- out
	}
	return len(list) > 0
}

func (m *Manager) gameLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.stopChan:
			log.Println("[GAME] Game loop stopped")
			return
		default:
		}
		if err := m.runRound(); err != nil {
			if errors.Is(err, errStopped) {
				log.Println("[GAME] Game loop stopped")
			} else {
				log.Printf("[GAME] Game loop halted: %v", err)
			}
			return
		}
	}
}

func (m *Manager) runRound() error {
	view := m.machine.Round()
	log.Printf("\n=== ROUND %d ===", view.RoundID)
	m.hub.Broadcast(RoundStartMessage(view.RoundID, m.cfg.BettingWindow.Seconds()))

	if !m.wait(m.cfg.BettingWindow) {
		m.halt()
		return errStopped
	}

	view, err := m.machine.Start()
	if err != nil {
		log.Printf("[GAME] FATAL: generator failed consistency check: %v", err)
		m.halt()
		return err
	}
	log.Printf("[GAME] Round %d running with %d bets", view.RoundID, view.Participants)
	m.hub.Broadcast(RoundRunningMessage(view.RoundID))

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	var res TickResult
running:
	for {
		select {
		case <-ticker.C:
			res, err = m.machine.Tick(m.ctx)
			m.deliver(res)
			if err != nil {
				log.Printf("[GAME] Tick %d error: %v", res.Tick, err)
				continue
			}
			if res.Resolved {
				break running
			}
			m.hub.Broadcast(MultiplierMessage(res.RoundID, res.Multiplier))

		case reply := <-m.abortChan:
			res, err = m.machine.Abort(m.ctx)
			reply <- err
			if err != nil {
				continue
			}
			m.deliver(res)
			log.Printf("[GAME] Round %d aborted by admin", res.RoundID)
			break running

		case <-m.stopChan:
			res, err = m.machine.Abort(m.ctx)
			if err != nil {
				log.Printf("[GAME] Abort on shutdown failed: %v", err)
				return errStopped
			}
			m.deliver(res)
			m.finish(res)
			return errStopped
		}
	}

	m.finish(res)
	log.Printf("=== ROUND %d ENDED at %.2fx ===\n", res.RoundID, res.CrashPoint)

	if !m.wait(m.cfg.Intermission) {
		return errStopped
	}
	if _, err := m.machine.Open(); err != nil {
		return err
	}
	return nil
}

// wait sleeps for d while no round is running. It reports false on stop.
func (m *Manager) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return true
		case reply := <-m.abortChan:
			reply <- ErrRoundNotActive
		case <-m.stopChan:
			return false
		}
	}
}

// halt force-resolves an unstarted or broken round.
func (m *Manager) halt() {
	res, err := m.machine.Halt(m.ctx)
	if err != nil {
		log.Printf("[GAME] Halt failed: %v", err)
		return
	}
	m.deliver(res)
	m.finish(res)
}

func (m *Manager) deliver(res TickResult) {
	for _, s := range res.Settlements {
		m.metrics.settled(s)
		log.Printf("[CASHOUT] User %s cashed out at %.2fx (Payout: %.2f)", s.ParticipantID, s.Multiplier, s.Payout)
		if !m.notify(s.ParticipantID, cashoutOutcome{settlement: s}) {
			m.hub.SendTo(s.ParticipantID, CashedOutMessage(s))
			m.hub.SendTo(s.ParticipantID, BalanceMessage(s.Balance))
		}
	}
	for _, f := range res.Failures {
		m.metrics.creditFailed()
		log.Printf("[RECONCILE] Round %d bet %s: payout %.2f at %.2fx not credited to %s: %v",
			res.RoundID, f.BetID, f.Payout, f.Multiplier, f.ParticipantID, f.Err)
		if !m.notify(f.ParticipantID, cashoutOutcome{err: f.Err}) {
			m.hub.SendTo(f.ParticipantID, ErrorMessage(f.Err))
		}
	}
}

func (m *Manager) finish(res TickResult) {
	m.metrics.resolved(res)

	lost := fmt.Errorf("%w: round %d crashed at %.2fx", ErrRoundNotActive, res.RoundID, res.CrashPoint)
	for _, bet := range res.Losses {
		log.Printf("[LOSS] User %s lost %.2f", bet.ParticipantID, bet.Amount)
		m.notify(bet.ParticipantID, cashoutOutcome{err: lost})
	}

	history := m.machine.History()
	m.hub.Broadcast(RoundEndMessage(res.RoundID, res.CrashPoint, res.Aborted, history.CrashPoints()))

	if m.historyStore != nil {
		if entries := history.Entries(); len(entries) > 0 {
			if err := m.historyStore.PushHistory(m.ctx, entries[0]); err != nil {
				log.Printf("[GAME] Failed to persist history: %v", err)
			}
		}
	}
	if m.archive != nil && res.Record != nil {
		record := *res.Record
		record.SeedCommitment = m.cfg.SeedCommitment
		if err := m.archive.RecordRound(m.ctx, record); err != nil {
			log.Printf("[GAME] Failed to archive round %d: %v", record.RoundID, err)
		}
	}
}
