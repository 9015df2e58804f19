package game

import (
	"time"
)

type RoundState string

const (
	StateIdle     RoundState = "IDLE"
	StateActive   RoundState = "ACTIVE"
	StateResolved RoundState = "RESOLVED"
)

type BetRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

type BetResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Code    string  `json:"code,omitempty"`
	BetID   string  `json:"bet_id,omitempty"`
	RoundID uint64  `json:"round_id,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Balance float64 `json:"balance"`
}

type CashoutRequest struct {
	UserID string `json:"user_id"`
}

type CashoutResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Code       string  `json:"code,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Payout     float64 `json:"payout,omitempty"`
	Balance    float64 `json:"balance"`
}

// Bet is one participant's stake in one round.
type Bet struct {
	BetID         string    `json:"bet_id"`
	ParticipantID string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	AutoCashout   float64   `json:"auto_cashout,omitempty"`
	PlacedAt      time.Time `json:"placed_at"`
	CashedOutAt   float64   `json:"cashed_out_at,omitempty"` // zero until cashed out
	Payout        float64   `json:"payout,omitempty"`
	Settled       bool      `json:"settled"`

	seq          uint64
	creditFailed bool
}

// Round is the machine-owned state of one play cycle.
type Round struct {
	ID                uint64
	State             RoundState
	CrashPoint        float64 // hidden until RESOLVED
	CurrentMultiplier float64
	Tick              int
	Bets              map[string]*Bet
	Aborted           bool
	OpenedAt          time.Time
	StartedAt         time.Time
	ResolvedAt        time.Time
}

// RoundView is the participant-facing copy of a round.
type RoundView struct {
	RoundID           uint64     `json:"round_id"`
	State             RoundState `json:"state"`
	CurrentMultiplier float64    `json:"current_multiplier"`
	Tick              int        `json:"tick"`
	Participants      int        `json:"participants"`
	CrashPoint        float64    `json:"crash_point,omitempty"` // set only once resolved
	Aborted           bool       `json:"aborted,omitempty"`
	StartedAt         time.Time  `json:"started_at,omitempty"`
}

// Settlement is a bet won by cashing out.
type Settlement struct {
	BetID         string  `json:"bet_id"`
	ParticipantID string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	Multiplier    float64 `json:"multiplier"`
	Payout        float64 `json:"payout"`
	Balance       float64 `json:"balance"`
	Auto          bool    `json:"auto"`
}

// TickResult describes what one tick (or an abort) did.
type TickResult struct {
	RoundID     uint64
	Tick        int
	Multiplier  float64
	Settlements []Settlement
	Resolved    bool
	Aborted     bool
	CrashPoint  float64 // zero unless Resolved
	Losses      []Bet
	Failures    []CreditFailure
	Record      *RoundRecord
}

// CreditFailure is a won cash-out whose payout the ledger refused. The bet is
// treated as lost.
type CreditFailure struct {
	BetID         string
	ParticipantID string
	Multiplier    float64
	Payout        float64
	Err           error
}

// RoundRecord is the archived form of a resolved round.
type RoundRecord struct {
	RoundID        uint64      `json:"round_id"`
	SeedCommitment string      `json:"seed_commitment,omitempty"`
	CrashPoint     float64     `json:"crash_point"`
	Aborted        bool        `json:"aborted"`
	Ticks          int         `json:"ticks"`
	StartedAt      time.Time   `json:"started_at"`
	ResolvedAt     time.Time   `json:"resolved_at"`
	Bets           []BetRecord `json:"bets"`
}

type BetRecord struct {
	BetID         string    `json:"bet_id"`
	ParticipantID string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	AutoCashout   float64   `json:"auto_cashout,omitempty"`
	CashedOutAt   float64   `json:"cashed_out_at,omitempty"`
	Payout        float64   `json:"payout"`
	PlacedAt      time.Time `json:"placed_at"`
}
