package game

import (
	"errors"

	"github.com/lameck-sudo/aviator-game/internal/rng"
)

// Rejections. None of them change round or ledger state.
var (
	ErrInvalidBetAmount   = errors.New("invalid bet amount")
	ErrInvalidAutoCashout = errors.New("auto cashout must be above 1.00x")
	ErrBettingClosed      = errors.New("betting is closed")
	ErrBetAlreadyPlaced   = errors.New("bet already placed for this round")
	ErrNoActiveBet        = errors.New("no active bet")
	ErrAlreadyCashedOut   = errors.New("already cashed out")
	ErrRoundNotActive     = errors.New("round is not active")
	ErrInvalidTransition  = errors.New("invalid round transition")
	ErrInvalidHouseEdge   = errors.New("invalid house edge")
	ErrInvalidConfig      = errors.New("invalid round config")
	ErrCashoutTimeout     = errors.New("cashout not settled in time")
)

// ErrorCode maps an error to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidBetAmount):
		return "InvalidBetAmount"
	case errors.Is(err, ErrInvalidAutoCashout):
		return "InvalidAutoCashout"
	case errors.Is(err, ErrBettingClosed):
		return "BettingClosed"
	case errors.Is(err, ErrBetAlreadyPlaced):
		return "BetAlreadyPlaced"
	case errors.Is(err, ErrNoActiveBet):
		return "NoActiveBet"
	case errors.Is(err, ErrAlreadyCashedOut):
		return "AlreadyCashedOut"
	case errors.Is(err, ErrRoundNotActive):
		return "RoundNotActive"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrInvalidHouseEdge):
		return "InvalidHouseEdge"
	case errors.Is(err, ErrInvalidConfig):
		return "InvalidConfig"
	case errors.Is(err, ErrCashoutTimeout):
		return "CashoutTimeout"
	case errors.Is(err, rng.ErrInvalidSeed):
		return "InvalidSeed"
	case errors.Is(err, rng.ErrCorruptState):
		return "InternalConsistency"
	default:
		return "Internal"
	}
}
