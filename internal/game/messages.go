package game

// Client actions.
const (
	ActionRegister = "register"
	ActionBet      = "bet"
	ActionCashout  = "cashout"
	ActionPing     = "ping"
)

// Server actions.
const (
	ActionRoundStart       = "round_start"
	ActionRoundRunning     = "round_running"
	ActionUpdateMultiplier = "update_multiplier"
	ActionRoundEnd         = "round_end"
	ActionBetConfirmed     = "bet_confirmed"
	ActionCashedOut        = "cashed_out"
	ActionUpdateBalance    = "update_balance"
	ActionError            = "error"
	ActionPong             = "pong"
)

// ClientMessage is anything a connected client may send.
type ClientMessage struct {
	Action      string  `json:"action"`
	UserID      string  `json:"user_id,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

// Message is the server envelope. Fields not used by an action stay empty.
type Message struct {
	Action     string    `json:"action"`
	RoundID    uint64    `json:"round_id,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	Multiplier float64   `json:"multiplier,omitempty"`
	CrashPoint float64   `json:"crash_point,omitempty"`
	Aborted    bool      `json:"aborted,omitempty"`
	History    []float64 `json:"history,omitempty"`
	Prediction float64   `json:"prediction,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	BetID      string    `json:"bet_id,omitempty"`
	Payout     float64   `json:"payout,omitempty"`
	Balance    *float64  `json:"balance,omitempty"`
	Message    string    `json:"message,omitempty"`
	Code       string    `json:"code,omitempty"`
}

func RoundStartMessage(roundID uint64, durationSeconds float64) Message {
	return Message{Action: ActionRoundStart, RoundID: roundID, Duration: durationSeconds}
}

func RoundRunningMessage(roundID uint64) Message {
	return Message{Action: ActionRoundRunning, RoundID: roundID}
}

func MultiplierMessage(roundID uint64, multiplier float64) Message {
	return Message{Action: ActionUpdateMultiplier, RoundID: roundID, Multiplier: multiplier}
}

func RoundEndMessage(roundID uint64, crashPoint float64, aborted bool, history []float64) Message {
	return Message{
		Action:     ActionRoundEnd,
		RoundID:    roundID,
		CrashPoint: crashPoint,
		Aborted:    aborted,
		History:    history,
		Prediction: PredictNext(history),
	}
}

func BetConfirmedMessage(bet Bet) Message {
	return Message{Action: ActionBetConfirmed, Amount: bet.Amount, BetID: bet.BetID}
}

func CashedOutMessage(s Settlement) Message {
	return Message{Action: ActionCashedOut, BetID: s.BetID, Payout: s.Payout, Multiplier: s.Multiplier}
}

func BalanceMessage(balance float64) Message {
	return Message{Action: ActionUpdateBalance, Balance: &balance}
}

func ErrorMessage(err error) Message {
	return Message{Action: ActionError, Message: err.Error(), Code: ErrorCode(err)}
}

func PongMessage() Message {
	return Message{Action: ActionPong}
}
