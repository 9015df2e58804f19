package server

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

// gameWebSocketHandler reads client actions until the connection drops. Replies
// go through the hub so they are ordered with broadcasts.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	userID := conn.Query("user_id", "")

	log.Printf("[WS] New connection from user: %q", userID)
	s.gameHub.RegisterClient(conn, userID)
	defer s.gameHub.UnregisterClient(conn)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for user %q: %v", userID, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg game.ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.gameHub.Reply(conn, malformedMessage)
			continue
		}

		for _, reply := range s.handleClientMessage(context.Background(), conn, msg) {
			s.gameHub.Reply(conn, reply)
		}
	}
}

var malformedMessage = game.Message{Action: game.ActionError, Message: "malformed message", Code: "BadRequest"}

func (s *FiberServer) handleClientMessage(ctx context.Context, conn game.Conn, msg game.ClientMessage) []game.Message {
	userID := msg.UserID
	if userID == "" {
		userID = s.gameHub.UserID(conn)
	}

	switch msg.Action {
	case game.ActionPing:
		return []game.Message{game.PongMessage()}

	case game.ActionRegister:
		if userID == "" {
			return []game.Message{wsError(errUserRequired)}
		}
		balance, err := s.gameManager.Register(ctx, userID)
		if err != nil {
			return []game.Message{wsError(err)}
		}
		s.gameHub.Identify(conn, userID)
		return []game.Message{game.BalanceMessage(balance)}

	case game.ActionBet:
		if userID == "" {
			return []game.Message{wsError(errUserRequired)}
		}
		bet, balance, err := s.gameManager.PlaceBet(ctx, game.BetRequest{
			UserID:      userID,
			Amount:      msg.Amount,
			AutoCashout: msg.AutoCashout,
		})
		if err != nil {
			return []game.Message{wsError(err)}
		}
		return []game.Message{game.BetConfirmedMessage(bet), game.BalanceMessage(balance)}

	case game.ActionCashout:
		if userID == "" {
			return []game.Message{wsError(errUserRequired)}
		}
		settlement, err := s.gameManager.Cashout(ctx, userID)
		if err != nil {
			return []game.Message{wsError(err)}
		}
		return []game.Message{game.CashedOutMessage(settlement), game.BalanceMessage(settlement.Balance)}

	default:
		log.Printf("[WS] Unknown action %q from user %q", msg.Action, userID)
		return []game.Message{{Action: game.ActionError, Message: "unknown action " + msg.Action, Code: "BadRequest"}}
	}
}

func wsError(err error) game.Message {
	return game.Message{Action: game.ActionError, Message: err.Error(), Code: errorCode(err)}
}
