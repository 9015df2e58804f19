package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lameck-sudo/aviator-game/internal/game"
	"github.com/lameck-sudo/aviator-game/internal/rng"
)

var (
	errUserRequired   = errors.New("user ID is required")
	errInvalidBody    = errors.New("invalid request body")
	errInvalidBalance = errors.New("balance must be a non-negative number")
	errNoArchive      = errors.New("round archive not configured")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidBetAmount),
		errors.Is(err, game.ErrInvalidAutoCashout),
		errors.Is(err, game.ErrInvalidHouseEdge),
		errors.Is(err, rng.ErrInvalidSeed),
		errors.Is(err, errUserRequired),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidBalance):
		return fiber.StatusBadRequest
	case errors.Is(err, game.ErrBettingClosed),
		errors.Is(err, game.ErrBetAlreadyPlaced),
		errors.Is(err, game.ErrNoActiveBet),
		errors.Is(err, game.ErrAlreadyCashedOut),
		errors.Is(err, game.ErrRoundNotActive),
		errors.Is(err, game.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrCashoutTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, errNoArchive):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errUserRequired), errors.Is(err, errInvalidBody), errors.Is(err, errInvalidBalance):
		return "BadRequest"
	case errors.Is(err, errNoArchive):
		return "Unavailable"
	default:
		return game.ErrorCode(err)
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
		"code":  errorCode(err),
	})
}
