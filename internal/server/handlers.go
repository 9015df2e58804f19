package server

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lameck-sudo/aviator-game/internal/game"
	"github.com/lameck-sudo/aviator-game/internal/rng"
)

const (
	DEFAULT_PAGE_SIZE = 20
	MAX_PAGE_SIZE     = 100
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"database": notConfigured,
		"cache":    notConfigured,
		"game": fiber.Map{
			"status":            "running",
			"state":             s.gameManager.State().State,
			"connected_clients": s.gameHub.GetClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

var notConfigured = fiber.Map{"status": "not configured"}

func (s *FiberServer) getGameStateHandler(c *fiber.Ctx) error {
	return c.JSON(s.gameManager.State())
}

func (s *FiberServer) getHistoryHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"history": s.gameManager.History(),
	})
}

func (s *FiberServer) getRecentRoundsHandler(c *fiber.Ctx) error {
	if s.archive == nil {
		return errorResponse(c, errNoArchive)
	}
	rounds, err := s.archive.RecentRounds(c.UserContext(), pageSize(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"rounds": rounds})
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var req game.BetRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, errInvalidBody)
	}
	if req.UserID == "" {
		return errorResponse(c, errUserRequired)
	}

	bet, balance, err := s.gameManager.PlaceBet(c.UserContext(), req)
	if err != nil {
		return c.Status(statusFor(err)).JSON(game.BetResponse{
			Success: false,
			Message: err.Error(),
			Code:    errorCode(err),
			Balance: balance,
		})
	}

	return c.JSON(game.BetResponse{
		Success: true,
		Message: "Bet placed",
		BetID:   bet.BetID,
		RoundID: s.gameManager.State().RoundID,
		Amount:  bet.Amount,
		Balance: balance,
	})
}

// cashoutHandler blocks until the next tick settles the request.
func (s *FiberServer) cashoutHandler(c *fiber.Ctx) error {
	var req game.CashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, errInvalidBody)
	}
	if req.UserID == "" {
		return errorResponse(c, errUserRequired)
	}

	settlement, err := s.gameManager.Cashout(c.UserContext(), req.UserID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(game.CashoutResponse{
			Success: false,
			Message: err.Error(),
			Code:    errorCode(err),
		})
	}

	return c.JSON(game.CashoutResponse{
		Success:    true,
		Message:    "Cashed out",
		Multiplier: settlement.Multiplier,
		Payout:     settlement.Payout,
		Balance:    settlement.Balance,
	})
}

func (s *FiberServer) registerUserHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := s.gameManager.Register(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := s.gameManager.Balance(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

// setUserBalanceHandler sets a user's balance (for testing/admin)
func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return errorResponse(c, errInvalidBody)
	}
	if math.IsNaN(body.Balance) || math.IsInf(body.Balance, 0) || body.Balance < 0 {
		return errorResponse(c, errInvalidBalance)
	}

	if err := s.gameManager.SetBalance(c.UserContext(), userID, body.Balance); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": body.Balance,
		"message": "Balance updated successfully",
	})
}

func (s *FiberServer) getUserBetsHandler(c *fiber.Ctx) error {
	if s.archive == nil {
		return errorResponse(c, errNoArchive)
	}
	bets, err := s.archive.ParticipantBets(c.UserContext(), c.Params("userId"), pageSize(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"bets": bets})
}

func (s *FiberServer) abortRoundHandler(c *fiber.Ctx) error {
	if err := s.gameManager.AbortRound(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"aborted":  true,
		"round_id": s.gameManager.State().RoundID,
	})
}

func (s *FiberServer) fairnessHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"seed_commitment": s.gameManager.SeedCommitment(),
		"house_edge":      s.gameManager.HouseEdge(),
	})
}

// verifyRoundHandler replays the generator from a revealed seed:
// GET /fairness/verify?seed=42&salt=...&round=3&crash_point=2.48
func (s *FiberServer) verifyRoundHandler(c *fiber.Ctx) error {
	seed, err := rng.ParseSeed(c.Query("seed"))
	if err != nil {
		return errorResponse(c, err)
	}
	round, err := strconv.ParseUint(c.Query("round"), 10, 64)
	if err != nil || round == 0 {
		return errorResponse(c, errInvalidBody)
	}

	edge := s.gameManager.HouseEdge()
	resp := fiber.Map{
		"round":    round,
		"expected": game.CrashPointFor(seed, round, edge),
	}
	if salt := c.Query("salt"); salt != "" {
		resp["commitment_matches"] = game.VerifyCommitment(salt, seed, s.gameManager.SeedCommitment())
	}
	if claimed := c.Query("crash_point"); claimed != "" {
		v, err := strconv.ParseFloat(claimed, 64)
		if err != nil {
			return errorResponse(c, errInvalidBody)
		}
		resp["valid"] = game.VerifyRound(seed, round, edge, v)
	}
	return c.JSON(resp)
}

func pageSize(c *fiber.Ctx) uint64 {
	n := c.QueryInt("limit", DEFAULT_PAGE_SIZE)
	if n <= 0 {
		n = DEFAULT_PAGE_SIZE
	}
	if n > MAX_PAGE_SIZE {
		n = MAX_PAGE_SIZE
	}
	return uint64(n)
}
