package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankaccount/internal/accounts"
)

// RegisterAccountRoutes wires account endpoints. limit guards the
// balance-changing routes.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler, limit fiber.Handler) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts/:accountId/balance", h.Balance)
	r.Get("/accounts/:accountId/transactions", h.Transactions)
	r.Get("/accounts/:accountId/transactions/latest", h.Latest)
	r.Post("/accounts/:accountId/deposits", limit, h.Deposit)
	r.Post("/accounts/:accountId/withdrawals", limit, h.Withdraw)
}
