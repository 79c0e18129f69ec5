package accounts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/bankaccount/internal/account"
	"github.com/congo-pay/bankaccount/internal/middleware"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type accountResponse struct {
	ID      string              `json:"id"`
	Balance decimal.Decimal     `json:"balance"`
	Opening account.Transaction `json:"opening_transaction"`
}

type balanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	AsOf      time.Time       `json:"as_of"`
}

type transactionsResponse struct {
	AccountID    string                `json:"account_id"`
	Transactions []account.Transaction `json:"transactions"`
}

// Open creates an account with the requested opening balance.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	opened, err := h.service.Open(c.UserContext(), req.OpeningBalance)
	if err != nil {
		return toHTTPError(err)
	}
	c.Locals(middleware.AccountIDLocal, opened.ID)
	c.Location("/api/v1/accounts/" + opened.ID + "/balance")
	return c.Status(http.StatusCreated).JSON(accountResponse{
		ID:      opened.ID,
		Balance: opened.Balance,
		Opening: opened.Opening,
	})
}

// Deposit credits the account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Deposit)
}

// Withdraw debits the account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Withdraw)
}

// Balance returns the account balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id := accountID(c)
	balance, err := h.service.Balance(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		AccountID: id,
		Balance:   balance,
		AsOf:      h.service.Now(),
	})
}

// Transactions returns the full ledger, oldest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	id := accountID(c)
	txs, err := h.service.Transactions(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(transactionsResponse{AccountID: id, Transactions: txs})
}

// Latest returns the most recent ledger entry.
func (h *Handler) Latest(c *fiber.Ctx) error {
	tx, err := h.service.MostRecent(c.UserContext(), accountID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(tx)
}

type mutation func(ctx context.Context, id string, amount decimal.Decimal) (account.Transaction, error)

func (h *Handler) mutate(c *fiber.Ctx, apply mutation) error {
	id := accountID(c)
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := apply(c.UserContext(), id, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

func accountID(c *fiber.Ctx) string {
	id := c.Params("accountId")
	c.Locals(middleware.AccountIDLocal, id)
	return id
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrInvalidArgument):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
