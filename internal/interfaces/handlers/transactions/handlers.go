package transactions

import (
	"strings"

	txsvc "fundgate-backend/internal/application/transactions"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/middleware"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *txsvc.Service
}

// POST /api/v1/transactions
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var in txsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.InvalidBody(c)
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	tx, err := h.Service.CreateTransaction(c.UserContext(), actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Transaction created successfully", tx, nil)
}

// GET /api/v1/transactions
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	f := txsvc.ListFilter{
		Status: strings.ToUpper(c.Query("status")),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	for key, dst := range map[string]**uuid.UUID{"fund_id": &f.FundID, "investor_id": &f.InvestorID} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return response.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "Invalid "+key)
		}
		*dst = &id
	}

	rows, err := h.Service.ListTransactions(c.UserContext(), actor, f)
	if err != nil {
		return response.FromError(c, err)
	}
	if rows == nil {
		rows = []domain.Transaction{}
	}
	return response.Success(c, "Transactions fetched successfully", rows, fiber.Map{"count": len(rows)})
}
