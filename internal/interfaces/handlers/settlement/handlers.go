package settlement

import (
	"time"

	settlementsvc "fundgate-backend/internal/application/settlement"
	"fundgate-backend/internal/middleware"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *settlementsvc.Service
}

type confirmWireRequest struct {
	AmountReceived    decimal.Decimal `json:"amount_received"`
	FundsReceivedDate string          `json:"funds_received_date"`
	BankReference     *string         `json:"bank_reference"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func transactionID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// POST /api/v1/transactions/:id/proof
func (h *Handlers) UploadProof(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := transactionID(c)
	if !ok {
		return response.Fail(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid transaction id")
	}
	var in settlementsvc.ProofInput
	if err := c.BodyParser(&in); err != nil {
		return response.InvalidBody(c)
	}

	tx, err := h.Service.UploadProof(c.UserContext(), actor, id, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wire proof uploaded", tx, nil)
}

// POST /api/v1/transactions/:id/confirm-wire
func (h *Handlers) ConfirmWire(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := transactionID(c)
	if !ok {
		return response.Fail(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid transaction id")
	}
	var req confirmWireRequest
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}
	in := settlementsvc.ConfirmInput{
		TransactionID:  id,
		AmountReceived: req.AmountReceived,
		BankReference:  req.BankReference,
	}
	if req.FundsReceivedDate != "" {
		d, ok := parseDate(req.FundsReceivedDate)
		if !ok {
			return response.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "Invalid funds_received_date", map[string]interface{}{
				"fields": []string{"funds_received_date"},
			})
		}
		in.FundsReceivedDate = d
	}

	out, err := h.Service.ConfirmWire(c.UserContext(), actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wire confirmed", out, nil)
}
