package investors

import (
	"strings"

	"fundgate-backend/internal/application/approval"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/middleware"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *approval.Service
}

type transitionRequest struct {
	ToStage       string  `json:"to_stage"`
	Notes         string  `json:"notes"`
	ExpectedStage *string `json:"expected_stage"`
}

type bulkApproveRequest struct {
	InvestorIDs []string `json:"investor_ids"`
	Notes       string   `json:"notes"`
}

type confirmFundedRequest struct {
	FundID string `json:"fund_id"`
	Notes  string `json:"notes"`
}

func invalidID(c *fiber.Ctx) error {
	return response.Fail(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid investor id")
}

// POST /api/v1/investors/:id/transition
func (h *Handlers) Transition(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}
	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}
	in := approval.TransitionInput{
		InvestorID: id,
		To:         domain.Stage(strings.ToUpper(strings.TrimSpace(req.ToStage))),
		Notes:      strings.TrimSpace(req.Notes),
	}
	if req.ExpectedStage != nil {
		expected := domain.Stage(strings.ToUpper(strings.TrimSpace(*req.ExpectedStage)))
		in.ExpectedStage = &expected
	}

	res, err := h.Service.Transition(c.UserContext(), actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investor stage updated", res, nil)
}

// POST /api/v1/investors/bulk-approve
func (h *Handlers) BulkApprove(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req bulkApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}
	ids := make([]uuid.UUID, 0, len(req.InvestorIDs))
	for _, s := range req.InvestorIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.Fail(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid investor id", map[string]interface{}{"investor_id": s})
		}
		ids = append(ids, id)
	}

	res, err := h.Service.BulkApprove(c.UserContext(), actor, ids, strings.TrimSpace(req.Notes))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Bulk approval processed", res, fiber.Map{
		"approved": len(res.Approved),
		"failed":   len(res.Failed),
	})
}

// POST /api/v1/investors/:id/confirm-funded
func (h *Handlers) ConfirmFunded(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}
	var req confirmFundedRequest
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}
	fundID, err := uuid.Parse(req.FundID)
	if err != nil {
		return response.Fail(c, fiber.StatusBadRequest, "MISSING_FIELDS", "fund_id is required")
	}

	res, err := h.Service.ConfirmWireFunded(c.UserContext(), actor, id, fundID, strings.TrimSpace(req.Notes))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investor marked as funded", res, nil)
}

// GET /api/v1/investors/:id/history
func (h *Handlers) History(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	rows, err := h.Service.History(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Stage history fetched successfully", rows, nil)
}
