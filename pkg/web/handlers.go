// Package web provides the HTTP surface over the rule engine.
package web

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/dmateus/mordomo/pkg/engine"
	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/services"
)

type APIHandlers struct {
	ruleService *services.RuleService
	matcher     *engine.Matcher
	logger      *slog.Logger
}

func NewAPIHandlers(ruleService *services.RuleService, matcher *engine.Matcher, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		ruleService: ruleService,
		matcher:     matcher,
		logger:      logger.With("module", "web"),
	}
}

// ruleRequest is the create/update payload. Enabled defaults to true when
// omitted.
type ruleRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Trigger     models.Trigger  `json:"trigger"`
	Actions     []models.Action `json:"actions"`
	Enabled     *bool           `json:"enabled"`
}

func (r *ruleRequest) toRule(ownerID string) *models.Rule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &models.Rule{
		OwnerID:     ownerID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Actions:     r.Actions,
		Enabled:     enabled,
	}
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	ownerID := c.Params("ownerId")

	return c.JSON(fiber.Map{
		"rules": h.ruleService.ListRulesForOwner(c.Context(), ownerID),
	})
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req ruleRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	rule, err := h.ruleService.CreateRule(c.Context(), req.toRule(c.Params("ownerId")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.ruleService.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	var req ruleRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	existing, err := h.ruleService.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	rule, err := h.ruleService.UpdateRule(c.Context(), existing.ID, req.toRule(existing.OwnerID))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	deleted, err := h.ruleService.DeleteRule(c.Context(), c.Params("id"))
	if err != nil {
		h.logger.Warn("Store delete degraded", "rule_id", c.Params("id"), "error", err)
	}

	if !deleted {
		return notFound(c, "rule not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ToggleRule(c fiber.Ctx) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	rule, err := h.ruleService.ToggleRule(c.Context(), c.Params("id"), req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) ExecuteRule(c fiber.Ctx) error {
	var req struct {
		TriggerData map[string]any `json:"trigger_data"`
	}

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	result, err := h.ruleService.ExecuteRule(c.Context(), c.Params("id"), req.TriggerData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// ProcessEmailEvent feeds an inbound email into the trigger matcher. The
// response acknowledges receipt; matched rules run asynchronously.
func (h *APIHandlers) ProcessEmailEvent(c fiber.Ctx) error {
	var event models.EmailEvent
	if err := c.Bind().Body(&event); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	event.OwnerID = c.Params("ownerId")

	h.matcher.ProcessEvent(c.Context(), event)

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"executions": h.ruleService.ListExecutionLogs(c.Params("ownerId"), queryLimit(c)),
	})
}

func (h *APIHandlers) GetExecutionLogsForRule(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"executions": h.ruleService.ListExecutionLogsForRule(c.Params("id"), queryLimit(c)),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.ruleService.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func queryLimit(c fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}

	return limit
}
