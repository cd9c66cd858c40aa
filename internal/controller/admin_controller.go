package controller

import (
	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/pkg/serverutils"
	"github.com/letya999/support-rag-sub001/internal/registry"
	"github.com/letya999/support-rag-sub001/internal/service"
	"github.com/letya999/support-rag-sub001/pkg/events"
	pktNats "github.com/letya999/support-rag-sub001/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ReloadPipeline(ctx *fiber.Ctx) error
	GetEscalations(ctx *fiber.Ctx) error
	ResolveEscalation(ctx *fiber.Ctx) error
}

type adminController struct {
	escalationService service.IEscalationService
	registry          *registry.Registry
	eventPublisher    *pktNats.Publisher
	log               logger.ILogger
}

func NewAdminController(
	escalationService service.IEscalationService,
	reg *registry.Registry,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IAdminController {
	return &adminController{
		escalationService: escalationService,
		registry:          reg,
		eventPublisher:    eventPublisher,
		log:               log,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("pipeline/reload", c.ReloadPipeline)
	h.Get("escalations", c.GetEscalations)
	h.Put("escalations/:id/resolve", c.ResolveEscalation)
}

func (c *adminController) ReloadPipeline(ctx *fiber.Ctx) error {
	if err := c.registry.Reload(); err != nil {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(
			serverutils.ErrorResponse(422, "Pipeline reload rejected: "+err.Error()))
	}

	version, loadedAt := c.registry.Version()

	if c.eventPublisher != nil {
		if err := c.eventPublisher.Publish(ctx.Context(), events.NewPipelineReloaded(version)); err != nil {
			c.log.Warn("AdminController", "Failed to publish pipeline reload event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return ctx.JSON(serverutils.SuccessResponse("Pipeline reloaded", dto.PipelineReloadResponse{
		Version:  version,
		LoadedAt: loadedAt,
	}))
}

func (c *adminController) GetEscalations(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.escalationService.GetPending(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetch escalations", res))
}

func (c *adminController) ResolveEscalation(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid escalation id"))
	}

	if err := c.escalationService.Resolve(ctx.Context(), id); err != nil {
		return err
	}

	c.log.Info("AdminController", "Escalation resolved", map[string]interface{}{
		"escalation_id": id.String(),
		"operator_id":   ctx.Locals("operator_id"),
	})
	return ctx.JSON(serverutils.SuccessResponse[any]("Escalation resolved", nil))
}
