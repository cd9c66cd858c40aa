package controller

import (
	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/pkg/serverutils"
	"github.com/letya999/support-rag-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	CacheStats(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("messages", c.SendMessage)
	h.Get("cache/stats", c.CacheStats)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process message", res))
}

func (c *chatController) CacheStats(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success fetch cache stats", c.chatService.CacheStats(ctx.Context())))
}
