package controller

import (
	"bufio"

	"notechat-be/internal/dto"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/pkg/serverutils"
	"notechat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	History(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
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
	h := r.Group("/note/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":id/chat", c.History)
	h.Post(":id/chat", c.Send)
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	noteId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, noteId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// Send runs the synchronous part of the chat pipeline and then hands the
// response body over to the stream writer. Once this handler returns, the
// returned StreamFunc keeps running on its own goroutine; authorization
// failures surface as regular error responses because they happen before
// the handoff.
func (c *chatController) Send(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	noteId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	streamFn, err := c.chatService.StreamChat(ctx.Context(), userId, noteId, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		streamFn(w)
	})

	return nil
}
