package controller

import (
	"notechat-be/internal/dto"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/pkg/serverutils"
	"notechat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type INoteController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Share(ctx *fiber.Ctx) error
	Recent(ctx *fiber.Ctx) error
}

type noteController struct {
	noteService service.INoteService
}

func NewNoteController(noteService service.INoteService) INoteController {
	return &noteController{
		noteService: noteService,
	}
}

func (c *noteController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/note/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("recent", c.Recent)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
	h.Post(":id/share", c.Share)
}

func callerUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperror.NewUnauthorized("missing user identity")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, apperror.NewUnauthorized("invalid user identity")
	}
	return userId, nil
}

func (c *noteController) Create(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.noteService.Create(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create note", res))
}

func (c *noteController) Show(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	res, err := c.noteService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show note", res))
}

func (c *noteController) Update(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	var req dto.UpdateNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.noteService.Update(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update note", res))
}

func (c *noteController) Delete(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	if err := c.noteService.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete note", nil))
}

func (c *noteController) Share(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid note id")
	}

	var req dto.ShareNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.noteService.Share(ctx.Context(), userId, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success share note", nil))
}

func (c *noteController) Recent(ctx *fiber.Ctx) error {
	userId, err := callerUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.noteService.Recent(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list recent notes", res))
}
