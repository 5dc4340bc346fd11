package controller

import (
	"emoflow-be/internal/dto"
	"emoflow-be/internal/pkg/serverutils"
	"emoflow-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IJournalController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type journalController struct {
	journalService service.IJournalService
	memoryService  service.IMemoryService
}

func NewJournalController(journalService service.IJournalService, memoryService service.IMemoryService) IJournalController {
	return &journalController{
		journalService: journalService,
		memoryService:  memoryService,
	}
}

func (c *journalController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/journals", jwtMiddleware)
	h.Get("/", c.GetAll)
	h.Post("/", c.Create)
	h.Get("/:id", c.Show)
	h.Post("/:id/extract-memory", c.ExtractMemory)
}

func (c *journalController) Create(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateJournalRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.journalService.Create(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Journal created", res))
}

func (c *journalController) Show(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid journal id")
	}

	res, err := c.journalService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Journal not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *journalController) GetAll(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.journalService.GetAll(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

// ExtractMemory is the synchronous variant: it blocks until the memory point
// exists and also folds in any image-analysis summaries.
func (c *journalController) ExtractMemory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid journal id")
	}

	// The extraction lookup itself is id-only, so ownership is checked here.
	journal, err := c.journalService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	if journal == nil {
		return fiber.NewError(fiber.StatusNotFound, "Journal not found")
	}

	memoryPoint, err := c.memoryService.ExtractMemory(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Memory point extracted", fiber.Map{
		"memory_point": memoryPoint,
	}))
}
