package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IAiController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	StreamMessage(ctx *fiber.Ctx) error
	AnalyzeFile(ctx *fiber.Ctx) error
}

type aiController struct {
	aiService service.IAiService
}

func NewAiController(aiService service.IAiService) IAiController {
	return &aiController{
		aiService: aiService,
	}
}

func (c *aiController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai")
	// The stream route authenticates via query token because EventSource
	// cannot set headers; the others use the standard bearer middleware.
	h.Get("message", c.StreamMessage)
	h.Post("message", serverutils.JwtMiddleware, c.SendMessage)
	h.Post("analyze-file", serverutils.JwtMiddleware, c.AnalyzeFile)
}

func (c *aiController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.AiMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.aiService.SendMessage(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

// StreamMessage relays the completion over SSE. Frames are
// data: {"content": ...}, data: {"error": ...} and the data: [DONE] sentinel.
func (c *aiController) StreamMessage(ctx *fiber.Ctx) error {
	userId, err := streamUser(ctx)
	if err != nil {
		return err
	}

	chatId, err := uuid.Parse(ctx.Query("chatId"))
	if err != nil {
		return serverutils.NewBadRequestError("Invalid chatId")
	}

	message := ctx.Query("message")
	if message == "" {
		return serverutils.NewBadRequestError("Message must not be empty")
	}

	req := &dto.AiMessageRequest{ChatId: chatId, Message: message}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber context is gone once streaming starts; the relay runs
		// against a fresh context and stops when the client hangs up
		// (flush failure aborts the provider stream, nothing is persisted).
		onChunk := func(chunk string) error {
			payload, err := json.Marshal(map[string]string{"content": chunk})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		}

		if _, err := c.aiService.StreamMessage(context.Background(), userId, req, onChunk); err != nil {
			payload, _ := json.Marshal(map[string]string{"error": constant.FallbackReply})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

func (c *aiController) AnalyzeFile(ctx *fiber.Ctx) error {
	if _, err := serverutils.UserIDFromLocals(ctx); err != nil {
		return err
	}

	var req dto.AnalyzeFileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.aiService.AnalyzeFile(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

// streamUser accepts the JWT from the token query parameter or the bearer header.
func streamUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return uuid.Nil, serverutils.NewUnauthorizedError("Missing token")
	}

	userId, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, serverutils.NewUnauthorizedError("Invalid token")
	}
	return userId, nil
}
