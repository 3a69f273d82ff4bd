package controller

import (
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	oauthService service.IOAuthService
	clientURL    string
}

func NewOAuthController(oauthService service.IOAuthService, clientURL string) IOAuthController {
	return &oauthController{
		oauthService: oauthService,
		clientURL:    clientURL,
	}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/oauth")
	h.Get(":provider/login", c.Login)
	h.Get(":provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	url, err := c.oauthService.GetLoginURL(ctx.Params("provider"))
	if err != nil {
		return err
	}
	return ctx.Redirect(url, fiber.StatusTemporaryRedirect)
}

func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	code := ctx.Query("code")
	if code == "" {
		return serverutils.NewBadRequestError("Missing authorization code")
	}

	res, err := c.oauthService.HandleCallback(ctx.Context(), ctx.Params("provider"), code)
	if err != nil {
		return err
	}

	// Browser flows bounce back to the frontend with the token; API callers
	// get the regular envelope.
	if c.clientURL != "" {
		return ctx.Redirect(c.clientURL+"/oauth/success?token="+res.AccessToken, fiber.StatusTemporaryRedirect)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success login", res))
}
