package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"netgauge/web"
)

// HomeIndexAction serves the embedded dashboard page.
func HomeIndexAction(ctx *cartridge.Context) error {
	ctx.Ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Ctx.Send(web.IndexHTML())
}
