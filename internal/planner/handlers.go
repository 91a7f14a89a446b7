package planner

import (
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, p *Pathfinder) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req Request
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		res, err := p.Plan(c.Context(), req)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}
