package route

import (
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRouteInput
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		routes, err := svc.CreateRoute(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(routes)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		route, err := svc.GetRoute(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(route)
	})

	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var patch RoutePatch
		if err := request.Bind(c, &patch); err != nil {
			return err
		}
		route, err := svc.UpdateRoute(c.Context(), c.Params("id"), patch)
		if err != nil {
			return err
		}
		return c.JSON(route)
	})

	r.Post("/:id/deactivate", authMiddleware, func(c *fiber.Ctx) error {
		withdrawal, err := svc.DeactivateRoute(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(withdrawal)
	})
}
