package rank

import (
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

const defaultNearbyRadiusM = 5000

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRankInput
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		rank, err := svc.CreateRank(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rank)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		point, radius, err := request.NearbyQuery(c, defaultNearbyRadiusM)
		if err != nil {
			return err
		}
		ranks, err := svc.NearbyRanks(c.Context(), point, radius)
		if err != nil {
			return err
		}
		return c.JSON(ranks)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		rank, err := svc.GetRank(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(rank)
	})

	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var patch RankPatch
		if err := request.Bind(c, &patch); err != nil {
			return err
		}
		rank, err := svc.UpdateRank(c.Context(), c.Params("id"), patch)
		if err != nil {
			return err
		}
		return c.JSON(rank)
	})

	r.Post("/:id/deactivate", authMiddleware, func(c *fiber.Ctx) error {
		rank, err := svc.DeactivateRank(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(rank)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteRank(c.Context(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
