package journey

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/auth"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/planner"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

type Planner interface {
	Plan(ctx context.Context, req planner.Request) (planner.PlanResult, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, p Planner, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		userID := auth.UserID(c)
		if userID == "" {
			userID = req.UserID
		}
		plan, err := p.Plan(c.Context(), req.Request)
		if err != nil {
			return err
		}
		j, err := svc.CreateJourney(c.Context(), plan, userID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(j)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		caller := auth.UserID(c)
		userID := c.Query("user_id", caller)
		if userID == "" {
			return apperr.Validation(apperr.CodeInvalidInput, "user_id is required")
		}
		if caller != "" && userID != caller {
			return apperr.Forbidden("cannot list journeys of another user")
		}
		journeys, err := svc.ListJourneys(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(journeys)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		j, err := svc.GetJourney(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		if caller := auth.UserID(c); caller != "" && j.UserID != caller {
			return apperr.Forbidden("journey %s belongs to another user", j.ID)
		}
		return c.JSON(j)
	})

	r.Post("/:id/transitions", authMiddleware, func(c *fiber.Ctx) error {
		var req TransitionRequest
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		if err := svc.Authorize(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return err
		}
		j, err := svc.Transition(c.Context(), c.Params("id"), req)
		if err != nil {
			return err
		}
		return c.JSON(j)
	})

	r.Post("/:id/rating", authMiddleware, func(c *fiber.Ctx) error {
		var req RatingRequest
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		if err := svc.Authorize(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return err
		}
		j, err := svc.RateJourney(c.Context(), c.Params("id"), req.Rating, req.Feedback)
		if err != nil {
			return err
		}
		return c.JSON(j)
	})
}
