package auth

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, users *Users, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		user, err := users.GetUserByID(c.Context(), UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(user)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		user, err := users.GetUserByID(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(user)
	})
}
