package sign

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/auth"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/request"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const defaultNearbyRadiusM = 1000

type Uploader interface {
	Upload(ctx context.Context, userID, kind, fileName string, data []byte) (storage.Asset, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, uploader Uploader, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var in SubmitInput
		if err := request.Bind(c, &in); err != nil {
			return err
		}
		if id := auth.UserID(c); id != "" {
			in.UserID = id
		}
		sign, err := svc.SubmitSign(c.Context(), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sign)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		point, radius, err := request.NearbyQuery(c, defaultNearbyRadiusM)
		if err != nil {
			return err
		}
		signs, err := svc.NearbySigns(c.Context(), point, radius)
		if err != nil {
			return err
		}
		return c.JSON(signs)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		sign, err := svc.GetSign(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(sign)
	})

	r.Post("/:id/verify", authMiddleware, func(c *fiber.Ctx) error {
		verifier := auth.UserID(c)
		if verifier == "" {
			var body struct {
				VerifierID string `json:"verifier_id"`
			}
			if err := request.Bind(c, &body); err != nil {
				return err
			}
			verifier = body.VerifierID
		}
		sign, err := svc.VerifySign(c.Context(), c.Params("id"), verifier)
		if err != nil {
			return err
		}
		return c.JSON(sign)
	})

	r.Post("/:id/match", authMiddleware, func(c *fiber.Ctx) error {
		sign, err := svc.MatchSign(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(sign)
	})

	r.Post("/:id/photo", authMiddleware, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := svc.GetSign(c.Context(), id); err != nil {
			return err
		}
		name, data, err := storage.FormFile(c, "photo")
		if err != nil {
			return err
		}
		asset, err := uploader.Upload(c.Context(), auth.UserID(c), "sign_photo", name, data)
		if err != nil {
			return err
		}
		sign, err := svc.AttachPhoto(c.Context(), id, asset.URL)
		if err != nil {
			return err
		}
		return c.JSON(sign)
	})
}
