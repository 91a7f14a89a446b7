package storage

import (
	"io"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// FormFile reads the named multipart file from the request.
func FormFile(c *fiber.Ctx, field string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, apperr.Validation(apperr.CodeInvalidInput, "multipart field %q is required", field)
	}
	if fh.Size > MaxUploadBytes {
		return "", nil, apperr.Validation(apperr.CodeInvalidInput, "upload exceeds %d bytes", MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		name, data, err := FormFile(c, "file")
		if err != nil {
			return err
		}
		userID := auth.UserID(c)
		if userID == "" {
			userID = c.FormValue("user_id")
		}
		asset, err := svc.Upload(c.Context(), userID, c.FormValue("kind"), name, data)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(asset)
	})
}
