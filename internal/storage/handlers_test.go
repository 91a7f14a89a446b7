package storage

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	RegisterRoutes(app.Group("/storage"), svc, func(c *fiber.Ctx) error { return c.Next() })
	return app
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/storage/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestStorageUploadHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "photo", int64(4), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	app := newTestApp(NewService(mock, "https://assets.example/"))
	req := multipartRequest(t, map[string]string{"user_id": "user-1", "kind": "photo"}, "file.jpg", []byte("jpeg"))
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: %v", err)
	}
	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil || asset.SizeBytes != 4 {
		t.Fatalf("decode asset: %+v %v", asset, err)
	}
}

func TestStorageUploadMissingFile(t *testing.T) {
	app := newTestApp(NewService(nil, "https://assets.example/"))
	req := multipartRequest(t, map[string]string{"kind": "photo"}, "", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file: %v", err)
	}
}

func TestStorageUploadError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO storage_objects`).WillReturnError(errSave)

	app := newTestApp(NewService(mock, "https://assets.example/"))
	resp, err := app.Test(multipartRequest(t, nil, "file.jpg", []byte("jpeg")))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected error status")
	}
}
