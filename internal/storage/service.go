package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const MaxUploadBytes = 8 << 20

type Asset struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
}

func NewService(db db.Querier, baseURL string) *Service {
	return &Service{db: db, baseURL: baseURL}
}

// Upload records data as a stored object and returns where it is served from.
func (s *Service) Upload(ctx context.Context, userID, kind, fileName string, data []byte) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, apperr.Validation(apperr.CodeInvalidInput, "upload is empty")
	}
	if len(data) > MaxUploadBytes {
		return Asset{}, apperr.Validation(apperr.CodeInvalidInput, "upload exceeds %d bytes", MaxUploadBytes)
	}

	sum := sha256.Sum256(data)
	asset := Asset{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      strings.TrimSpace(kind),
		SizeBytes: int64(len(data)),
		SHA256:    hex.EncodeToString(sum[:]),
	}
	u, err := url.JoinPath(s.baseURL, asset.ID, cleanName(fileName))
	if err != nil {
		return Asset{}, err
	}
	asset.URL = u

	err = s.db.QueryRow(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind, size_bytes, sha256)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, asset.ID, asset.UserID, asset.URL, asset.Kind, asset.SizeBytes, asset.SHA256).Scan(&asset.CreatedAt)
	if err != nil {
		return Asset{}, err
	}

	log.WithFields(log.Fields{
		"asset_id": asset.ID,
		"kind":     asset.Kind,
		"size":     asset.SizeBytes,
	}).Info("asset stored")
	return asset, nil
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
