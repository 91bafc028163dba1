// Package registry handles registration of new pigeons: photo intake,
// best-effort embedding extraction and catalog writes.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
	"github.com/fugjoo/pigeon-scanner/internal/storage"
)

// ErrPigeonNotFound is returned when the referenced pigeon does not exist.
var ErrPigeonNotFound = errors.New("pigeon not found")

// Embedder produces an embedding from raw image bytes.
type Embedder interface {
	Extract(ctx context.Context, imageData []byte) ([]float32, error)
}

// CreateRequest describes a new pigeon to register. Photo is optional;
// without one the entry is created without an embedding and can be
// backfilled later.
type CreateRequest struct {
	Name        string
	Description string
	IsPublic    bool
	Photo       []byte
}

// Service registers pigeons and records sightings.
type Service struct {
	catalog  database.CatalogWriter
	embedder Embedder
	files    *storage.FileStore
}

// NewService creates a registry service. files may be nil when photo
// persistence is not wanted (CLI tools).
func NewService(catalog database.CatalogWriter, embedder Embedder, files *storage.FileStore) *Service {
	return &Service{catalog: catalog, embedder: embedder, files: files}
}

// Create registers a new pigeon. Embedding extraction is best-effort:
// when it fails the entry is still created, just without an embedding,
// so a bad photo never loses the registration.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*database.StoredPigeon, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("pigeon name is required")
	}

	now := time.Now().UTC()
	pigeon := &database.StoredPigeon{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsPublic:    req.IsPublic,
		FirstSeen:   now,
		CreatedAt:   now,
	}

	if len(req.Photo) == 0 {
		if err := s.catalog.CreatePigeon(ctx, pigeon); err != nil {
			return nil, fmt.Errorf("could not create pigeon: %w", err)
		}
		return pigeon, nil
	}

	emb, err := s.embedder.Extract(ctx, req.Photo)
	if err != nil {
		log.Printf("Warning: embedding extraction failed for %q, creating without embedding: %v", pigeon.Name, err)
		emb = nil
	}
	pigeon.Embedding = emb

	img, err := s.storeImage(pigeon.ID, req.Photo, emb)
	if err != nil {
		return nil, err
	}

	if img == nil {
		if err := s.catalog.CreatePigeon(ctx, pigeon); err != nil {
			return nil, fmt.Errorf("could not create pigeon: %w", err)
		}
		return pigeon, nil
	}

	if err := s.catalog.CreatePigeonWithImage(ctx, pigeon, img); err != nil {
		if s.files != nil {
			s.files.Remove(img.FilePath)
		}
		return nil, fmt.Errorf("could not create pigeon: %w", err)
	}
	return pigeon, nil
}

// storeImage writes the photo to disk and builds its catalog record.
// Returns nil when no file store is configured.
func (s *Service) storeImage(pigeonID string, photo []byte, emb []float32) (*database.StoredImage, error) {
	if s.files == nil {
		return nil, nil
	}

	mimeType := embedding.DetectMIMEType(photo)
	name, err := s.files.Save(pigeonID, mimeType, photo)
	if err != nil {
		return nil, err
	}

	return &database.StoredImage{
		ID:        uuid.New().String(),
		PigeonID:  pigeonID,
		FilePath:  name,
		FileSize:  int64(len(photo)),
		MimeType:  mimeType,
		Embedding: emb,
		IsPrimary: true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AddSighting records that an already registered pigeon was seen again.
func (s *Service) AddSighting(ctx context.Context, pigeonID, notes string) (*database.Sighting, error) {
	existing, err := s.catalog.Get(ctx, pigeonID)
	if err != nil {
		return nil, fmt.Errorf("could not look up pigeon %s: %w", pigeonID, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrPigeonNotFound, pigeonID)
	}

	sighting := &database.Sighting{
		ID:        uuid.New().String(),
		PigeonID:  pigeonID,
		Notes:     notes,
		Timestamp: time.Now().UTC(),
	}
	if err := s.catalog.AddSighting(ctx, sighting); err != nil {
		return nil, fmt.Errorf("could not record sighting: %w", err)
	}
	return sighting, nil
}

// DecodePhoto accepts either raw base64 or a data URI
// ("data:image/jpeg;base64,...") and returns the image bytes.
func DecodePhoto(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty photo data")
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 photo data: %w", err)
	}
	return data, nil
}
