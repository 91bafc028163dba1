package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/fugjoo/pigeon-scanner/internal/database/mock"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
	"github.com/fugjoo/pigeon-scanner/internal/storage"
)

// fakeEmbedder returns a canned embedding or error.
type fakeEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbedder) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.embedding, nil
}

func testPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return fs
}

func TestCreate_WithPhoto(t *testing.T) {
	catalog := mock.NewMockCatalog()
	emb := make([]float32, embedding.Dim)
	emb[0] = 1
	svc := NewService(catalog, &fakeEmbedder{embedding: emb}, testFileStore(t))

	pigeon, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Grubchen",
		Photo: testPhoto(t),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if pigeon.ID == "" {
		t.Error("expected a generated ID")
	}
	if len(pigeon.Embedding) != embedding.Dim {
		t.Errorf("expected embedding with %d dims, got %d", embedding.Dim, len(pigeon.Embedding))
	}

	images := catalog.Images(pigeon.ID)
	if len(images) != 1 {
		t.Fatalf("expected 1 stored image, got %d", len(images))
	}
	if !images[0].IsPrimary {
		t.Error("expected the first image to be primary")
	}
	if images[0].MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", images[0].MimeType)
	}
}

func TestCreate_ExtractionFailureDegrades(t *testing.T) {
	catalog := mock.NewMockCatalog()
	embedder := &fakeEmbedder{err: errors.New("runner unreachable")}
	svc := NewService(catalog, embedder, testFileStore(t))

	pigeon, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Bert",
		Photo: testPhoto(t),
	})
	if err != nil {
		t.Fatalf("extraction failure must not fail registration, got %v", err)
	}
	if len(pigeon.Embedding) != 0 {
		t.Error("expected no embedding after failed extraction")
	}

	stored, err := catalog.Get(context.Background(), pigeon.ID)
	if err != nil || stored == nil {
		t.Fatalf("entry not persisted: %v", err)
	}
	// The photo itself is still kept.
	if len(catalog.Images(pigeon.ID)) != 1 {
		t.Errorf("expected the photo to be stored despite failed extraction")
	}
}

func TestCreate_WithoutPhoto(t *testing.T) {
	catalog := mock.NewMockCatalog()
	embedder := &fakeEmbedder{}
	svc := NewService(catalog, embedder, testFileStore(t))

	pigeon, err := svc.Create(context.Background(), CreateRequest{Name: "Coco"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("expected no extraction without a photo, got %d calls", embedder.calls)
	}
	if len(catalog.Images(pigeon.ID)) != 0 {
		t.Error("expected no stored images")
	}
}

func TestCreate_NameRequired(t *testing.T) {
	svc := NewService(mock.NewMockCatalog(), &fakeEmbedder{}, nil)

	if _, err := svc.Create(context.Background(), CreateRequest{Name: "   "}); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestAddSighting(t *testing.T) {
	catalog := mock.NewMockCatalog()
	svc := NewService(catalog, &fakeEmbedder{}, nil)

	pigeon, err := svc.Create(context.Background(), CreateRequest{Name: "Coco"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sighting, err := svc.AddSighting(context.Background(), pigeon.ID, "at the fountain")
	if err != nil {
		t.Fatalf("AddSighting failed: %v", err)
	}
	if sighting.PigeonID != pigeon.ID {
		t.Errorf("sighting attached to wrong pigeon: %s", sighting.PigeonID)
	}

	meta, err := catalog.Metadata(context.Background(), pigeon.ID)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if meta.SightingsCount != 1 {
		t.Errorf("expected 1 sighting, got %d", meta.SightingsCount)
	}
}

func TestAddSighting_UnknownPigeon(t *testing.T) {
	svc := NewService(mock.NewMockCatalog(), &fakeEmbedder{}, nil)

	_, err := svc.AddSighting(context.Background(), "no-such-id", "")
	if !errors.Is(err, ErrPigeonNotFound) {
		t.Errorf("expected ErrPigeonNotFound, got %v", err)
	}
}

func TestDecodePhoto(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"PlainBase64", encoded, false},
		{"DataURI", "data:image/jpeg;base64," + encoded, false},
		{"Empty", "", true},
		{"MalformedDataURI", "data:image/jpeg;base64", true},
		{"InvalidBase64", "!!!not base64!!!", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := DecodePhoto(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePhoto failed: %v", err)
			}
			if !bytes.Equal(data, raw) {
				t.Errorf("decoded bytes mismatch: %v", data)
			}
		})
	}
}
