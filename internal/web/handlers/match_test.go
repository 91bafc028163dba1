package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/database/mock"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
	"github.com/fugjoo/pigeon-scanner/internal/match"
)

func testEmbedding(axis int) []float32 {
	emb := make([]float32, embedding.Dim)
	emb[axis] = 1
	return emb
}

func newMatchHandler(catalog *mock.MockCatalog, embedder *fakeEmbedder) *MatchHandler {
	return NewMatchHandler(match.NewEngine(catalog), embedder)
}

func postMatch(t *testing.T, handler *MatchHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/v1/match", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.Match(recorder, req)
	return recorder
}

func TestMatchHandler_MatchByEmbedding(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen", Embedding: testEmbedding(0)})
	handler := newMatchHandler(catalog, &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{"embedding": testEmbedding(0)})

	assertStatusCode(t, recorder, http.StatusOK)
	var result match.Result
	decodeJSON(t, recorder, &result)
	if !result.Match {
		t.Fatal("expected a match")
	}
	if result.Pigeon == nil || result.Pigeon.Name != "Grubchen" {
		t.Errorf("unexpected pigeon in result: %+v", result.Pigeon)
	}
}

func TestMatchHandler_MatchByPhoto(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen", Embedding: testEmbedding(0)})
	handler := newMatchHandler(catalog, &fakeEmbedder{embedding: testEmbedding(0)})

	photo := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	recorder := postMatch(t, handler, map[string]any{"photo": photo})

	assertStatusCode(t, recorder, http.StatusOK)
	var result match.Result
	decodeJSON(t, recorder, &result)
	if !result.Match {
		t.Fatal("expected a match")
	}
}

func TestMatchHandler_MissingInput(t *testing.T) {
	handler := newMatchHandler(mock.NewMockCatalog(), &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{})

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONErrorCode(t, recorder, match.CodeMissingInput)
}

func TestMatchHandler_InvalidJSON(t *testing.T) {
	handler := newMatchHandler(mock.NewMockCatalog(), &fakeEmbedder{})

	req := httptest.NewRequest("POST", "/api/v1/match", bytes.NewBufferString("{invalid"))
	recorder := httptest.NewRecorder()
	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestMatchHandler_InvalidThreshold(t *testing.T) {
	handler := newMatchHandler(mock.NewMockCatalog(), &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{
		"embedding": testEmbedding(0),
		"threshold": 0.3,
	})

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONErrorCode(t, recorder, match.CodeInvalidThreshold)
}

func TestMatchHandler_ExplicitZeroThreshold(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen", Embedding: testEmbedding(0)})
	handler := newMatchHandler(catalog, &fakeEmbedder{})

	// An explicit 0 is out of range, not a request for the default.
	recorder := postMatch(t, handler, map[string]any{
		"embedding": testEmbedding(0),
		"threshold": 0,
	})

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONErrorCode(t, recorder, match.CodeInvalidThreshold)
}

func TestMatchHandler_WrongDimension(t *testing.T) {
	handler := newMatchHandler(mock.NewMockCatalog(), &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{"embedding": []float32{1, 2, 3}})

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONErrorCode(t, recorder, match.CodeInvalidEmbedding)
}

func TestMatchHandler_ExtractionFailureIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{
		err: &embedding.ExtractionError{Stage: "model", Err: errors.New("runner down")},
	}
	handler := newMatchHandler(mock.NewMockCatalog(), embedder)

	photo := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	recorder := postMatch(t, handler, map[string]any{"photo": photo})

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONErrorCode(t, recorder, "EXTRACTION_FAILED")
}

func TestMatchHandler_CatalogUnavailable(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.NearestAboveError = fmt.Errorf("connection refused")
	handler := newMatchHandler(catalog, &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{"embedding": testEmbedding(0)})

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}

func TestMatchHandler_NoMatchSuggestions(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen", Embedding: testEmbedding(1)})
	handler := newMatchHandler(catalog, &fakeEmbedder{})

	recorder := postMatch(t, handler, map[string]any{"embedding": testEmbedding(0)})

	assertStatusCode(t, recorder, http.StatusOK)
	var result match.Result
	decodeJSON(t, recorder, &result)
	if result.Match {
		t.Fatal("expected no match")
	}
	if result.Suggestion == "" {
		t.Error("expected a registration suggestion")
	}
	if len(result.SimilarPigeons) != 1 {
		t.Errorf("expected 1 suggestion, got %d", len(result.SimilarPigeons))
	}
}
