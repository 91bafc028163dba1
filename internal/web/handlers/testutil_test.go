package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fugjoo/pigeon-scanner/internal/database/mock"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
)

// fakeEmbedder returns a canned embedding or error for handler tests.
type fakeEmbedder struct {
	embedding []float32
	err       error
}

func (f *fakeEmbedder) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.embedding != nil {
		return f.embedding, nil
	}
	emb := make([]float32, embedding.Dim)
	emb[0] = 1
	return emb, nil
}

// testRegistry builds a registry service over the given catalog without
// photo persistence.
func testRegistry(catalog *mock.MockCatalog, embedder registry.Embedder) *registry.Service {
	return registry.NewService(catalog, embedder, nil)
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks the error response body
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertJSONErrorCode checks the machine-readable error code
func assertJSONErrorCode(t *testing.T, recorder *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["code"] != expectedCode {
		t.Errorf("expected code '%s', got '%s'", expectedCode, result["code"])
	}
}

// decodeJSON unmarshals the response body into target
func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, recorder.Body.String())
	}
}
