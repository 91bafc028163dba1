package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/database/mock"
)

func TestSightingsHandler_Add(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen"})
	handler := NewSightingsHandler(testRegistry(catalog, &fakeEmbedder{}))

	body := bytes.NewBufferString(`{"notes": "at the fountain"}`)
	req := httptest.NewRequest("POST", "/api/v1/pigeons/p1/sightings", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()
	handler.Add(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp addSightingResponse
	decodeJSON(t, recorder, &resp)
	if resp.PigeonID != "p1" {
		t.Errorf("expected pigeon_id p1, got %s", resp.PigeonID)
	}
	if resp.ID == "" {
		t.Error("expected a generated sighting ID")
	}
}

func TestSightingsHandler_AddEmptyBody(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen"})
	handler := NewSightingsHandler(testRegistry(catalog, &fakeEmbedder{}))

	req := httptest.NewRequest("POST", "/api/v1/pigeons/p1/sightings", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()
	handler.Add(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
}

func TestSightingsHandler_AddUnknownPigeon(t *testing.T) {
	handler := NewSightingsHandler(testRegistry(mock.NewMockCatalog(), &fakeEmbedder{}))

	req := httptest.NewRequest("POST", "/api/v1/pigeons/missing/sightings", nil)
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	recorder := httptest.NewRecorder()
	handler.Add(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "pigeon not found")
}

func TestSightingsHandler_AddInvalidJSON(t *testing.T) {
	catalog := mock.NewMockCatalog()
	catalog.AddPigeon(database.StoredPigeon{ID: "p1", Name: "Grubchen"})
	handler := NewSightingsHandler(testRegistry(catalog, &fakeEmbedder{}))

	req := httptest.NewRequest("POST", "/api/v1/pigeons/p1/sightings", bytes.NewBufferString("{invalid"))
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()
	handler.Add(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
