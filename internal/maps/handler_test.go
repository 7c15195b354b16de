package maps

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"realty_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func newMapsEngine(t *testing.T, body string) *gin.Engine {
	t.Helper()
	srv := newNominatim(t, body, nil)
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(NewService(nominatimConfig{url: srv.URL}, logger.Nop()))
	engine.GET("/maps/address-lookup", h.LookupAddress)
	engine.GET("/maps/geocode", h.Geocode)
	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGeocodeEndpoint(t *testing.T) {
	engine := newMapsEngine(t, pinheirosPayload)

	rec := get(engine, "/maps/geocode?address=Rua+dos+Pinheiros+100&city=S%C3%A3o+Paulo")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body GeocodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Latitude != -23.5663 || body.Longitude != -46.6826 {
		t.Fatalf("unexpected point %+v", body)
	}
}

func TestGeocodeEndpointNotFound(t *testing.T) {
	engine := newMapsEngine(t, `[]`)

	if rec := get(engine, "/maps/geocode?address=nowhere+at+all"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMapsEndpointsValidateQuery(t *testing.T) {
	engine := newMapsEngine(t, `[]`)

	for _, path := range []string{"/maps/geocode", "/maps/address-lookup?q=ab"} {
		if rec := get(engine, path); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}
