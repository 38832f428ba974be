package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SerialWatch/internal/infrastructure/storage"
	"SerialWatch/internal/search"
	"SerialWatch/internal/usecase"
)

type stubSearch struct {
	results map[search.Scope][]search.Result
}

func (s *stubSearch) Search(_ context.Context, req search.Request) ([]search.Result, error) {
	return s.results[req.Scope], nil
}

func newTestRouter(t *testing.T, provider *stubSearch) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := usecase.NewService(usecase.ServiceDeps{
		Store:      storage.NewMemoryStore(),
		Search:     provider,
		MaxResults: 50,
	})
	return NewRouter(service, nil)
}

func doRequest(t *testing.T, router *gin.Engine, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSerialEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7",
		`{"name":"router","serial_value":"ccah21lp1234t5"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var serial struct {
		ID          int64  `json:"id"`
		SerialValue string `json:"serial_value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &serial))
	assert.Equal(t, "CCAH21LP1234T5", serial.SerialValue)
	assert.NotZero(t, serial.ID)
}

func TestCreateSerialValidation(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7",
		`{"serial_value":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSerialOmittedActiveFlag(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7",
		`{"name":"router","serial_value":"SER1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/serials/1", "7",
		`{"name":"router","serial_value":"SER1","is_active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A body without is_active must not flip the disabled serial back on.
	rec = doRequest(t, router, http.MethodPut, "/api/v1/serials/1", "7",
		`{"name":"renamed","serial_value":"SER1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var serial struct {
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &serial))
	assert.Equal(t, "renamed", serial.Name)
	assert.False(t, serial.IsActive)
}

func TestMissingOwnerHeader(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/serials", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScanAndListDetections(t *testing.T) {
	provider := &stubSearch{
		results: map[search.Scope][]search.Result{
			search.ScopeMarketplace: {
				{URL: "https://shopee.tw/x-i.1.2", Title: "X"},
			},
			search.ScopeGeneral: {
				{URL: "https://other.com/y", Title: "Y"},
			},
		},
	}
	router := newTestRouter(t, provider)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7",
		`{"serial_value":"SER1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/serials/1/scan?type=all", "7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		NewDetections         int `json:"new_detections"`
		MarketplaceDetections int `json:"marketplace_detections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.NewDetections)
	assert.Equal(t, 1, result.MarketplaceDetections)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/detections?marketplace=true", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)
}

func TestScanUnknownSerialIs404(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials/99/scan", "7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanInvalidType(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7", `{"serial_value":"SER1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/serials/1/scan?type=bogus", "7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDetectionStatusEndpoint(t *testing.T) {
	provider := &stubSearch{
		results: map[search.Scope][]search.Result{
			search.ScopeMarketplace: {{URL: "https://shopee.tw/x"}},
		},
	}
	router := newTestRouter(t, provider)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7", `{"serial_value":"SER1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/serials/1/scan?type=marketplace-only", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/detections/1/status", "7",
		`{"status":"ignored"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/detections/1/status", "7",
		`{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another user cannot touch the detection.
	rec = doRequest(t, router, http.MethodPatch, "/api/v1/detections/1/status", "8",
		`{"status":"processed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSerialEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/serials", "7", `{"serial_value":"SER1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/serials/1", "7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/serials/1", "7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubSearch{})

	rec := doRequest(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
