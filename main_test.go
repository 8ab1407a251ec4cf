package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/controllers"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestApp wires the full router against a fresh in-memory database,
// with staff auth and the sync bridge left unconfigured
func setupTestApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t)
	config.SetDB(db)
	return setupRouter(&config.Config{}), db
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheck is a unit test for the healthCheck handler function
func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Hearthline Bakery API is running", response["message"])
}

// TestHealthEndpointIntegration tests the /api/v1/health endpoint with full routing
func TestHealthEndpointIntegration(t *testing.T) {
	router, _ := setupTestApp(t)

	w := doRequest(router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
}

// TestPublicRoutesAreMounted verifies the unauthenticated storefront surface:
// GET works at the root paths, anything else is refused with a 405
func TestPublicRoutesAreMounted(t *testing.T) {
	router, _ := setupTestApp(t)

	w := doRequest(router, http.MethodGet, "/flavors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String(), "an empty catalog is an empty list, not an error")

	w = doRequest(router, http.MethodGet, "/bake-slots", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/flavors", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = doRequest(router, http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestStorefrontOrderFlow walks the happy path end to end: staff set up the
// catalog and a bake day, a customer places an order, and the public
// storefront reflects the remaining spots
func TestStorefrontOrderFlow(t *testing.T) {
	router, db := setupTestApp(t)

	location := models.Location{Name: "Farmers Market", Address: "12 Main St", IsActive: true}
	require.NoError(t, db.Create(&location).Error)

	w := doRequest(router, http.MethodPost, "/api/v1/flavors", map[string]interface{}{
		"name": "Classic Sourdough",
		"sizes": []map[string]interface{}{
			{"name": "regular", "price": "9.00"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var flavorResp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flavorResp))

	bakeDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w = doRequest(router, http.MethodPost, "/api/v1/bake-slots", map[string]interface{}{
		"date":           bakeDate,
		"location_id":    location.ID,
		"total_capacity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var slotResp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slotResp))

	w = doRequest(router, http.MethodPost, "/api/v1/customers", map[string]interface{}{
		"name":  "Jo Baker",
		"email": "jo@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var customerResp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &customerResp))

	w = doRequest(router, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id":  customerResp.Data.ID,
		"bake_slot_id": slotResp.Data.ID,
		"items": []map[string]interface{}{
			{"flavor_id": flavorResp.Data.ID, "size": "regular", "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The storefront sees the flavor and the reduced availability
	w = doRequest(router, http.MethodGet, "/flavors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var flavors []controllers.PublicFlavor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flavors))
	require.Len(t, flavors, 1)
	assert.Equal(t, "Classic Sourdough", flavors[0].Name)

	w = doRequest(router, http.MethodGet, "/bake-slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []controllers.PublicBakeSlot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	require.Len(t, slots, 1)
	assert.Equal(t, 7, slots[0].SpotsRemaining)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/bake-slots/%d/availability", slotResp.Data.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var availability struct {
		Data struct {
			Total     int `json:"total"`
			Booked    int `json:"booked"`
			Remaining int `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &availability))
	assert.Equal(t, 10, availability.Data.Total)
	assert.Equal(t, 3, availability.Data.Booked)
}
