package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bakeSlotRouter() *gin.Engine {
	router := gin.New()
	slots := router.Group("/api/v1/bake-slots")
	slots.POST("", CreateBakeSlot)
	slots.POST("/generate", GenerateBakeSlots)
	slots.GET("", ListBakeSlots)
	slots.PATCH("/:id", UpdateBakeSlot)
	slots.POST("/:id/close", CloseBakeSlot)
	slots.GET("/:id/availability", BakeSlotAvailability)
	return router
}

func TestCreateBakeSlotAppliesDefaultCutoff(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")

	config.SetConfig(&config.Config{OrderCutoffHours: 24})
	t.Cleanup(func() { config.SetConfig(nil) })

	w := performRequest(bakeSlotRouter(), http.MethodPost, "/api/v1/bake-slots", map[string]interface{}{
		"date":           "2026-09-12",
		"location_id":    location.ID,
		"total_capacity": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var slot models.BakeSlot
	require.NoError(t, db.Order("id desc").First(&slot).Error)
	date, _ := parseDateParam("2026-09-12")
	assert.True(t, slot.CutoffTime.Equal(date.Add(-24*time.Hour)),
		"cutoff defaults to the configured hours before the bake day")
	assert.True(t, slot.IsOpen)
	assert.Equal(t, 20, slot.TotalCapacity)
}

func TestCreateBakeSlotValidation(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	router := bakeSlotRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing date", map[string]interface{}{"location_id": location.ID, "total_capacity": 10}},
		{"malformed date", map[string]interface{}{"date": "Sept 12", "location_id": location.ID, "total_capacity": 10}},
		{"zero capacity", map[string]interface{}{"date": "2026-09-12", "location_id": location.ID, "total_capacity": 0}},
		{"malformed cutoff", map[string]interface{}{"date": "2026-09-12", "location_id": location.ID, "total_capacity": 10, "cutoff_time": "noonish"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/v1/bake-slots", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}
}

func TestGenerateBakeSlotsSkipsExistingDates(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	router := bakeSlotRouter()

	// Saturday Sep 12 already has a slot; generation must not duplicate it
	existingDate, _ := parseDateParam("2026-09-12")
	existing := models.BakeSlot{
		Date:          existingDate,
		LocationID:    location.ID,
		TotalCapacity: 8,
		CutoffTime:    existingDate.Add(-12 * time.Hour),
		IsOpen:        true,
	}
	require.NoError(t, db.Create(&existing).Error)

	// Mon Sep 7 through Sun Sep 13, Mondays and Saturdays only
	w := performRequest(router, http.MethodPost, "/api/v1/bake-slots/generate", map[string]interface{}{
		"start_date":     "2026-09-07",
		"end_date":       "2026-09-13",
		"weekdays":       []int{1, 6},
		"location_id":    location.ID,
		"total_capacity": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeEnvelope(t, w)["data"].([]interface{})
	require.Len(t, created, 1, "only the Monday is new")

	var count int64
	require.NoError(t, db.Model(&models.BakeSlot{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestGenerateBakeSlotsValidation(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	router := bakeSlotRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			"end before start",
			map[string]interface{}{
				"start_date": "2026-09-13", "end_date": "2026-09-07",
				"weekdays": []int{1}, "location_id": location.ID, "total_capacity": 10,
			},
		},
		{
			"weekday out of range",
			map[string]interface{}{
				"start_date": "2026-09-07", "end_date": "2026-09-13",
				"weekdays": []int{7}, "location_id": location.ID, "total_capacity": 10,
			},
		},
		{
			"empty weekdays",
			map[string]interface{}{
				"start_date": "2026-09-07", "end_date": "2026-09-13",
				"weekdays": []int{}, "location_id": location.ID, "total_capacity": 10,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/v1/bake-slots/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}
}

func TestUpdateBakeSlotCapacityFloor(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	slot := seedTestSlot(t, db, location.ID, 3, 10)
	require.NoError(t, db.Model(&models.BakeSlot{}).Where("id = ?", slot.ID).
		Update("current_orders", 4).Error)
	router := bakeSlotRouter()

	// Shrinking below the booked units is refused
	w := performRequest(router, http.MethodPatch, fmt.Sprintf("/api/v1/bake-slots/%d", slot.ID),
		map[string]interface{}{"total_capacity": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	// Growing is always fine
	w = performRequest(router, http.MethodPatch, fmt.Sprintf("/api/v1/bake-slots/%d", slot.ID),
		map[string]interface{}{"total_capacity": 25, "is_open": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.BakeSlot
	require.NoError(t, db.First(&updated, slot.ID).Error)
	assert.Equal(t, 25, updated.TotalCapacity)
	assert.False(t, updated.IsOpen)
	assert.Equal(t, 4, updated.CurrentOrders, "booked units are untouched")
}

func TestCloseBakeSlot(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	slot := seedTestSlot(t, db, location.ID, 3, 10)
	router := bakeSlotRouter()

	w := performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/bake-slots/%d/close", slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var closed models.BakeSlot
	require.NoError(t, db.First(&closed, slot.ID).Error)
	assert.False(t, closed.IsOpen)

	w = performRequest(router, http.MethodPost, "/api/v1/bake-slots/9999/close", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestBakeSlotAvailabilityEndpoint(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	slot := seedTestSlot(t, db, location.ID, 3, 12)
	require.NoError(t, db.Model(&models.BakeSlot{}).Where("id = ?", slot.ID).
		Update("current_orders", 5).Error)
	router := bakeSlotRouter()

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/bake-slots/%d/availability", slot.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 12, data["total"])
	assert.EqualValues(t, 5, data["booked"])
	assert.EqualValues(t, 7, data["remaining"])
}

func TestListBakeSlotsDateFilter(t *testing.T) {
	db := setupControllerTest(t)
	location := seedTestLocation(t, db, "Farmers Market")
	target := seedTestSlot(t, db, location.ID, 3, 10)
	seedTestSlot(t, db, location.ID, 5, 10)
	router := bakeSlotRouter()

	w := performRequest(router, http.MethodGet,
		"/api/v1/bake-slots?date="+target.Date.Format("2006-01-02"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope(t, w)["data"].([]interface{}), 1)

	w = performRequest(router, http.MethodGet, "/api/v1/bake-slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEnvelope(t, w)["data"].([]interface{}), 2)

	w = performRequest(router, http.MethodGet, "/api/v1/bake-slots?date=last-tuesday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}
