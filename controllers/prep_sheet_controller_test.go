package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepRouter() *gin.Engine {
	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/prep-sheets", BuildPrepSheet)
	v1.GET("/prep-sheets/:id", GetPrepSheet)
	v1.GET("/prep-sheets/:id/plan", GetPrepPlan)
	v1.POST("/prep-sheets/:id/orders", AddPrepSheetOrder)
	v1.DELETE("/prep-sheets/:id/orders/:orderId", RemovePrepSheetOrder)
	v1.POST("/prep-sheets/:id/extras", AddPrepSheetExtra)
	v1.PATCH("/prep-sheets/:id/items", UpdatePrepSheetItem)
	v1.POST("/prep-sheets/:id/complete", CompletePrepSheet)
	v1.GET("/production", ListProduction)
	v1.PATCH("/production/:id/status", UpdateProductionStatus)
	v1.POST("/production/:id/split", SplitProduction)
	v1.POST("/production/:id/sell", SellProduction)
	v1.GET("/analytics/production", ProductionSummary)
	return router
}

// TestPrepSheetLifecycleEndpoints walks a bake day through the HTTP surface:
// build the sheet from the day's orders, pad it with extras, complete it, and
// work the resulting production records through to a sale
func TestPrepSheetLifecycleEndpoints(t *testing.T) {
	env := setupOrderTest(t)
	router := prepRouter()

	w := performRequest(orderRouter(), http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id":  env.customer.ID,
		"bake_slot_id": env.slot.ID,
		"items": []map[string]interface{}{
			{"flavor_id": env.flavor.ID, "size": "regular", "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	bakeDate := env.slot.Date.Format("2006-01-02")
	w = performRequest(router, http.MethodPost, "/api/v1/prep-sheets",
		map[string]interface{}{"bake_date": bakeDate})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	sheet := decodeEnvelope(t, w)["data"].(map[string]interface{})
	sheetID := uint(sheet["id"].(float64))
	assert.Equal(t, "draft", sheet["status"])
	items := sheet["items"].([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]interface{})["planned_quantity"])

	// A date gets exactly one sheet
	w = performRequest(router, http.MethodPost, "/api/v1/prep-sheets",
		map[string]interface{}{"bake_date": bakeDate})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	// Pad the bake with unordered loaves
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/prep-sheets/%d/extras", sheetID),
		map[string]interface{}{"flavor_id": env.flavor.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items = decodeEnvelope(t, w)["data"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 2)

	// The plan renders even without recipes on file
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/prep-sheets/%d/plan", sheetID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Completing with an empty body snapshots planned quantities as actuals
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/prep-sheets/%d/complete", sheetID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decodeEnvelope(t, w)["data"].(map[string]interface{})["status"])

	// Completion materialized one production record per line
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/production?prep_sheet_id=%d", sheetID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeEnvelope(t, w)["data"].([]interface{})
	require.Len(t, records, 2)

	var extraRecordID uint
	for _, raw := range records {
		record := raw.(map[string]interface{})
		if record["order_id"] == nil {
			extraRecordID = uint(record["id"].(float64))
		}
	}
	require.NotZero(t, extraRecordID)

	// One of the three extra loaves goes home with the baker
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/production/%d/split", extraRecordID),
		map[string]interface{}{"quantity": 1, "status": "personal"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	carved := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, carved["quantity"])
	assert.Equal(t, "personal", carved["status"])

	// The rest sell at the market price
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/production/%d/sell", extraRecordID),
		map[string]interface{}{"sale_price": "9.00", "payment_method": "cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sold := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "sold", sold["status"])

	// 2 sold at 9.00; no paid orders yet
	w = performRequest(router, http.MethodGet, "/api/v1/analytics/production?date="+bakeDate, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 5, summary["planned_loaves"])
	assert.EqualValues(t, 5, summary["actual_loaves"])
	assert.Equal(t, "18", summary["revenue"])
	byStatus := summary["by_status"].(map[string]interface{})
	assert.EqualValues(t, 2, byStatus["sold"])
	assert.EqualValues(t, 1, byStatus["personal"])
}

func TestCompletedPrepSheetRefusesEdits(t *testing.T) {
	env := setupOrderTest(t)
	router := prepRouter()

	w := performRequest(orderRouter(), http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id":  env.customer.ID,
		"bake_slot_id": env.slot.ID,
		"items": []map[string]interface{}{
			{"flavor_id": env.flavor.ID, "size": "regular", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	bakeDate := env.slot.Date.Format("2006-01-02")
	w = performRequest(router, http.MethodPost, "/api/v1/prep-sheets",
		map[string]interface{}{"bake_date": bakeDate})
	require.Equal(t, http.StatusCreated, w.Code)
	sheetID := uint(decodeEnvelope(t, w)["data"].(map[string]interface{})["id"].(float64))

	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/prep-sheets/%d/complete", sheetID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Re-completion and edits are all refused on a completed sheet
	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/prep-sheets/%d/complete", sheetID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	w = performRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/prep-sheets/%d/extras", sheetID),
		map[string]interface{}{"flavor_id": env.flavor.ID, "quantity": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))
}

func TestPrepSheetNotFoundAndValidation(t *testing.T) {
	setupOrderTest(t)
	router := prepRouter()

	w := performRequest(router, http.MethodPost, "/api/v1/prep-sheets",
		map[string]interface{}{"bake_date": "next tuesday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = performRequest(router, http.MethodGet, "/api/v1/prep-sheets/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	w = performRequest(router, http.MethodGet, "/api/v1/analytics/production", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
