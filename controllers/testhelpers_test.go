package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupControllerTest gives the test a fresh in-memory database
func setupControllerTest(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.OpenTestDB(t)
	config.SetDB(db)
	return db
}

// performRequest runs one request against the router and returns the recorder
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeEnvelope unpacks the standard {success, data, error} response shape
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return response
}

// errorCode pulls the stable error code out of a failure envelope
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decodeEnvelope(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no error object: %q", w.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func seedTestLocation(t *testing.T, db *gorm.DB, name string) models.Location {
	t.Helper()
	location := models.Location{Name: name, Address: "12 Main St", IsActive: true}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("Failed to seed location: %v", err)
	}
	return location
}

func seedTestCustomer(t *testing.T, db *gorm.DB, email string) models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Jo Baker", Email: email}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}
	return customer
}

func seedTestFlavor(t *testing.T, db *gorm.DB, name string, price string) models.Flavor {
	t.Helper()
	flavor := models.Flavor{Name: name, IsActive: true, Season: "all"}
	err := flavor.SetSizeList([]models.FlavorSize{
		{Name: "regular", Price: decimal.RequireFromString(price)},
	})
	if err != nil {
		t.Fatalf("Failed to encode sizes: %v", err)
	}
	if err := db.Create(&flavor).Error; err != nil {
		t.Fatalf("Failed to seed flavor: %v", err)
	}
	return flavor
}

func seedTestSlot(t *testing.T, db *gorm.DB, locationID uint, daysAhead, capacity int) models.BakeSlot {
	t.Helper()
	date := time.Now().AddDate(0, 0, daysAhead)
	slot := models.BakeSlot{
		Date:          date,
		LocationID:    locationID,
		TotalCapacity: capacity,
		CutoffTime:    date.Add(-12 * time.Hour),
		IsOpen:        true,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("Failed to seed bake slot: %v", err)
	}
	return slot
}

// offSeason returns a season that does not cover the current date
func offSeason() string {
	current := models.SeasonOf(time.Now())
	for _, season := range []string{"spring", "summer", "fall", "winter"} {
		if season != current {
			return season
		}
	}
	return "winter"
}
