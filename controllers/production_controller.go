package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
	"github.com/shopspring/decimal"
)

// UpdateProductionStatusRequest represents the request body for a status change
type UpdateProductionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SplitProductionRequest represents the request body for splitting a record
type SplitProductionRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

// SellProductionRequest represents the request body for marking a record sold
type SellProductionRequest struct {
	SalePrice     *decimal.Decimal `json:"sale_price"`
	PaymentMethod string           `json:"payment_method"`
}

// ListProduction handles GET /api/v1/production with an optional prep sheet filter
func ListProduction(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Flavor").Order("id asc")

	if raw := c.Query("prep_sheet_id"); raw != "" {
		query = query.Where("prep_sheet_id = ?", raw)
	}

	var records []models.ProductionRecord
	if err := query.Find(&records).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}

// UpdateProductionStatus handles PATCH /api/v1/production/:id/status
func UpdateProductionStatus(c *gin.Context) {
	recordID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateProductionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	record, err := services.Production().UpdateStatus(recordID, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// SplitProduction handles POST /api/v1/production/:id/split. The two
// resulting records always sum to the pre-split quantity.
func SplitProduction(c *gin.Context) {
	recordID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SplitProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	record, err := services.Production().Split(recordID, req.Quantity, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    record,
	})
}

// SellProduction handles POST /api/v1/production/:id/sell - marks the record
// sold and propagates payment to the originating order, if any
func SellProduction(c *gin.Context) {
	recordID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SellProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	record, err := services.Production().MarkSold(recordID, req.SalePrice, req.PaymentMethod)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// ProductionSummary handles GET /api/v1/analytics/production?date=YYYY-MM-DD
// - planned vs. actual loaves, dispositions, and revenue for one bake date
func ProductionSummary(c *gin.Context) {
	raw := c.Query("date")
	date, ok := parseDateParam(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "date must be YYYY-MM-DD",
			},
		})
		return
	}

	sheet, err := services.Prep().GetByDate(date)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	records, err := services.Production().ListBySheet(sheet.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	planned := 0
	actual := 0
	for _, item := range sheet.Items {
		planned += item.PlannedQuantity
		if item.ActualQuantity != nil {
			actual += *item.ActualQuantity
		}
	}

	byStatus := map[string]int{}
	revenue := decimal.Zero
	for _, record := range records {
		byStatus[record.Status] += record.Quantity
		if record.Status == models.DispositionSold && record.SalePrice != nil {
			revenue = revenue.Add(record.SalePrice.Mul(decimal.NewFromInt(int64(record.Quantity))))
		}
	}

	// Paid orders for the date contribute their totals
	db := config.GetDB()
	var orders []models.Order
	if err := db.Joins("JOIN bake_slots ON bake_slots.id = orders.bake_slot_id").
		Where("bake_slots.date >= ? AND bake_slots.date < ?", date, date.AddDate(0, 0, 1)).
		Where("orders.payment_status = ?", models.PaymentStatusPaid).
		Find(&orders).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	for _, order := range orders {
		revenue = revenue.Add(order.TotalAmount)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"bake_date":      date.Format("2006-01-02"),
			"prep_sheet_id":  sheet.ID,
			"planned_loaves": planned,
			"actual_loaves":  actual,
			"by_status":      byStatus,
			"revenue":        revenue,
		},
	})
}
