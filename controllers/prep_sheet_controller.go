package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/services"
)

// BuildPrepSheetRequest represents the request body for building a prep sheet
type BuildPrepSheetRequest struct {
	BakeDate string `json:"bake_date" binding:"required"`
}

// PrepSheetOrderRequest represents the request body for adding or removing an order
type PrepSheetOrderRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// PrepSheetExtraRequest represents the request body for adding extra loaves
type PrepSheetExtraRequest struct {
	FlavorID uint `json:"flavor_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

// PrepSheetItemRequest represents the request body for updating an unordered line
type PrepSheetItemRequest struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

// CompletePrepSheetRequest represents the request body for completing a sheet.
// Actuals are keyed by item id; unlisted items default to their planned quantity.
type CompletePrepSheetRequest struct {
	Actuals map[uint]int `json:"actuals"`
}

// BuildPrepSheet handles POST /api/v1/prep-sheets
func BuildPrepSheet(c *gin.Context) {
	var req BuildPrepSheetRequest
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

	date, ok := parseDateParam(req.BakeDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "bake_date must be YYYY-MM-DD",
			},
		})
		return
	}

	sheet, err := services.Prep().Build(date)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// GetPrepSheet handles GET /api/v1/prep-sheets/:id
func GetPrepSheet(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	sheet, err := services.Prep().Get(sheetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// GetPrepPlan handles GET /api/v1/prep-sheets/:id/plan - the scaled
// per-flavor phases plus the merged shopping list
func GetPrepPlan(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	plan, err := services.Prep().Plan(sheetID, services.Scaler())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    plan,
	})
}

// AddPrepSheetOrder handles POST /api/v1/prep-sheets/:id/orders
func AddPrepSheetOrder(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req PrepSheetOrderRequest
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

	sheet, err := services.Prep().AddOrder(sheetID, req.OrderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// RemovePrepSheetOrder handles DELETE /api/v1/prep-sheets/:id/orders/:orderId
func RemovePrepSheetOrder(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "orderId")
	if !ok {
		return
	}

	sheet, err := services.Prep().RemoveOrder(sheetID, orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// AddPrepSheetExtra handles POST /api/v1/prep-sheets/:id/extras
func AddPrepSheetExtra(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req PrepSheetExtraRequest
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

	sheet, err := services.Prep().AddExtra(sheetID, req.FlavorID, req.Quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// UpdatePrepSheetItem handles PATCH /api/v1/prep-sheets/:id/items
func UpdatePrepSheetItem(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req PrepSheetItemRequest
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

	sheet, err := services.Prep().UpdateExtraItem(sheetID, req.ItemID, req.Quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}

// CompletePrepSheet handles POST /api/v1/prep-sheets/:id/complete. Completion
// is all-or-nothing and irreversible; it snapshots actual quantities and
// materializes the production records.
func CompletePrepSheet(c *gin.Context) {
	sheetID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CompletePrepSheetRequest
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

	sheet, err := services.Prep().Complete(sheetID, req.Actuals)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}
