package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/shopspring/decimal"
)

// ExtraProductionRequest represents the request body for extra production entries
type ExtraProductionRequest struct {
	Date        string           `json:"date" binding:"required"`
	FlavorID    uint             `json:"flavor_id" binding:"required"`
	Quantity    int              `json:"quantity" binding:"required,gt=0"`
	Disposition string           `json:"disposition"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
}

// CreateExtraProduction handles POST /api/v1/extras
func CreateExtraProduction(c *gin.Context) {
	var req ExtraProductionRequest
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

	date, ok := parseDateParam(req.Date)
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

	disposition := req.Disposition
	if disposition == "" {
		disposition = models.DispositionSold
	}
	if !models.ValidDisposition(disposition) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "disposition must be sold, gifted, wasted or personal",
			},
		})
		return
	}

	extra := models.ExtraProduction{
		Date:        date,
		FlavorID:    req.FlavorID,
		Quantity:    req.Quantity,
		Disposition: disposition,
		SalePrice:   req.SalePrice,
	}

	db := config.GetDB()
	if err := db.Create(&extra).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	if err := db.Preload("Flavor").First(&extra, extra.ID).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    extra,
	})
}

// ListExtraProduction handles GET /api/v1/extras with an optional date filter
func ListExtraProduction(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Flavor").Order("id asc")

	if raw := c.Query("date"); raw != "" {
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
		query = query.Where("date >= ? AND date < ?", date, date.AddDate(0, 0, 1))
	}

	var extras []models.ExtraProduction
	if err := query.Find(&extras).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    extras,
	})
}

// UpdateExtraProduction handles PUT /api/v1/extras/:id
func UpdateExtraProduction(c *gin.Context) {
	extraID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ExtraProductionRequest
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

	date, ok := parseDateParam(req.Date)
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
	if req.Disposition != "" && !models.ValidDisposition(req.Disposition) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "disposition must be sold, gifted, wasted or personal",
			},
		})
		return
	}

	db := config.GetDB()
	var extra models.ExtraProduction
	if err := db.First(&extra, extraID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Extra production entry not found",
			},
		})
		return
	}

	extra.Date = date
	extra.FlavorID = req.FlavorID
	extra.Quantity = req.Quantity
	if req.Disposition != "" {
		extra.Disposition = req.Disposition
	}
	extra.SalePrice = req.SalePrice
	if err := db.Save(&extra).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    extra,
	})
}

// DeleteExtraProduction handles DELETE /api/v1/extras/:id
func DeleteExtraProduction(c *gin.Context) {
	extraID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	res := db.Delete(&models.ExtraProduction{}, extraID)
	if res.Error != nil {
		handleServiceError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Extra production entry not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Extra production entry deleted",
	})
}
