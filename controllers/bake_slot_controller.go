package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
)

// CreateBakeSlotRequest represents the request body for creating a bake slot
type CreateBakeSlotRequest struct {
	Date          string `json:"date" binding:"required"`
	LocationID    uint   `json:"location_id" binding:"required"`
	TotalCapacity int    `json:"total_capacity" binding:"required,gt=0"`
	CutoffTime    string `json:"cutoff_time"` // RFC3339, defaults from config
}

// GenerateBakeSlotsRequest represents the request body for bulk generation
type GenerateBakeSlotsRequest struct {
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	Weekdays      []int  `json:"weekdays" binding:"required,min=1"` // 0=Sunday .. 6=Saturday
	LocationID    uint   `json:"location_id" binding:"required"`
	TotalCapacity int    `json:"total_capacity" binding:"required,gt=0"`
}

// UpdateBakeSlotRequest represents the request body for updating a bake slot
type UpdateBakeSlotRequest struct {
	TotalCapacity *int    `json:"total_capacity"`
	CutoffTime    *string `json:"cutoff_time"`
	IsOpen        *bool   `json:"is_open"`
}

// CreateBakeSlot handles POST /api/v1/bake-slots
func CreateBakeSlot(c *gin.Context) {
	var req CreateBakeSlotRequest
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

	slot := models.BakeSlot{
		Date:          date,
		LocationID:    req.LocationID,
		TotalCapacity: req.TotalCapacity,
		CutoffTime:    defaultCutoff(date),
		IsOpen:        true,
	}
	if req.CutoffTime != "" {
		cutoff, err := time.Parse(time.RFC3339, req.CutoffTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "cutoff_time must be RFC3339",
				},
			})
			return
		}
		slot.CutoffTime = cutoff
	}

	db := config.GetDB()
	if err := db.Create(&slot).Error; err != nil {
		handleServiceError(c, fmt.Errorf("failed to create bake slot: %w", err))
		return
	}
	if err := db.Preload("Location").First(&slot, slot.ID).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	notifySlotChanged(slot.ID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    slot,
	})
}

// GenerateBakeSlots handles POST /api/v1/bake-slots/generate - bulk slot
// creation over a date range, for scheduling weeks ahead
func GenerateBakeSlots(c *gin.Context) {
	var req GenerateBakeSlotsRequest
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

	start, okStart := parseDateParam(req.StartDate)
	end, okEnd := parseDateParam(req.EndDate)
	if !okStart || !okEnd || end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "start_date and end_date must be YYYY-MM-DD with end after start",
			},
		})
		return
	}

	weekdays := map[time.Weekday]bool{}
	for _, day := range req.Weekdays {
		if day < 0 || day > 6 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "weekdays must be 0 (Sunday) through 6 (Saturday)",
				},
			})
			return
		}
		weekdays[time.Weekday(day)] = true
	}

	db := config.GetDB()
	var created []models.BakeSlot
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if !weekdays[date.Weekday()] {
			continue
		}
		// Skip dates that already have a slot at this location
		var count int64
		if err := db.Model(&models.BakeSlot{}).
			Where("date = ? AND location_id = ?", date, req.LocationID).
			Count(&count).Error; err != nil {
			handleServiceError(c, err)
			return
		}
		if count > 0 {
			continue
		}
		slot := models.BakeSlot{
			Date:          date,
			LocationID:    req.LocationID,
			TotalCapacity: req.TotalCapacity,
			CutoffTime:    defaultCutoff(date),
			IsOpen:        true,
		}
		if err := db.Create(&slot).Error; err != nil {
			handleServiceError(c, fmt.Errorf("failed to create bake slot for %s: %w", date.Format("2006-01-02"), err))
			return
		}
		created = append(created, slot)
		notifySlotChanged(slot.ID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

// ListBakeSlots handles GET /api/v1/bake-slots with an optional date filter
func ListBakeSlots(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Location").Order("date asc, id asc")

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

	var slots []models.BakeSlot
	if err := query.Find(&slots).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    slots,
	})
}

// UpdateBakeSlot handles PATCH /api/v1/bake-slots/:id
func UpdateBakeSlot(c *gin.Context) {
	slotID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateBakeSlotRequest
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

	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		handleServiceError(c, fmt.Errorf("%w: bake slot %d", services.ErrNotFound, slotID))
		return
	}

	updates := map[string]interface{}{}
	if req.TotalCapacity != nil {
		// Capacity can grow freely but never shrink below what's booked
		if *req.TotalCapacity < slot.CurrentOrders {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": fmt.Sprintf("total_capacity cannot drop below the %d booked units", slot.CurrentOrders),
				},
			})
			return
		}
		updates["total_capacity"] = *req.TotalCapacity
	}
	if req.CutoffTime != nil {
		cutoff, err := time.Parse(time.RFC3339, *req.CutoffTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "cutoff_time must be RFC3339",
				},
			})
			return
		}
		updates["cutoff_time"] = cutoff
	}
	if req.IsOpen != nil {
		updates["is_open"] = *req.IsOpen
	}

	if len(updates) > 0 {
		if err := db.Model(&slot).Updates(updates).Error; err != nil {
			handleServiceError(c, err)
			return
		}
		notifySlotChanged(slot.ID)
	}

	if err := db.Preload("Location").First(&slot, slotID).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    slot,
	})
}

// CloseBakeSlot handles POST /api/v1/bake-slots/:id/close. Slots referenced
// by orders are never deleted; closing is the terminal operation.
func CloseBakeSlot(c *gin.Context) {
	slotID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		handleServiceError(c, fmt.Errorf("%w: bake slot %d", services.ErrNotFound, slotID))
		return
	}

	if err := db.Model(&slot).Update("is_open", false).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	notifySlotChanged(slot.ID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    slot,
	})
}

// BakeSlotAvailability handles GET /api/v1/bake-slots/:id/availability
func BakeSlotAvailability(c *gin.Context) {
	slotID, ok := parseIDParam(c)
	if !ok {
		return
	}

	availability, err := services.Capacity().CurrentAvailability(slotID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    availability,
	})
}

// defaultCutoff derives a slot's order cutoff from configuration: a fixed
// number of hours before the bake day starts
func defaultCutoff(date time.Time) time.Time {
	hours := 36
	if cfg := config.GetConfig(); cfg != nil && cfg.OrderCutoffHours > 0 {
		hours = cfg.OrderCutoffHours
	}
	return date.Add(-time.Duration(hours) * time.Hour)
}
