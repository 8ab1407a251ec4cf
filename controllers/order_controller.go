package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	CustomerID       uint                 `json:"customer_id" binding:"required"`
	BakeSlotID       uint                 `json:"bake_slot_id" binding:"required"`
	PickupLocationID uint                 `json:"pickup_location_id"`
	Items            []services.OrderLine `json:"items" binding:"required,min=1"`
}

// UpdateOrderStatusRequest represents the request body for a status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// MarkOrderPaidRequest represents the request body for recording payment
type MarkOrderPaidRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// CreateOrder handles POST /api/v1/orders - staff order intake. The order is
// persisted only if its capacity reservation succeeds.
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
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

	order, err := services.Intake().CreateOrder(services.OrderIntake{
		CustomerID:       req.CustomerID,
		BakeSlotID:       req.BakeSlotID,
		PickupLocationID: req.PickupLocationID,
		Lines:            req.Items,
	}, time.Now())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders with optional date and status filters
func ListOrders(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Customer").Preload("BakeSlot").Preload("PickupLocation").
		Preload("Items.Flavor").Order("orders.id asc")

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
		query = query.Joins("JOIN bake_slots ON bake_slots.id = orders.bake_slot_id").
			Where("bake_slots.date >= ? AND bake_slots.date < ?", date, date.AddDate(0, 0, 1))
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Unknown order status",
				},
			})
			return
		}
		query = query.Where("orders.status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.Preload("Customer").Preload("BakeSlot").Preload("PickupLocation").
		Preload("Items.Flavor").First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
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

	order, err := services.Intake().UpdateStatus(orderID, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel. Cancellation releases
// the order's reserved units exactly once; repeating it is a no-op.
func CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	order, err := services.Intake().CancelOrder(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// MarkOrderPaid handles POST /api/v1/orders/:id/pay
func MarkOrderPaid(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req MarkOrderPaidRequest
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

	order, err := services.Intake().MarkPaid(orderID, req.PaymentMethod)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id. Fulfilled orders are
// history and cannot be deleted.
func DeleteOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := services.Intake().DeleteOrder(orderID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
