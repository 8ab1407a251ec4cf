package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/services"
)

// handleServiceError maps the service error taxonomy onto HTTP statuses and
// stable error-code strings for support triage. Anything outside the
// taxonomy is an internal error and gets logged.
func handleServiceError(c *gin.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, services.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrCapacityExceeded):
		status, code = http.StatusConflict, "CAPACITY_EXCEEDED"
	case errors.Is(err, services.ErrSlotClosed):
		status, code = http.StatusConflict, "SLOT_CLOSED"
	case errors.Is(err, services.ErrInvalidState):
		status, code = http.StatusConflict, "INVALID_STATE"
	default:
		log.Printf("Internal error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Something went wrong",
			},
		})
		return
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

// parseDateParam parses a YYYY-MM-DD query or path value
func parseDateParam(value string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseIDParam parses the :id path parameter
func parseIDParam(c *gin.Context) (uint, bool) {
	return parseUintParam(c, "id")
}

// parseUintParam parses a named numeric path parameter
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid id",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// publishNotify lets staff catalog edits trigger an out-of-cycle publish to
// the external store. Nil until the sync bridge is wired in main.
var publishNotify func(slotID uint)

// SetPublishNotifier registers the sync bridge's slot-changed hook
func SetPublishNotifier(fn func(slotID uint)) {
	publishNotify = fn
}

func notifySlotChanged(slotID uint) {
	if publishNotify != nil {
		publishNotify(slotID)
	}
}
