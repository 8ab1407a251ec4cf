package controllers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
)

// PublicFlavor is the catalog shape the order-taking front end consumes
type PublicFlavor struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Sizes       []models.FlavorSize `json:"sizes"`
}

// PublicBakeSlot is the availability shape the order-taking front end consumes
type PublicBakeSlot struct {
	ID             uint   `json:"id"`
	Date           string `json:"date"`
	LocationName   string `json:"locationName"`
	SpotsRemaining int    `json:"spotsRemaining"`
	IsOpen         bool   `json:"isOpen"`
}

// PublicFlavors handles GET /flavors - the active, in-season catalog
func PublicFlavors(c *gin.Context) {
	db := config.GetDB()

	var flavors []models.Flavor
	if err := db.Where("is_active = ?", true).
		Order("sort_order asc, id asc").Find(&flavors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CATALOG_UNAVAILABLE",
				"message": "Failed to load the flavor catalog",
			},
		})
		return
	}

	now := time.Now()
	out := make([]PublicFlavor, 0, len(flavors))
	for i := range flavors {
		flavor := &flavors[i]
		if !flavor.InSeason(now) {
			continue
		}
		sizes, err := flavor.SizeList()
		if err != nil {
			// A malformed row hides that flavor, not the whole catalog.
			continue
		}
		out = append(out, PublicFlavor{
			ID:          flavor.ID,
			Name:        flavor.Name,
			Description: flavor.Description,
			Sizes:       sizes,
		})
	}

	c.JSON(http.StatusOK, out)
}

// PublicBakeSlots handles GET /bake-slots - open, future, pre-cutoff slots
// sorted by date ascending
func PublicBakeSlots(c *gin.Context) {
	db := config.GetDB()

	var slots []models.BakeSlot
	if err := db.Preload("Location").Where("is_open = ?", true).
		Find(&slots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SLOTS_UNAVAILABLE",
				"message": "Failed to load bake slots",
			},
		})
		return
	}

	now := time.Now()
	out := make([]PublicBakeSlot, 0, len(slots))
	for i := range slots {
		slot := &slots[i]
		if !slot.AcceptsOrders(now) {
			continue
		}
		out = append(out, PublicBakeSlot{
			ID:             slot.ID,
			Date:           slot.Date.Format("2006-01-02"),
			LocationName:   slot.Location.Name,
			SpotsRemaining: slot.Remaining(),
			IsOpen:         slot.IsOpen,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	c.JSON(http.StatusOK, out)
}

// PublicMethodNotAllowed rejects non-GET methods on the public endpoints
func PublicMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "METHOD_NOT_ALLOWED",
			"message": "Only GET is supported on public endpoints",
		},
	})
}
