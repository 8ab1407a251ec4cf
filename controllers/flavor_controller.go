package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
	"gorm.io/gorm"
)

// FlavorRequest represents the request body for creating or updating a flavor
type FlavorRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Sizes       []models.FlavorSize `json:"sizes" binding:"required,min=1"`
	IsActive    *bool               `json:"is_active"`
	Season      string              `json:"season"`
	SortOrder   int                 `json:"sort_order"`
}

// RecipeRequest represents the request body for setting a flavor's recipe
type RecipeRequest struct {
	YieldLoaves int                 `json:"yield_loaves" binding:"required,gt=0"`
	Base        []models.Ingredient `json:"base"`
	Fold        []models.Ingredient `json:"fold"`
	Lamination  []models.Ingredient `json:"lamination"`
	Steps       []string            `json:"steps"`
}

var validSeasons = map[string]bool{
	"": true, "all": true, "spring": true, "summer": true, "fall": true, "winter": true,
}

// CreateFlavor handles POST /api/v1/flavors
func CreateFlavor(c *gin.Context) {
	var req FlavorRequest
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
	if !validSeasons[req.Season] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "season must be all, spring, summer, fall or winter",
			},
		})
		return
	}

	flavor := models.Flavor{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		Season:      req.Season,
		SortOrder:   req.SortOrder,
	}
	if flavor.Season == "" {
		flavor.Season = "all"
	}
	if req.IsActive != nil {
		flavor.IsActive = *req.IsActive
	}
	if err := flavor.SetSizeList(req.Sizes); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
		return
	}

	db := config.GetDB()
	if err := db.Create(&flavor).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FLAVOR_EXISTS",
					"message": "A flavor with this name already exists",
				},
			})
			return
		}
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    flavorResponse(&flavor),
	})
}

// ListFlavors handles GET /api/v1/flavors - the full staff catalog,
// including inactive and out-of-season flavors
func ListFlavors(c *gin.Context) {
	db := config.GetDB()
	var flavors []models.Flavor
	if err := db.Preload("Recipe").Order("sort_order asc, id asc").Find(&flavors).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]gin.H, 0, len(flavors))
	for i := range flavors {
		out = append(out, flavorResponse(&flavors[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
	})
}

// GetFlavor handles GET /api/v1/flavors/:id
func GetFlavor(c *gin.Context) {
	flavorID, ok := parseIDParam(c)
	if !ok {
		return
	}

	flavor, err := loadFlavor(flavorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    flavorResponse(flavor),
	})
}

// UpdateFlavor handles PUT /api/v1/flavors/:id
func UpdateFlavor(c *gin.Context) {
	flavorID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req FlavorRequest
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
	if !validSeasons[req.Season] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "season must be all, spring, summer, fall or winter",
			},
		})
		return
	}

	flavor, err := loadFlavor(flavorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	flavor.Name = req.Name
	flavor.Description = req.Description
	flavor.SortOrder = req.SortOrder
	if req.Season != "" {
		flavor.Season = req.Season
	}
	if req.IsActive != nil {
		flavor.IsActive = *req.IsActive
	}
	if err := flavor.SetSizeList(req.Sizes); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
		return
	}

	db := config.GetDB()
	if err := db.Save(flavor).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    flavorResponse(flavor),
	})
}

// SetRecipe handles PUT /api/v1/flavors/:id/recipe - replaces the flavor's
// active recipe (one active recipe per flavor)
func SetRecipe(c *gin.Context) {
	flavorID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req RecipeRequest
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

	flavor, err := loadFlavor(flavorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	recipe := flavor.Recipe
	if recipe == nil {
		recipe = &models.Recipe{FlavorID: flavor.ID}
	}
	recipe.YieldLoaves = req.YieldLoaves
	if err := recipe.SetPhases(&models.RecipePhases{
		Base:       req.Base,
		Fold:       req.Fold,
		Lamination: req.Lamination,
	}); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
		return
	}
	if err := recipe.SetStepList(req.Steps); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
		return
	}

	db := config.GetDB()
	if err := db.Save(recipe).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    recipeResponse(recipe),
	})
}

// RecipeCost handles GET /api/v1/flavors/:id/recipe/cost - prices one loaf
// with the configured overhead
func RecipeCost(c *gin.Context) {
	flavorID, ok := parseIDParam(c)
	if !ok {
		return
	}

	flavor, err := loadFlavor(flavorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	scaler := services.Scaler()
	cost, err := scaler.CostPerLoaf(flavor.Recipe)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"flavor_id":     flavor.ID,
			"has_recipe":    flavor.Recipe != nil,
			"cost_per_loaf": cost,
		},
	})
}

// loadFlavor fetches a flavor with its recipe
func loadFlavor(flavorID uint) (*models.Flavor, error) {
	db := config.GetDB()
	var flavor models.Flavor
	if err := db.Preload("Recipe").First(&flavor, flavorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: flavor %d", services.ErrNotFound, flavorID)
		}
		return nil, fmt.Errorf("failed to load flavor %d: %w", flavorID, err)
	}
	return &flavor, nil
}

// flavorResponse decodes the serialized columns so clients never see raw JSON strings
func flavorResponse(flavor *models.Flavor) gin.H {
	sizes, _ := flavor.SizeList()
	out := gin.H{
		"id":          flavor.ID,
		"name":        flavor.Name,
		"description": flavor.Description,
		"sizes":       sizes,
		"is_active":   flavor.IsActive,
		"season":      flavor.Season,
		"sort_order":  flavor.SortOrder,
	}
	if flavor.Recipe != nil {
		out["recipe"] = recipeResponse(flavor.Recipe)
	}
	return out
}

// recipeResponse decodes a recipe's serialized columns
func recipeResponse(recipe *models.Recipe) gin.H {
	phases, err := recipe.Phases()
	if err != nil {
		phases = &models.RecipePhases{}
	}
	steps, _ := recipe.StepList()
	return gin.H{
		"id":           recipe.ID,
		"flavor_id":    recipe.FlavorID,
		"yield_loaves": recipe.YieldLoaves,
		"base":         phases.Base,
		"fold":         phases.Fold,
		"lamination":   phases.Lamination,
		"steps":        steps,
	}
}
