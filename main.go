package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/controllers"
	"github.com/hearthline-bakery/hearthline-api/middleware"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
	"github.com/hearthline-bakery/hearthline-api/services/syncbridge"
)

func main() {
	// Basic logging
	log.Println("Starting Hearthline Bakery API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	router := setupRouter(cfg)

	// The sync bridge and the HTTP server share one lifecycle: SIGINT or
	// SIGTERM cancels the context, which stops the bridge cooperatively.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startSyncBridge(ctx, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// setupRouter builds the public catalog endpoints and the staff operation
// catalog under /api/v1
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.HandleMethodNotAllowed = true
	router.NoMethod(controllers.PublicMethodNotAllowed)

	// Public read endpoints for the order-taking front end: GET only, CORS
	// open to any origin
	public := router.Group("/")
	public.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
	}))
	{
		public.GET("/flavors", controllers.PublicFlavors)
		public.GET("/bake-slots", controllers.PublicBakeSlots)
	}

	v1 := router.Group("/api/v1")
	v1.GET("/health", healthCheck)

	staff := v1.Group("")
	if cfg.Auth0Domain != "" {
		staff.Use(middleware.EnsureValidToken(cfg))
	} else {
		log.Println("AUTH0_DOMAIN not set; staff endpoints are unauthenticated")
	}

	orders := staff.Group("/orders", requireCapability(cfg, middleware.CapabilityOrdersWrite))
	{
		orders.POST("", controllers.CreateOrder)
		orders.GET("", controllers.ListOrders)
		orders.GET("/:id", controllers.GetOrder)
		orders.PATCH("/:id/status", controllers.UpdateOrderStatus)
		orders.POST("/:id/cancel", controllers.CancelOrder)
		orders.POST("/:id/pay", controllers.MarkOrderPaid)
		orders.DELETE("/:id", controllers.DeleteOrder)
	}

	customers := staff.Group("/customers", requireCapability(cfg, middleware.CapabilityOrdersWrite))
	{
		customers.POST("", controllers.CreateCustomer)
		customers.GET("", controllers.ListCustomers)
		customers.GET("/:id", controllers.GetCustomer)
		customers.PUT("/:id", controllers.UpdateCustomer)
	}

	catalog := staff.Group("", requireCapability(cfg, middleware.CapabilityCatalogWrite))
	{
		catalog.POST("/bake-slots", controllers.CreateBakeSlot)
		catalog.POST("/bake-slots/generate", controllers.GenerateBakeSlots)
		catalog.GET("/bake-slots", controllers.ListBakeSlots)
		catalog.PATCH("/bake-slots/:id", controllers.UpdateBakeSlot)
		catalog.POST("/bake-slots/:id/close", controllers.CloseBakeSlot)
		catalog.GET("/bake-slots/:id/availability", controllers.BakeSlotAvailability)

		catalog.POST("/flavors", controllers.CreateFlavor)
		catalog.GET("/flavors", controllers.ListFlavors)
		catalog.GET("/flavors/:id", controllers.GetFlavor)
		catalog.PUT("/flavors/:id", controllers.UpdateFlavor)
		catalog.PUT("/flavors/:id/recipe", controllers.SetRecipe)
		catalog.GET("/flavors/:id/recipe/cost", controllers.RecipeCost)
	}

	production := staff.Group("", requireCapability(cfg, middleware.CapabilityProductionWrite))
	{
		production.POST("/extras", controllers.CreateExtraProduction)
		production.GET("/extras", controllers.ListExtraProduction)
		production.PUT("/extras/:id", controllers.UpdateExtraProduction)
		production.DELETE("/extras/:id", controllers.DeleteExtraProduction)

		production.POST("/prep-sheets", controllers.BuildPrepSheet)
		production.GET("/prep-sheets/:id", controllers.GetPrepSheet)
		production.GET("/prep-sheets/:id/plan", controllers.GetPrepPlan)
		production.POST("/prep-sheets/:id/orders", controllers.AddPrepSheetOrder)
		production.DELETE("/prep-sheets/:id/orders/:orderId", controllers.RemovePrepSheetOrder)
		production.POST("/prep-sheets/:id/extras", controllers.AddPrepSheetExtra)
		production.PATCH("/prep-sheets/:id/items", controllers.UpdatePrepSheetItem)
		production.POST("/prep-sheets/:id/complete", controllers.CompletePrepSheet)

		production.GET("/production", controllers.ListProduction)
		production.PATCH("/production/:id/status", controllers.UpdateProductionStatus)
		production.POST("/production/:id/split", controllers.SplitProduction)
		production.POST("/production/:id/sell", controllers.SellProduction)

		production.GET("/analytics/production", controllers.ProductionSummary)
	}

	return router
}

// requireCapability applies the capability check only when staff auth is
// configured
func requireCapability(cfg *config.Config, capability middleware.Capability) gin.HandlerFunc {
	if cfg.Auth0Domain == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RequireCapability(capability)
}

// startSyncBridge launches the external-store sync loop when credentials are
// configured. Missing or bad credentials disable sync only; the private
// store keeps operating offline.
func startSyncBridge(ctx context.Context, cfg *config.Config) {
	if !cfg.HasSyncCredentials() {
		log.Println("Sync credentials not configured; external catalog sync disabled")
		return
	}

	tokens, err := syncbridge.NewTokenSource(syncbridge.Credentials{
		ServiceEmail:  cfg.SyncServiceEmail,
		PrivateKeyPEM: cfg.SyncPrivateKey,
		TokenURL:      cfg.SyncTokenURL,
	})
	if err != nil {
		log.Printf("Sync bridge disabled: %v", err)
		return
	}
	client, err := syncbridge.NewClient(cfg.SyncBaseURL, cfg.SyncStoreID, tokens)
	if err != nil {
		log.Printf("Sync bridge disabled: %v", err)
		return
	}

	bridge := syncbridge.NewBridge(client, services.Intake(), time.Duration(cfg.SyncIntervalSec)*time.Second)
	services.Intake().SetPublishNotifier(bridge.NotifySlotChanged)
	controllers.SetPublishNotifier(bridge.NotifySlotChanged)
	go bridge.Run(ctx)
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Hearthline Bakery API is running",
	})
}
