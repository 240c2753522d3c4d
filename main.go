package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/handlers"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/ratelimit"
	"delivery-marketplace-api/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Set Gin mode
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database and services
	config.InitDB()
	handlers.Setup(config.DB)

	// Admission control: one registry for the whole process, janitor
	// evicting idle buckets in the background
	limits := config.LoadRateLimits()
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.Public = limits.Public
	rlCfg.Authenticated = limits.Authenticated
	rlCfg.Payment = limits.Payment
	rlCfg.Window = limits.Window
	registry := ratelimit.NewRegistry(rlCfg)
	registry.StartJanitor(context.Background())

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Every inbound call passes admission control before business logic
	r.Use(middleware.RateLimit(registry))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Order-Delivery Marketplace API",
			"version": "1.0.0",
		})
	})

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "🍔 Welcome to the Order-Delivery Marketplace API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant", "delivery", "admin"},
		})
	})

	// Register all routes
	routes.SetupRoutes(r)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server running on http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
