package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/config"
	"github.com/tailorbook/tailorbook-api/controllers"
	"github.com/tailorbook/tailorbook-api/middleware"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
)

// application bundles the wired dependencies for the router. Handlers never
// reach for globals; everything they need is injected here.
type application struct {
	db           *gorm.DB
	auth         *services.AuthService
	authCtrl     *controllers.AuthController
	customerCtrl *controllers.CustomerController
	measureCtrl  *controllers.MeasurementController
}

func main() {
	// Basic logging
	log.Println("Starting TailorBook CRM API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := config.GetDB()

	// Auto-migrate database models
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.MeasurementSet{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	app, err := buildApplication(cfg, db)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}

	router := setupRouter(app)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildApplication wires services and controllers from the configuration.
// Redis backs the view cache and token blacklist when configured; otherwise
// the in-process implementations are used.
func buildApplication(cfg *config.Config, db *gorm.DB) (*application, error) {
	var (
		viewCache services.CustomerViewCache
		blacklist services.TokenBlacklist
	)

	if cfg.RedisAddr != "" {
		redisClient, err := config.ConnectRedis(cfg)
		if err != nil {
			return nil, err
		}
		log.Println("Redis connection established successfully")
		viewCache = services.NewRedisCustomerViewCache(redisClient)
		blacklist = services.NewRedisTokenBlacklist(redisClient)
	} else {
		log.Println("REDIS_ADDR not set, using in-memory cache and token blacklist")
		viewCache = services.NewInMemoryCustomerViewCache()
		blacklist = services.NewInMemoryTokenBlacklist()
	}

	var images services.ImageService
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(cfg)
		if err != nil {
			return nil, err
		}
		images = services.NewImageService(s3Service)
	} else {
		log.Println("AWS_S3_BUCKET not set, garment photo uploads disabled")
	}

	auth := services.NewAuthService(db, cfg, blacklist)
	lifecycle := services.NewOrderLifecycleService(db, viewCache)

	return &application{
		db:           db,
		auth:         auth,
		authCtrl:     controllers.NewAuthController(auth),
		customerCtrl: controllers.NewCustomerController(db, viewCache, images),
		measureCtrl:  controllers.NewMeasurementController(db, lifecycle, viewCache, images),
	}, nil
}

// setupRouter builds the HTTP routes on top of the wired application
func setupRouter(app *application) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", app.databaseStatus)

		// Authentication
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", app.authCtrl.Signup)
			auth.POST("/login", app.authCtrl.Login)
			auth.POST("/logout", middleware.RequireAuth(app.auth), app.authCtrl.Logout)
		}

		// Customer CRM surface, scoped to the authenticated shop user
		customers := v1.Group("/customers", middleware.RequireAuth(app.auth))
		{
			customers.POST("", app.customerCtrl.CreateCustomer)
			customers.GET("", app.customerCtrl.ListCustomers)
			customers.GET("/:id", app.customerCtrl.GetCustomer)
			customers.PUT("/:id", app.customerCtrl.UpdateCustomer)
			customers.DELETE("/:id", app.customerCtrl.DeleteCustomer)

			customers.POST("/:id/measurement-sets", app.measureCtrl.AddMeasurementSet)
			customers.GET("/:id/measurement-sets", app.measureCtrl.ListMeasurementSets)
			customers.PUT("/:id/measurement-sets/:setId/order-status", app.measureCtrl.UpdateOrderStatus)
			customers.PUT("/:id/measurement-sets/:setId/payment-status", app.measureCtrl.UpdatePaymentStatus)
			customers.POST("/:id/measurement-sets/:setId/photo", app.measureCtrl.UploadPhoto)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "TailorBook CRM API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func (app *application) databaseStatus(c *gin.Context) {
	// Get the underlying SQL database to check connection
	sqlDB, err := app.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := app.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
