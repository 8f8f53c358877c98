package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"sikeu/internal/config"
	"sikeu/internal/database"
	"sikeu/internal/handlers"
	"sikeu/internal/logger"
	"sikeu/internal/middleware"
	"sikeu/internal/services"
	"sikeu/internal/validator"
)

// @title           SiKeu API
// @version         1.0
// @description     SiKeu records a school's financial transactions against a chart of accounts with receipt numbering, audit trail, and role-based access.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, auditService)
	schoolService := services.NewSchoolService(db, auditService)
	coaService := services.NewCoaService(db, auditService)
	transactionService := services.NewTransactionService(db, auditService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	schoolHandler := handlers.NewSchoolHandler(schoolService)
	coaHandler := handlers.NewCoaHandler(coaService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	auditHandler := handlers.NewAuditHandler(auditService)
	reportHandler := handlers.NewReportHandler(transactionService, schoolService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	// School routes
	schools := protected.Group("/schools")
	schools.POST("", schoolHandler.CreateSchool)
	schools.GET("", schoolHandler.ListSchools)
	schools.GET("/:id", schoolHandler.GetSchool)
	schools.PATCH("/:id", schoolHandler.UpdateSchool)

	// User routes
	users := protected.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", userHandler.ListUsers)
	users.PATCH("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeactivateUser)

	// Chart-of-accounts routes
	coa := protected.Group("/coa")
	coa.GET("/hierarchy", coaHandler.ListHierarchy)
	coa.POST("/categories", coaHandler.CreateCategory)
	coa.PATCH("/categories/:id", coaHandler.UpdateCategory)
	coa.DELETE("/categories/:id", coaHandler.DeleteCategory)
	coa.POST("/subcategories", coaHandler.CreateSubCategory)
	coa.PATCH("/subcategories/:id", coaHandler.UpdateSubCategory)
	coa.DELETE("/subcategories/:id", coaHandler.DeleteSubCategory)
	coa.POST("/accounts", coaHandler.CreateAccount)
	coa.GET("/accounts", coaHandler.ListFlat)
	coa.PATCH("/accounts/:id", coaHandler.UpdateAccount)
	coa.DELETE("/accounts/:id", coaHandler.DeleteAccount)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/summary", transactionHandler.GetSummary)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.GET("/:id/receipt", transactionHandler.GetReceiptView)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Audit trail
	protected.GET("/audit", auditHandler.ListAuditLog)

	// Reports
	protected.GET("/reports/transactions/export", reportHandler.ExportTransactions)

	log.Infof("Starting SiKeu backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
