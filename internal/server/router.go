// Package server assembles the HTTP surface: services, handlers, middleware
// and routes.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "fintrack/internal/docs" // swagger spec
	"fintrack/internal/handlers"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/validator"
)

// Services is the set of services the handlers depend on.
type Services struct {
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Budgets      services.BudgetServicer
	Reports      services.ReportBuilder
	Integrity    services.IntegrityServicer
	Audit        services.AuditServicer
}

// NewServices builds every service over db.
func NewServices(db *gorm.DB, evalOpts services.EvaluatorOptions) Services {
	rs := store.NewGormStore(db)
	evaluator := services.NewBudgetEvaluator(rs, evalOpts)
	return Services{
		Users:        services.NewUserService(db),
		Categories:   services.NewCategoryService(db),
		Transactions: services.NewTransactionService(db),
		Budgets:      services.NewBudgetService(db, rs, evaluator),
		Reports:      services.NewReportBuilder(rs),
		Integrity:    services.NewIntegrityService(db),
		Audit:        services.NewAuditService(db),
	}
}

// Options tunes the router.
type Options struct {
	// AuthLimiter throttles register and login. Nil disables throttling.
	AuthLimiter middleware.Limiter
	// ServiceKey guards /internal routes. Empty answers them with NOT_CONFIGURED.
	ServiceKey string
	// Now is the report clock. Nil means time.Now.
	Now func() time.Time
	// Swagger mounts the swagger UI.
	Swagger bool
}

// NewRouter wires handlers and middleware into a gin engine. It registers
// the custom binding validators the request types depend on.
func NewRouter(svc Services, opts Options) *gin.Engine {
	validator.Register()

	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Budgets, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Reports, opts.Now)
	integrityHandler := handlers.NewIntegrityHandler(svc.Integrity)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	throttled := auth.Group("")
	if opts.AuthLimiter != nil {
		throttled.Use(middleware.RateLimit(opts.AuthLimiter))
	}
	throttled.POST("/register", authHandler.Register)
	throttled.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Operator routes
	operator := v1.Group("/internal")
	operator.Use(middleware.ServiceKeyMiddleware(opts.ServiceKey))
	operator.GET("/integrity", integrityHandler.GetIntegrityReport)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	users := protected.Group("/users")
	users.GET("/profile", authHandler.GetProfile)
	users.PUT("/profile", authHandler.UpdateProfile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/charts-data", reportHandler.GetReport)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	protected.GET("/reports", reportHandler.GetReport)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetUserBudgets)
	budgets.GET("/:id", budgetHandler.GetBudgetByID)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
