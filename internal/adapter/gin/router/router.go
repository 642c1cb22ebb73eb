package router

import (
	"net/http"

	"hospital-account-service/api"
	"hospital-account-service/internal/adapter/gin/handler"
	"hospital-account-service/internal/adapter/gin/middleware"
	grpcmiddleware "hospital-account-service/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

const swaggerDocPath = "/swagger/account.swagger.json"

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	accountHandler *handler.AccountHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// ClientIP reads forwarding headers only from these peers; nil trusts none.
	if err := router.SetTrustedProxies(rateLimiter.TrustedProxies()); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "hospital-account-service",
		})
	})

	// The OpenAPI document and Swagger UI share one catch-all route.
	swaggerUI := httpSwagger.Handler(httpSwagger.URL(swaggerDocPath))
	router.GET("/swagger/*any", func(c *gin.Context) {
		if c.Request.URL.Path == swaggerDocPath {
			c.Data(http.StatusOK, "application/json", api.SwaggerJSON)
			return
		}
		swaggerUI(c.Writer, c.Request)
	})

	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", accountHandler.AddNewUser)
			users.GET("/:username", accountHandler.LoadUserByUsername)
			users.PUT("/:username/roles/:role", accountHandler.AddRoleToUser)
			users.DELETE("/:username/roles/:role", accountHandler.RemoveRoleFromUser)
		}
		v1.POST("/roles", accountHandler.AddNewRole)
	}

	return router
}
