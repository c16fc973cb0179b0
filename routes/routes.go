package routes

import (
	"net/http"
	"storefront/controllers"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Dependencies struct {
	Registry *services.SessionRegistry
	Session  middleware.SessionConfig
	Products *services.ProductService
	Auth     *services.AuthService
	Checkout *services.CheckoutService
	Logger   *zap.Logger

	// LookupLimiter throttles address lookups and logins per client IP. Nil
	// disables throttling.
	LookupLimiter *middleware.IPRateLimiter
	UploadDir     string
	MaxUploadSize int64
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cartCtrl := controllers.NewCartController()
	addressCtrl := controllers.NewAddressController()
	authCtrl := controllers.NewAuthController(deps.Auth)
	productCtrl := controllers.NewProductController(deps.Products)
	orderCtrl := controllers.NewOrderController(deps.Auth, deps.Checkout, deps.MaxUploadSize)

	throttle := func(c *gin.Context) { c.Next() }
	if deps.LookupLimiter != nil {
		throttle = deps.LookupLimiter.Middleware()
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", metrics.Handler())

	router.GET("/products", productCtrl.GetAllProducts)
	router.GET("/products/:id", productCtrl.GetProductByID)

	sess := router.Group("/")
	sess.Use(middleware.SessionMiddleware(deps.Registry, deps.Session, deps.Logger))
	{
		sess.GET("/cart", cartCtrl.GetCart)
		sess.DELETE("/cart", cartCtrl.ClearCart)
		sess.POST("/cart/items", cartCtrl.AddItem)
		sess.PATCH("/cart/items/:id", cartCtrl.UpdateItem)
		sess.DELETE("/cart/items/:id", cartCtrl.RemoveItem)
		sess.POST("/products/:id/cart", productCtrl.AddToCart)

		sess.GET("/address", addressCtrl.GetDraft)
		sess.PUT("/address", addressCtrl.SetDraft)
		sess.POST("/address/resolve", throttle, addressCtrl.Resolve)

		sess.POST("/auth/login", throttle, authCtrl.Login)
		sess.POST("/auth/signup", throttle, authCtrl.Signup)
		sess.POST("/auth/logout", authCtrl.Logout)
		sess.GET("/auth/status", authCtrl.Status)
	}

	auth := sess.Group("/")
	auth.Use(middleware.RequireCredential())
	{
		auth.GET("/auth/me", authCtrl.Profile)
		auth.PUT("/auth/me", authCtrl.UpdateProfile)
		auth.GET("/orders", orderCtrl.GetOrders)
		auth.POST("/checkout", orderCtrl.Checkout)
	}

	if deps.UploadDir != "" {
		router.Static("/uploads", deps.UploadDir)
	}
}
