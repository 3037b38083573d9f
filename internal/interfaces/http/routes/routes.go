// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// Deps carries what the route groups need
type Deps struct {
	Services   *handlers.Services
	JWTManager *auth.JWTManager
	Logger     *logrus.Logger
}

// SetupRoutes registers every API route group
func SetupRoutes(rg *gin.RouterGroup, deps *Deps) {
	SetupAuthRoutes(rg, deps)
	SetupProductRoutes(rg, deps)
	SetupCartRoutes(rg, deps)
	SetupCheckoutRoutes(rg, deps)
	SetupPricingRoutes(rg, deps)
	SetupOrderRoutes(rg, deps)
	SetupAdminRoutes(rg, deps)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, deps *Deps) {
	authHandler := handlers.NewAuthHandler(deps.Services, deps.Logger)

	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.AuthMiddleware(deps.JWTManager), authHandler.GetCurrentUser)
	}
}

// SetupProductRoutes sets up product related routes
func SetupProductRoutes(rg *gin.RouterGroup, deps *Deps) {
	productHandler := handlers.NewProductHandler(deps.Services, deps.Logger)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes for guests and signed-in users
func SetupCartRoutes(rg *gin.RouterGroup, deps *Deps) {
	cartHandler := handlers.NewCartHandler(deps.Services, deps.Logger)

	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.OptionalAuthMiddleware(deps.JWTManager))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.GET("/count", cartHandler.GetCartCount)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.POST("/merge", middleware.AuthMiddleware(deps.JWTManager), cartHandler.MergeCart)
	}
}

// SetupCheckoutRoutes sets up the checkout session routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, deps *Deps) {
	checkoutHandler := handlers.NewCheckoutHandler(deps.Services, deps.Logger)

	checkoutGroup := rg.Group("/checkout")
	checkoutGroup.Use(middleware.OptionalAuthMiddleware(deps.JWTManager))
	{
		checkoutGroup.GET("/summary", checkoutHandler.GetSummary)
		checkoutGroup.POST("/coupon", checkoutHandler.ApplyCoupon)
		checkoutGroup.DELETE("/coupon", checkoutHandler.RemoveCoupon)
		checkoutGroup.PUT("/shipping", checkoutHandler.SelectShipping)
	}
}

// SetupPricingRoutes sets up the public bundle, shipping and coupon lookups
func SetupPricingRoutes(rg *gin.RouterGroup, deps *Deps) {
	bundleHandler := handlers.NewBundleHandler(deps.Services, deps.Logger)
	shippingHandler := handlers.NewShippingHandler(deps.Services, deps.Logger)
	couponHandler := handlers.NewCouponHandler(deps.Services, deps.Logger)

	rg.GET("/bundles/:slug", bundleHandler.GetBundleConfig)
	rg.GET("/shipping", shippingHandler.GetShippingConfig)
	rg.POST("/coupons/validate", middleware.OptionalAuthMiddleware(deps.JWTManager), couponHandler.ValidateCoupon)
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, deps *Deps) {
	orderHandler := handlers.NewOrderHandler(deps.Services, deps.Logger)
	invoiceHandler := handlers.NewInvoiceHandler(deps.Services, deps.Logger)
	loyaltyHandler := handlers.NewLoyaltyHandler(deps.Services, deps.Logger)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(deps.JWTManager))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)
		orders.GET("/:id/invoice", invoiceHandler.GenerateInvoice)
		orders.GET("/:id/invoice/preview", invoiceHandler.PreviewInvoice)
	}

	rg.GET("/loyalty", middleware.AuthMiddleware(deps.JWTManager), loyaltyHandler.GetLoyalty)
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, deps *Deps) {
	bundleHandler := handlers.NewBundleHandler(deps.Services, deps.Logger)
	couponHandler := handlers.NewCouponHandler(deps.Services, deps.Logger)
	shippingHandler := handlers.NewShippingHandler(deps.Services, deps.Logger)
	productHandler := handlers.NewProductHandler(deps.Services, deps.Logger)
	orderHandler := handlers.NewOrderHandler(deps.Services, deps.Logger)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.JWTManager))
	admin.Use(middleware.AdminMiddleware())
	{
		bundles := admin.Group("/bundles")
		{
			bundles.GET("", bundleHandler.ListBundles)
			bundles.POST("", bundleHandler.CreateBundle)
			bundles.GET("/:id", bundleHandler.GetBundle)
			bundles.PUT("/:id", bundleHandler.UpdateBundle)
			bundles.DELETE("/:id", bundleHandler.DeleteBundle)
		}

		coupons := admin.Group("/coupons")
		{
			coupons.GET("", couponHandler.ListCoupons)
			coupons.POST("", couponHandler.CreateCoupon)
			coupons.GET("/:id", couponHandler.GetCoupon)
			coupons.PUT("/:id", couponHandler.UpdateCoupon)
			coupons.DELETE("/:id", couponHandler.DeleteCoupon)
		}

		methods := admin.Group("/shipping-methods")
		{
			methods.GET("", shippingHandler.ListMethods)
			methods.POST("", shippingHandler.CreateMethod)
			methods.GET("/:id", shippingHandler.GetMethod)
			methods.PUT("/:id", shippingHandler.UpdateMethod)
			methods.DELETE("/:id", shippingHandler.DeleteMethod)
		}

		admin.POST("/products", productHandler.CreateProduct)

		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.AdminGetOrders)
			orders.GET("/:id", orderHandler.AdminGetOrder)
			orders.PUT("/:id/status", orderHandler.AdminUpdateOrderStatus)
		}
	}
}
