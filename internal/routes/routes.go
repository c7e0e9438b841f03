package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/coupon"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/invoice"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/reviews"
	"github.com/example/storefront/internal/store"
)

const limitWindow = 15 * time.Minute

// Deps are the services behind the HTTP surface.
type Deps struct {
	Store       store.Store
	Auth        *auth.Manager
	Orders      *orders.Coordinator
	Catalog     *catalog.Service
	Coupons     *coupon.Service
	Carts       *cart.Service
	Reviews     *reviews.Service
	Invoices    *invoice.Service
	Cookies     handlers.CookieConfig
	GlobalLimit int
	OTPLimit    int
}

func rateLimit(limit int, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: limitWindow,
		Next: func(*fiber.Ctx) bool {
			return limit <= 0
		},
		LimitReached: func(*fiber.Ctx) error {
			return apperr.TooManyRequests("%s", message)
		},
	})
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.Cookies)
	productHandler := handlers.NewProductHandler(d.Catalog)
	orderHandler := handlers.NewOrderHandler(d.Orders)
	inventoryHandler := handlers.NewInventoryHandler(d.Orders)
	cartHandler := handlers.NewCartHandler(d.Carts, d.Coupons)
	couponHandler := handlers.NewCouponHandler(d.Coupons)
	reviewHandler := handlers.NewReviewHandler(d.Reviews)
	invoiceHandler := handlers.NewInvoiceHandler(d.Invoices)
	profileHandler := handlers.NewProfileHandler(d.Store.Addresses())

	requireAuth := middleware.AuthMiddleware(d.Auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api", rateLimit(d.GlobalLimit, "too many requests, please try again later"))

	// Auth routes
	otp := rateLimit(d.OTPLimit, "too many verification requests, please try again later")
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", otp, authHandler.Register)
	authRoutes.Post("/verify-register", otp, authHandler.VerifyRegister)
	authRoutes.Post("/login", otp, authHandler.Login)
	authRoutes.Post("/verify-login", otp, authHandler.VerifyLogin)
	authRoutes.Post("/refresh", authHandler.Refresh)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", requireAuth, authHandler.Me)

	// Public catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Get("/:id/reviews", reviewHandler.ProductReviews)

	coupons := api.Group("/coupons")
	coupons.Post("/apply", couponHandler.Apply)
	coupons.Get("/:code", couponHandler.GetCoupon)

	// Customer routes
	ordersGroup := api.Group("/orders", requireAuth)
	ordersGroup.Post("/", orderHandler.CreateOrder)
	ordersGroup.Get("/", orderHandler.ListOrders)
	ordersGroup.Get("/:id", orderHandler.GetOrder)
	ordersGroup.Patch("/:id/cancel", orderHandler.CancelOrder)

	cartGroup := api.Group("/cart", requireAuth)
	cartGroup.Get("/", cartHandler.GetCart)
	cartGroup.Delete("/", cartHandler.ClearCart)
	cartGroup.Post("/items", cartHandler.AddItem)
	cartGroup.Patch("/items/:id", cartHandler.UpdateItem)
	cartGroup.Delete("/items/:id", cartHandler.RemoveItem)
	cartGroup.Post("/coupon", cartHandler.ApplyCoupon)

	reviewsGroup := api.Group("/reviews", requireAuth)
	reviewsGroup.Post("/", reviewHandler.CreateReview)
	reviewsGroup.Get("/mine", reviewHandler.MyReviews)
	reviewsGroup.Put("/:id", reviewHandler.UpdateReview)
	reviewsGroup.Delete("/:id", reviewHandler.DeleteReview)

	api.Get("/recommendations", requireAuth, productHandler.Recommendations)

	invoices := api.Group("/invoices", requireAuth)
	invoices.Get("/", invoiceHandler.ListInvoices)
	invoices.Get("/:id", invoiceHandler.DownloadInvoice)

	profile := api.Group("/profile", requireAuth)
	profile.Get("/addresses", profileHandler.ListAddresses)
	profile.Post("/addresses", profileHandler.CreateAddress)
	profile.Delete("/addresses/:id", profileHandler.DeleteAddress)

	// Admin routes
	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin())
	admin.Get("/accounts", authHandler.ListAccounts)

	admin.Get("/orders", orderHandler.ListAllOrders)
	admin.Patch("/orders/:id/status", orderHandler.UpdateStatus)
	admin.Post("/orders/:id/pay", orderHandler.MarkPaid)
	admin.Post("/orders/:id/refund", orderHandler.Refund)

	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Get("/inventory/low-stock", inventoryHandler.LowStock)
	admin.Post("/inventory/bulk", inventoryHandler.BulkUpdateStock)
	admin.Get("/inventory/:id", inventoryHandler.GetInventory)
	admin.Get("/inventory/:id/history", inventoryHandler.History)
	admin.Patch("/inventory/:id", inventoryHandler.UpdateStock)
	admin.Put("/inventory/:id/threshold", inventoryHandler.SetThreshold)

	admin.Get("/coupons", couponHandler.ListCoupons)
	admin.Post("/coupons", couponHandler.CreateCoupon)
	admin.Put("/coupons/:id", couponHandler.UpdateCoupon)
	admin.Delete("/coupons/:id", couponHandler.DeleteCoupon)

	admin.Get("/reviews/flagged", reviewHandler.FlaggedReviews)
	admin.Post("/invoices/bulk", invoiceHandler.BulkInvoices)
	admin.Post("/invoices/:id/send", invoiceHandler.SendInvoice)
}
