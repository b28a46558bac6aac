package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/handlers"
	"github.com/ricelink/ricelink-golang/internal/middleware"
)

// CORSMiddleware tells the browser the SPA origin may call us. The origin
// defaults to the Vite dev server and can be overridden with CORS_ORIGIN.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()
	router.Use(CORSMiddleware())

	// Uploaded payment slips are served as static files.
	router.Static("/uploads", "./uploads")

	api := router.Group("/api")
	{
		// --- Health Check (Public) ---
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		// --- Public Marketplace Routes ---
		api.GET("/products", h.GetProducts)
		api.GET("/auctions", h.GetAuctions)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Profile ---
			auth.GET("/profile/me", h.GetMe)
			auth.POST("/profile/update-request", h.RequestProfileUpdate)
			auth.GET("/profile/my-requests", h.GetMyProfileRequests)

			// --- Products ---
			// my-products must register before :id so Gin routes it first.
			auth.GET("/products/my-products", middleware.SellerMiddleware(h.DB), h.GetMyProducts)
			auth.GET("/products/:id", h.GetProduct)

			// --- Negotiations (both sides; per-action role checks are
			// enforced against the negotiation row itself) ---
			auth.GET("/negotiations", h.GetMyNegotiations)
			auth.PUT("/negotiations/:id/counter", h.CounterNegotiation)
			auth.PUT("/negotiations/:id/accept", h.AcceptNegotiation)
			auth.PUT("/negotiations/:id/reject", h.RejectNegotiation)
			auth.PUT("/negotiations/:id/delivery-method", h.SetDeliveryMethod)
			auth.PUT("/negotiations/:id/confirm-delivery", h.ConfirmDelivery)
			auth.PUT("/negotiations/:id/counter-delivery-price", h.CounterDeliveryPrice)
			auth.PUT("/negotiations/:id/accept-delivery-price", h.AcceptDeliveryPrice)
			auth.PUT("/negotiations/:id/buyer-counter-delivery-price", h.BuyerCounterDeliveryPrice)
			auth.PUT("/negotiations/:id/reject-delivery", h.RejectDelivery)
			auth.PUT("/negotiations/:id/buyer-reject-delivery", h.BuyerRejectDelivery)

			// --- Payments ---
			auth.GET("/payments/negotiation/:id", h.GetPaymentByNegotiation)
			auth.PUT("/payments/:id/paid", h.MarkPaymentPaid)
			auth.PUT("/payments/:id/received", h.ConfirmReceived)
			auth.PUT("/payments/:id/confirm", h.SellerConfirmPayout)
			auth.PUT("/payments/:id/cancel", h.CancelPayment)

			// --- Chat ---
			auth.GET("/messages/payment/:id", h.GetMessages)
			auth.POST("/messages/payment/:id", h.SendMessage)
			auth.GET("/messages/chats", h.GetChats)

			// --- Dashboard ---
			auth.GET("/dashboard/stats", h.GetDashboardStats)
			auth.GET("/dashboard/market-prices", h.GetMarketPrices)
			auth.GET("/dashboard/notifications", h.GetMyNotifications)

			// --- Notifications ---
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Uploads (payment slips) ---
			auth.POST("/upload", h.UploadFile)

			// --- Market Advisor ---
			auth.POST("/ai/market-advisor", h.MarketAdvisor)
		}

		// --- Buyer-Only Routes ---
		buyer := api.Group("/")
		buyer.Use(middleware.AuthMiddleware())
		buyer.Use(middleware.BuyerMiddleware(h.DB))
		{
			buyer.POST("/negotiations", h.CreateNegotiation)
			buyer.POST("/payments/create", h.CreatePayment)
			buyer.GET("/payments/my-payments", h.GetMyPayments)
			buyer.POST("/auctions/:id/bid", h.PlaceBid)
		}

		// --- Seller-Only Routes ---
		seller := api.Group("/")
		seller.Use(middleware.AuthMiddleware())
		seller.Use(middleware.SellerMiddleware(h.DB))
		{
			seller.POST("/products", h.CreateProduct)
			seller.PUT("/products/:id", h.UpdateProduct)
			seller.DELETE("/products/:id", h.DeleteProduct)

			seller.POST("/company-sales", h.CreateCompanySale)
			seller.GET("/company-sales", h.GetMyCompanySales)
			seller.PUT("/company-sales/:id/accept-admin-offer", h.AcceptAdminOffer)
			seller.PUT("/company-sales/:id/counter-offer", h.SellerCounterOffer)

			seller.POST("/auctions/request", h.RequestAuction)
			seller.GET("/payments/seller/deliveries", h.GetSellerDeliveries)
		}

		// --- Admin-Only Routes ---
		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware())
		admin.Use(middleware.AdminMiddleware(h.DB))
		{
			admin.PUT("/payments/:id/verify", h.VerifyPayment)
			admin.PUT("/payments/:id/complete", h.CompletePayment)
			admin.GET("/payments/admin/all", h.GetAllPayments)
			admin.GET("/payments/admin/received", h.GetReceivedPayments)

			admin.GET("/admin/company-sales", h.GetAllCompanySales)
			admin.GET("/admin/company-sales/approved", h.GetApprovedCompanySales)
			admin.PUT("/admin/company-sales/:id/approve", h.ApproveCompanySale)
			admin.PUT("/admin/company-sales/:id/reject", h.RejectCompanySale)
			admin.PUT("/admin/company-sales/:id/counter-offer", h.AdminCounterOffer)
			admin.PUT("/admin/company-sales/:id/accept-seller-counter", h.AcceptSellerCounter)
			admin.PUT("/admin/company-sales/:id/complete-payment", h.CompleteSalePayment)

			admin.GET("/admin/auction-requests", h.GetAuctionRequests)
			admin.PUT("/admin/auctions/:id/approve", h.ApproveAuction)
			admin.PUT("/admin/auctions/:id/reject", h.RejectAuction)

			admin.GET("/profile/admin/pending", h.GetPendingProfileRequests)
			admin.PUT("/profile/admin/approve/:id", h.ApproveProfileRequest)
			admin.PUT("/profile/admin/reject/:id", h.RejectProfileRequest)

			admin.GET("/admin/base-prices", h.GetBasePrices)
			admin.POST("/admin/base-prices", h.CreateBasePrice)
			admin.PUT("/admin/base-prices/:id", h.UpdateBasePrice)
		}
	}

	return router
}
