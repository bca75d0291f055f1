package routes

import (
	"net/http"

	"vpnbot_backend/internal/handlers"
	"vpnbot_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

const apiVersion = "1.0.0"

// RegisterRoutes вешает все маршруты приложения на роутер.
func RegisterRoutes(router *gin.Engine, h *handlers.AppHandlers, adminToken string) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "vpnbot_backend"})
	})

	api := router.Group("/api")
	{
		api.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "version": apiVersion})
		})

		h.UserHandler.RegisterRoutes(api)
		h.PaymentHandler.RegisterRoutes(api)
		h.WebhookHandler.RegisterRoutes(api)
		h.VPNHandler.RegisterRoutes(api)

		admin := api.Group("/admin", middleware.AdminAuthMiddleware(adminToken))
		h.AdminHandler.RegisterRoutes(admin)
	}
}
