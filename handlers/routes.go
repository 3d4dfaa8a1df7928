package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the gateway endpoints on r.
func RegisterRoutes(r *gin.Engine, h *PaymentHandler) {
	r.GET("/health", h.HealthCheck)
	r.POST("/", h.Listener)

	api := r.Group("/api")
	api.GET("/gateways", h.Gateways)
	api.GET("/gateways/"+GatewayID+"/settings", h.Settings)
	api.POST("/checkout", h.Checkout)
}
