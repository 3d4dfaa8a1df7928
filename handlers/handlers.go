package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"payza-gateway/config"
	"payza-gateway/logging"
	"payza-gateway/models"
	"payza-gateway/service"
)

// Gateway registration
const (
	GatewayID     = "payza"
	GatewayLabel  = "Payza"
	ListenerParam = "listener"
	ListenerValue = "PAYZA_IPN"

	// InvalidPaymentIDBody is written when a direct-post notification names
	// an order that does not exist.
	InvalidPaymentIDBody = "Invalid Payment ID"
)

// PaymentHandler handles HTTP requests for the hosted checkout gateway
type PaymentHandler struct {
	checkout      *service.CheckoutService
	notifications *service.NotificationService
	cfg           config.Gateway
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(checkout *service.CheckoutService, notifications *service.NotificationService, cfg config.Gateway) *PaymentHandler {
	return &PaymentHandler{
		checkout:      checkout,
		notifications: notifications,
		cfg:           cfg,
	}
}

// Checkout records the pending order and redirects the buyer to the gateway.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.PurchaseData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirectURL, err := h.checkout.Process(ctx, &req)
	if err != nil {
		logger := logging.WithTraceContext(span)
		logger.Warn("Sending buyer back to checkout",
			zap.Error(err),
			zap.String("email", req.Email),
		)
		c.Redirect(http.StatusFound, h.sendBackURL())
		return
	}

	span.AddEvent("redirect_to_gateway")
	c.Redirect(http.StatusFound, redirectURL)
}

// Listener receives the gateway's payment notification. Requests without the
// listener signal are not ours.
func (h *PaymentHandler) Listener(c *gin.Context) {
	if c.Query(ListenerParam) != ListenerValue {
		c.Status(http.StatusNotFound)
		return
	}

	ctx := c.Request.Context()
	logger := logging.WithTraceContext(trace.SpanFromContext(ctx))

	if err := c.Request.ParseForm(); err != nil {
		logger.Warn("Unreadable payment notification", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	n, err := service.ParseNotification(c.Request.PostForm)
	if err != nil {
		logger.Warn("Ignoring payment notification", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	outcome := h.notifications.Handle(ctx, n)
	if outcome.Kind == service.OutcomeNotFound {
		c.String(http.StatusOK, InvalidPaymentIDBody)
		return
	}
	c.Status(http.StatusOK)
}

// Gateways lists this gateway for the storefront's gateway registry.
func (h *PaymentHandler) Gateways(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		GatewayID: models.GatewayLabels{AdminLabel: GatewayLabel, CheckoutLabel: GatewayLabel},
	})
}

// Settings returns the settings fields contributed to the gateway settings page.
func (h *PaymentHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		GatewayID: []models.SettingField{
			{ID: "payza_settings", Name: "Payza Gateway Settings", Desc: "Configure your Payza Settings", Type: "header"},
			{ID: "payza_merchant_id", Name: "Merchant Email Address", Desc: "Enter your Payza merchant Email", Type: "text", Size: "regular"},
		},
	})
}

// HealthCheck handles health check requests
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *PaymentHandler) sendBackURL() string {
	u, err := url.Parse(h.cfg.CheckoutURL)
	if err != nil {
		return h.cfg.CheckoutURL
	}
	q := u.Query()
	q.Set("payment-mode", GatewayID)
	u.RawQuery = q.Encode()
	return u.String()
}
