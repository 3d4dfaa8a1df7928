package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"payza-gateway/config"
	"payza-gateway/logging"
	"payza-gateway/models"
	"payza-gateway/monitoring"
	"payza-gateway/store"
)

// IPNVersion is the notification protocol revision requested from the gateway.
const IPNVersion = 2

// CheckoutItem is one cart line as sent to the gateway.
type CheckoutItem struct {
	Name     string
	Quantity int
	Amount   decimal.Decimal
}

// CheckoutRequest is the set of fields encoded into the redirect to the
// hosted checkout page.
type CheckoutRequest struct {
	Endpoint     string
	MerchantID   string
	PurchaseType string
	Currency     string
	ReturnURL    string
	CancelURL    string
	NotifyURL    string
	OrderID      string
	Items        []CheckoutItem
	Tax          decimal.Decimal
	TestMode     bool
}

// Values returns the request as gateway form fields. Items are numbered from 1
// in cart order.
func (r *CheckoutRequest) Values() url.Values {
	v := url.Values{}
	for i, item := range r.Items {
		n := strconv.Itoa(i + 1)
		v.Set("ap_itemname_"+n, item.Name)
		v.Set("ap_quantity_"+n, strconv.Itoa(item.Quantity))
		v.Set("ap_amount_"+n, models.FormatAmount(item.Amount, r.Currency))
	}
	v.Set("ap_taxamount", models.FormatAmount(r.Tax, r.Currency))

	v.Set("ap_merchant", r.MerchantID)
	v.Set("ap_purchasetype", r.PurchaseType)
	v.Set("ap_currency", r.Currency)
	v.Set("ap_returnurl", r.ReturnURL)
	v.Set("ap_cancelurl", r.CancelURL)
	v.Set("apc_1", r.OrderID)
	v.Set("ap_alerturl", r.NotifyURL)
	v.Set("ap_ipnversion", strconv.Itoa(IPNVersion))
	if r.TestMode {
		v.Set("ap_testmode", "1")
	}
	return v
}

// RedirectURL is the URL the buyer's browser is sent to.
func (r *CheckoutRequest) RedirectURL() string {
	return r.Endpoint + "?" + r.Values().Encode()
}

// ItemAmount is the per-unit price after spreading the line discount over the
// quantity. It never goes below zero.
func ItemAmount(item models.LineItem) decimal.Decimal {
	amount := item.Price
	if item.Quantity > 0 {
		amount = item.Price.Sub(item.Discount.Div(decimal.NewFromInt(int64(item.Quantity))))
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// CheckoutBuilder turns an order's cart into a hosted checkout request.
type CheckoutBuilder struct {
	cfg config.Gateway
}

// NewCheckoutBuilder creates a builder for the configured merchant.
func NewCheckoutBuilder(cfg config.Gateway) *CheckoutBuilder {
	return &CheckoutBuilder{cfg: cfg}
}

// Build assembles the checkout request for orderID.
func (b *CheckoutBuilder) Build(orderID string, items []models.LineItem, tax decimal.Decimal) (*CheckoutRequest, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	req := &CheckoutRequest{
		Endpoint:     b.cfg.CheckoutEndpoint(),
		MerchantID:   b.cfg.MerchantID,
		PurchaseType: b.cfg.PurchaseType,
		Currency:     b.cfg.Currency,
		ReturnURL:    b.cfg.ReturnURL,
		CancelURL:    b.cfg.CancelURL,
		NotifyURL:    b.cfg.NotifyURL,
		OrderID:      orderID,
		Items:        make([]CheckoutItem, 0, len(items)),
		Tax:          tax,
		TestMode:     b.cfg.Sandbox,
	}
	if req.PurchaseType == "" {
		req.PurchaseType = "item"
	}

	for i, item := range items {
		if item.Quantity < 1 || item.Price.IsNegative() || item.Discount.IsNegative() {
			return nil, fmt.Errorf("%w: item %d (%q)", ErrInvalidLineItem, i+1, item.Name)
		}
		req.Items = append(req.Items, CheckoutItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Amount:   ItemAmount(item),
		})
	}

	return req, nil
}

// CheckoutService records the pending order and produces the gateway redirect.
type CheckoutService struct {
	tracer  trace.Tracer
	orders  store.OrderStore
	builder *CheckoutBuilder
	cfg     config.Gateway
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(tracer trace.Tracer, orders store.OrderStore, cfg config.Gateway) *CheckoutService {
	return &CheckoutService{
		tracer:  tracer,
		orders:  orders,
		builder: NewCheckoutBuilder(cfg),
		cfg:     cfg,
	}
}

// Process creates a pending order from the purchase and returns the URL to
// redirect the buyer to. On error the buyer belongs back on the checkout page.
func (s *CheckoutService) Process(ctx context.Context, data *models.PurchaseData) (string, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.process")
	defer span.End()

	logger := logging.WithTraceContext(span)

	currency := s.cfg.Currency
	if data.Currency != "" && !strings.EqualFold(data.Currency, currency) {
		logger.Warn("Purchase currency differs from store currency",
			zap.String("currency", data.Currency),
			zap.String("store_currency", currency),
		)
		s.record(ctx, "invalid")
		return "", fmt.Errorf("%w: %s", ErrCurrencyMismatch, data.Currency)
	}
	purchaseKey := data.PurchaseKey
	if purchaseKey == "" {
		purchaseKey = uuid.NewString()
	}
	purchasedAt := data.Date
	if purchasedAt.IsZero() {
		purchasedAt = time.Now().UTC()
	}

	order := &models.Order{
		ID:          uuid.New(),
		PurchaseKey: purchaseKey,
		Total:       data.Price,
		Tax:         data.Tax,
		Currency:    currency,
		Email:       data.Email,
		FirstName:   data.UserInfo.FirstName,
		LastName:    data.UserInfo.LastName,
		Items:       data.CartDetails,
		PurchasedAt: purchasedAt,
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("order.currency", currency),
	)

	req, err := s.builder.Build(order.ID.String(), order.Items, order.Tax)
	if err != nil {
		status := "invalid"
		if errors.Is(err, ErrEmptyCart) {
			status = "empty_cart"
		}
		logger.Warn("Checkout request rejected",
			zap.Error(err),
			zap.String("order_id", order.ID.String()),
		)
		s.record(ctx, status)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if err := s.orders.CreatePending(ctx, order); err != nil {
		logger.Error("Failed to record pending order",
			zap.Error(err),
			zap.String("order_id", order.ID.String()),
		)
		s.record(ctx, "store_error")
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to create pending order: %w", err)
	}

	logger.Info("Redirecting buyer to hosted checkout",
		zap.String("order_id", order.ID.String()),
		zap.String("total", models.FormatAmount(order.Total, currency)),
		zap.Bool("test_mode", req.TestMode),
	)
	s.record(ctx, "success")

	return req.RedirectURL(), nil
}

func (s *CheckoutService) record(ctx context.Context, status string) {
	monitoring.CheckoutCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
