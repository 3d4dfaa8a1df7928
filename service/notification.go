package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"payza-gateway/logging"
	"payza-gateway/models"
	"payza-gateway/monitoring"
	"payza-gateway/store"
)

// Gateway sentinels
const (
	InvalidTokenResponse = "INVALID TOKEN"
	StatusSuccess        = "Success"
	StateCompleted       = "completed"
	StateRefunded        = "refunded"
)

// Notification is an inbound IPN payload: either *TokenNotification or
// *DirectNotification.
type Notification interface {
	Shape() string
}

// TokenNotification carries an opaque token that must be exchanged with the
// gateway for the transaction details.
type TokenNotification struct {
	Token string
}

func (*TokenNotification) Shape() string { return "token" }

// DirectNotification carries the transaction details in the post itself.
type DirectNotification struct {
	OrderID          string
	TransactionState string
	TotalAmount      string
	ReferenceNumber  string
}

func (*DirectNotification) Shape() string { return "direct" }

// ParseNotification picks the payload shape from the posted form. A token
// wins over direct-post fields.
func ParseNotification(form url.Values) (Notification, error) {
	switch {
	case form.Has("token"):
		return &TokenNotification{Token: form.Get("token")}, nil
	case form.Has("apc_1"):
		return &DirectNotification{
			OrderID:          strings.TrimSpace(form.Get("apc_1")),
			TransactionState: form.Get("ap_transactionstate"),
			TotalAmount:      form.Get("ap_totalamount"),
			ReferenceNumber:  strings.TrimSpace(form.Get("ap_referencenumber")),
		}, nil
	default:
		return nil, ErrUnrecognizedNotification
	}
}

// OutcomeKind classifies what a notification means for its order.
type OutcomeKind string

const (
	OutcomeConfirmed     OutcomeKind = "confirmed"
	OutcomeFailed        OutcomeKind = "failed"
	OutcomeRefunded      OutcomeKind = "refunded"
	OutcomeInvalid       OutcomeKind = "invalid"
	OutcomeIndeterminate OutcomeKind = "indeterminate"
	OutcomeNotFound      OutcomeKind = "not_found"
	OutcomeIgnored       OutcomeKind = "ignored"
)

// Outcome is the result of validating (and possibly applying) a notification.
type Outcome struct {
	Kind           OutcomeKind
	OrderID        uuid.UUID
	TransactionRef string
	Reason         string
	Err            error

	// unless is the order status that must not hold when the outcome is
	// applied.
	unless models.OrderStatus
}

func invalid(reason string) Outcome {
	return Outcome{Kind: OutcomeInvalid, Reason: reason, Err: ErrInvalidNotification}
}

// NotificationService validates payment notifications against stored orders
// and records the result on the order.
type NotificationService struct {
	tracer   trace.Tracer
	orders   store.OrderStore
	verifier TokenVerifier
}

// NewNotificationService creates a new notification service
func NewNotificationService(tracer trace.Tracer, orders store.OrderStore, verifier TokenVerifier) *NotificationService {
	return &NotificationService{
		tracer:   tracer,
		orders:   orders,
		verifier: verifier,
	}
}

// Handle validates n and applies the resulting status change. It never
// returns an error; failures are logged and carried on the outcome.
func (s *NotificationService) Handle(ctx context.Context, n Notification) Outcome {
	ctx, span := s.tracer.Start(ctx, "notification.handle")
	defer span.End()

	logger := logging.WithTraceContext(span)

	outcome := s.Validate(ctx, n)
	err := s.apply(ctx, outcome)
	switch {
	case errors.Is(err, store.ErrStatusConflict):
		outcome.Kind = OutcomeIgnored
		outcome.Reason = "order already published"
	case err != nil:
		logger.Error("Failed to update order from notification",
			zap.Error(err),
			zap.String("order_id", outcome.OrderID.String()),
			zap.String("outcome", string(outcome.Kind)),
		)
		outcome.Err = err
	}

	span.SetAttributes(
		attribute.String("notification.shape", n.Shape()),
		attribute.String("notification.outcome", string(outcome.Kind)),
	)
	logger.Info("Payment notification processed",
		zap.String("shape", n.Shape()),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("order_id", outcome.OrderID.String()),
		zap.String("reason", outcome.Reason),
	)
	monitoring.NotificationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("shape", n.Shape()),
			attribute.String("outcome", string(outcome.Kind)),
		),
	)

	return outcome
}

// Validate decides what n means for its order without changing it.
func (s *NotificationService) Validate(ctx context.Context, n Notification) Outcome {
	switch n := n.(type) {
	case *TokenNotification:
		return s.validateToken(ctx, n)
	case *DirectNotification:
		return s.validateDirect(ctx, n)
	default:
		return Outcome{Kind: OutcomeIgnored, Err: ErrUnrecognizedNotification}
	}
}

func (s *NotificationService) validateToken(ctx context.Context, n *TokenNotification) Outcome {
	span := trace.SpanFromContext(ctx)
	logger := logging.WithTraceContext(span)

	body, err := s.verifier.Verify(ctx, n.Token)
	if err != nil {
		logger.Warn("IPN token verification failed", zap.Error(err))
		return Outcome{Kind: OutcomeIndeterminate, Reason: "verification request failed", Err: err}
	}

	if body == "" || body == InvalidTokenResponse {
		return invalid("token rejected by gateway")
	}

	data, err := url.ParseQuery(body)
	if err != nil {
		return invalid("unparseable verification response")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(data.Get("apc_1")))
	if err != nil {
		return invalid("verification response has no valid order id")
	}

	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		return invalid("unknown order")
	}
	if err != nil {
		return Outcome{Kind: OutcomeIndeterminate, OrderID: orderID, Reason: "order lookup failed", Err: err}
	}

	if data.Get("ap_currency") != order.Currency {
		return invalid("currency mismatch")
	}
	if models.FormatAmount(order.Total, order.Currency) != data.Get("ap_totalamount") {
		return invalid("amount mismatch")
	}
	if data.Get("ap_status") != StatusSuccess {
		return invalid("payment status " + data.Get("ap_status"))
	}

	return Outcome{
		Kind:           OutcomeConfirmed,
		OrderID:        order.ID,
		TransactionRef: strings.TrimSpace(data.Get("ap_referencenumber")),
	}
}

func (s *NotificationService) validateDirect(ctx context.Context, n *DirectNotification) Outcome {
	orderID, err := uuid.Parse(n.OrderID)
	if err != nil {
		return Outcome{Kind: OutcomeNotFound, Reason: "malformed order id"}
	}

	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		return Outcome{Kind: OutcomeNotFound, OrderID: orderID, Reason: "unknown order"}
	}
	if err != nil {
		return Outcome{Kind: OutcomeIndeterminate, OrderID: orderID, Reason: "order lookup failed", Err: err}
	}

	state := strings.ToLower(strings.TrimSpace(n.TransactionState))
	switch {
	case state == StateCompleted && order.Status != models.StatusPublished:
		stored := order.Total
		notified := models.ParseAmount(n.TotalAmount)
		// Only a notified total above the stored total fails the order.
		if stored.LessThan(notified) {
			return Outcome{
				Kind:    OutcomeFailed,
				OrderID: order.ID,
				unless:  models.StatusPublished,
				Reason: fmt.Sprintf("Payment failed: Payment Total was %s but IPN total was %s",
					models.FormatAmount(stored, order.Currency),
					models.FormatAmount(notified, order.Currency)),
			}
		}
		return Outcome{
			Kind:           OutcomeConfirmed,
			OrderID:        order.ID,
			TransactionRef: n.ReferenceNumber,
			unless:         models.StatusPublished,
		}

	case state == StateRefunded:
		return Outcome{Kind: OutcomeRefunded, OrderID: order.ID}

	case state == StateCompleted:
		return Outcome{Kind: OutcomeIgnored, OrderID: order.ID, Reason: "order already published"}

	default:
		return Outcome{Kind: OutcomeIgnored, OrderID: order.ID, Reason: "transaction state " + state}
	}
}

func (s *NotificationService) apply(ctx context.Context, o Outcome) error {
	update := models.OrderUpdate{UnlessStatus: o.unless}

	switch o.Kind {
	case OutcomeConfirmed:
		update.Status = models.StatusPublished
		if o.TransactionRef != "" {
			ref := o.TransactionRef
			update.TransactionRef = &ref
		}
	case OutcomeFailed:
		update.Status = models.StatusFailed
		update.Note = o.Reason
	case OutcomeRefunded:
		update.Status = models.StatusRefunded
	default:
		return nil
	}

	if err := s.orders.Update(ctx, o.OrderID, update); err != nil {
		return fmt.Errorf("failed to update order %s: %w", o.OrderID, err)
	}
	return nil
}
