// Package store holds the order storage the gateway reads orders from and
// writes payment outcomes to.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"payza-gateway/models"
)

// ErrOrderNotFound is returned when no order matches the identifier.
var ErrOrderNotFound = errors.New("order not found")

// ErrStatusConflict is returned when an update's UnlessStatus precondition
// does not hold. Nothing is written.
var ErrStatusConflict = errors.New("order status precondition failed")

// OrderStore is the host order system as seen by the gateway. Update must be
// atomic for a single order.
type OrderStore interface {
	CreatePending(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, update models.OrderUpdate) error
}
