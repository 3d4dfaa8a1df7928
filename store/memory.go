package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"payza-gateway/models"
)

// MemoryOrderStore keeps orders in process. It backs local runs without a
// database and the service tests.
type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *MemoryOrderStore) CreatePending(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.Status = models.StatusPending
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now

	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemoryOrderStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (s *MemoryOrderStore) Update(ctx context.Context, id uuid.UUID, update models.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if update.UnlessStatus != "" && order.Status == update.UnlessStatus {
		return ErrStatusConflict
	}
	if update.Status != "" {
		order.Status = update.Status
	}
	if update.TransactionRef != nil {
		ref := *update.TransactionRef
		order.TransactionRef = &ref
	}
	if update.Note != "" {
		order.Notes = append(order.Notes, models.OrderNote{OrderID: id, Body: update.Note, CreatedAt: time.Now()})
	}
	order.UpdatedAt = time.Now()
	return nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.LineItem(nil), o.Items...)
	c.Notes = append([]models.OrderNote(nil), o.Notes...)
	if o.TransactionRef != nil {
		ref := *o.TransactionRef
		c.TransactionRef = &ref
	}
	return &c
}
