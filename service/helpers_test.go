package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"payza-gateway/config"
	"payza-gateway/models"
	"payza-gateway/store"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

func testGateway() config.Gateway {
	return config.Gateway{
		MerchantID:   "merchant@example.com",
		PurchaseType: "item",
		Currency:     "USD",
		ReturnURL:    "https://shop.example.com/success?payment-confirmation=payza",
		CancelURL:    "https://shop.example.com/failed",
		NotifyURL:    "https://shop.example.com/?listener=PAYZA_IPN",
		CheckoutURL:  "https://shop.example.com/checkout",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingStore wraps the in-memory store to count calls and inject failures.
type recordingStore struct {
	*store.MemoryOrderStore
	mu        sync.Mutex
	created   int
	updates   int
	createErr error
	getErr    error
	updateErr error

	// readBarrier, when set, holds each Get until every caller has read.
	readBarrier *sync.WaitGroup
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryOrderStore: store.NewMemoryOrderStore()}
}

func (r *recordingStore) CreatePending(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	r.created++
	r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryOrderStore.CreatePending(ctx, order)
}

func (r *recordingStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	order, err := r.MemoryOrderStore.Get(ctx, id)
	if r.readBarrier != nil {
		r.readBarrier.Done()
		r.readBarrier.Wait()
	}
	return order, err
}

func (r *recordingStore) Update(ctx context.Context, id uuid.UUID, update models.OrderUpdate) error {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryOrderStore.Update(ctx, id, update)
}

// seedOrder stores a pending order with the given total and returns it.
func seedOrder(s store.OrderStore, total string) *models.Order {
	order := &models.Order{
		Total:    dec(total),
		Currency: "USD",
		Items:    []models.LineItem{{Name: "Item", Quantity: 1, Price: dec(total)}},
	}
	if err := s.CreatePending(context.Background(), order); err != nil {
		panic(err)
	}
	return order
}

// stubVerifier answers Verify with a canned body or error.
type stubVerifier struct {
	body   string
	err    error
	tokens []string
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (string, error) {
	v.tokens = append(v.tokens, token)
	return v.body, v.err
}
