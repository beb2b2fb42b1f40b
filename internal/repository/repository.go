package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
)

// ErrOrderAlreadyExists signals the (user_id, order_uid) or provider-order-id
// uniqueness constraint fired. Callers treat it as the replay path, never as
// a client-visible failure.
var ErrOrderAlreadyExists = errors.New("order already exists")

// Storage calls never block past this; a timeout surfaces as
// domain.ErrStorageUnavailable.
const storageTimeout = 5 * time.Second

type OrderRepo interface {
	// InsertCheckout persists the orders row and every line in one
	// transaction. Returns ErrOrderAlreadyExists on a uniqueness conflict.
	InsertCheckout(ctx context.Context, c *domain.Checkout) error
	FindByOrderUID(ctx context.Context, userID uuid.UUID, orderUID string) ([]domain.OrderLine, error)
	FindByProviderOrderID(ctx context.Context, userID uuid.UUID, providerOrderID string) ([]domain.OrderLine, error)
	// ListByUser returns the owner's lines newest first, address expanded.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderLine, error)
	// ListAll returns every line newest first, address and customer expanded.
	ListAll(ctx context.Context) ([]domain.OrderLine, error)
	// UpdateStatus updates every line sharing orderUID and returns them
	// expanded; an empty result means no such order.
	UpdateStatus(ctx context.Context, orderUID string, status domain.PaymentStatus) ([]domain.OrderLine, error)
}

type CartRepo interface {
	ListCart(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)
	UpsertCartItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type Catalog interface {
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// SummaryCache caches the per-owner cart summary; Reset drops it when the
// cart is cleared.
type SummaryCache interface {
	GetSummary(ctx context.Context, userID uuid.UUID) (domain.CartSummary, bool, error)
	SetSummary(ctx context.Context, userID uuid.UUID, s domain.CartSummary) error
	Reset(ctx context.Context, userID uuid.UUID) error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}
