package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
	"github.com/nearkart/nearkart-server/internal/logger"
	"github.com/nearkart/nearkart-server/internal/repository"
)

type CartService struct {
	carts repository.CartRepo
	cache repository.SummaryCache
}

func NewCartService(carts repository.CartRepo, cache repository.SummaryCache) *CartService {
	return &CartService{carts: carts, cache: cache}
}

// List returns the cart plus its summary, served from the cache when warm.
func (s *CartService) List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, domain.CartSummary, error) {
	items, err := s.carts.ListCart(ctx, userID)
	if err != nil {
		return nil, domain.CartSummary{}, err
	}

	if s.cache != nil {
		if sum, ok, err := s.cache.GetSummary(ctx, userID); err == nil && ok {
			return items, sum, nil
		}
	}

	sum := summarize(items)
	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, userID, sum); err != nil {
			logger.Warn("cart summary cache set failed", "user_id", userID, "err", err)
		}
	}
	return items, sum, nil
}

// Add upserts one entry; an existing (owner, product) row gains the quantity.
func (s *CartService) Add(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	if strings.TrimSpace(item.ProductID) == "" {
		return fmt.Errorf("%w: productId is required", domain.ErrInvalidRequest)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidRequest)
	}

	if err := s.carts.UpsertCartItem(ctx, userID, item); err != nil {
		return err
	}
	// The summary is stale now; recompute lazily on the next read.
	if s.cache != nil {
		if err := s.cache.Reset(ctx, userID); err != nil {
			logger.Warn("cart summary reset failed", "user_id", userID, "err", err)
		}
	}
	return nil
}

func summarize(items []domain.CartItem) domain.CartSummary {
	var sum domain.CartSummary
	for _, it := range items {
		sum.Items += it.Quantity
		sum.Total += it.Total
	}
	return sum
}
