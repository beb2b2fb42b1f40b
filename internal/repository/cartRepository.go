package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nearkart/nearkart-server/internal/domain"
)

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(p *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: p}
}

func (r *CartRepository) ListCart(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, product_image, quantity, price
		 FROM shop.cart_items
		 WHERE user_id = $1
		 ORDER BY id`,
		userID)
	if err != nil {
		return nil, storageErr("list cart", err)
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.ProductDetails.Name, &it.ProductDetails.Image,
			&it.Quantity, &it.Price); err != nil {
			return nil, storageErr("scan cart item", err)
		}
		it.Total = float64(it.Quantity) * it.Price
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate cart items", err)
	}
	return out, nil
}

// UpsertCartItem adds the quantity onto an existing (user, product) row or
// inserts a fresh one.
func (r *CartRepository) UpsertCartItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO shop.cart_items (user_id, product_id, product_name, product_image, quantity, price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, product_id) DO UPDATE
			SET quantity = shop.cart_items.quantity + EXCLUDED.quantity,
			    price    = EXCLUDED.price`,
		userID, item.ProductID, item.ProductDetails.Name, item.ProductDetails.Image,
		item.Quantity, item.Price)
	if err != nil {
		return storageErr("upsert cart item", err)
	}
	return nil
}

func (r *CartRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM shop.cart_items WHERE user_id = $1`, userID); err != nil {
		return storageErr("clear cart", err)
	}
	return nil
}
