package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nearkart/nearkart-server/internal/domain"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(p *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: p}
}

// GetProducts returns the catalog rows for the given ids, keyed by id.
// Missing ids are simply absent from the map.
func (r *CatalogRepository) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, image, price FROM shop.products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, storageErr("get products", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Image, &p.Price); err != nil {
			return nil, storageErr("scan product", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate products", err)
	}
	return out, nil
}
