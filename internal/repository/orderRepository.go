package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nearkart/nearkart-server/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

func (r *OrderRepository) InsertCheckout(ctx context.Context, c *domain.Checkout) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO shop.orders
			(order_uid, user_id, address_id, payment_id, provider_order_id, payment_status, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		c.OrderUID,
		c.UserID,
		c.AddressID,
		c.PaymentID,
		c.ProviderOrderID,
		string(c.Status),
		c.CreatedAt,
	).Scan(&orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrOrderAlreadyExists
		}
		return storageErr("insert order", err)
	}

	// Line rows share the tx; a failure here rolls back the orders row too.
	batch := &pgx.Batch{}
	for _, ln := range c.Lines {
		batch.Queue(
			`INSERT INTO shop.order_items
				(order_id, product_id, product_name, product_image, quantity, price, subtotal, total)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			orderID,
			ln.ProductID,
			ln.Details.Name,
			ln.Details.Image,
			ln.Quantity,
			ln.Price,
			ln.SubTotal,
			ln.Total,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err = br.Close(); err != nil {
		return storageErr("insert order items", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	tx = nil
	return nil
}

const lineColumns = `
	o.order_uid, o.user_id, o.address_id, o.payment_id, o.payment_status, o.created_at,
	i.product_id, i.product_name, i.product_image, i.quantity, i.price, i.subtotal, i.total`

const addressColumns = `,
	a.id, COALESCE(a.address_line,''), COALESCE(a.city,''), COALESCE(a.state,''),
	COALESCE(a.country,''), COALESCE(a.pincode,''), COALESCE(a.mobile,'')`

const customerColumns = `,
	u.id, COALESCE(u.name,''), COALESCE(u.email,''), COALESCE(u.mobile,'')`

func (r *OrderRepository) FindByOrderUID(ctx context.Context, userID uuid.UUID, orderUID string) ([]domain.OrderLine, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT`+lineColumns+`
		 FROM shop.orders o
		 JOIN shop.order_items i ON i.order_id = o.id
		 WHERE o.user_id = $1 AND o.order_uid = $2
		 ORDER BY i.id`,
		userID, orderUID)
	if err != nil {
		return nil, storageErr("find order", err)
	}
	return scanLines(rows, false, false)
}

func (r *OrderRepository) FindByProviderOrderID(ctx context.Context, userID uuid.UUID, providerOrderID string) ([]domain.OrderLine, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT`+lineColumns+`
		 FROM shop.orders o
		 JOIN shop.order_items i ON i.order_id = o.id
		 WHERE o.user_id = $1 AND o.provider_order_id = $2
		 ORDER BY i.id`,
		userID, providerOrderID)
	if err != nil {
		return nil, storageErr("find order by provider id", err)
	}
	return scanLines(rows, false, false)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderLine, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT`+lineColumns+addressColumns+`
		 FROM shop.orders o
		 JOIN shop.order_items i ON i.order_id = o.id
		 LEFT JOIN shop.addresses a ON a.id = o.address_id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC, i.id`,
		userID)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return scanLines(rows, true, false)
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.OrderLine, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT`+lineColumns+addressColumns+customerColumns+`
		 FROM shop.orders o
		 JOIN shop.order_items i ON i.order_id = o.id
		 LEFT JOIN shop.addresses a ON a.id = o.address_id
		 LEFT JOIN shop.users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC, i.id`)
	if err != nil {
		return nil, storageErr("list all orders", err)
	}
	return scanLines(rows, true, true)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderUID string, status domain.PaymentStatus) ([]domain.OrderLine, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE shop.orders SET payment_status = $2 WHERE order_uid = $1`,
		orderUID, string(status))
	if err != nil {
		return nil, storageErr("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT`+lineColumns+addressColumns+customerColumns+`
		 FROM shop.orders o
		 JOIN shop.order_items i ON i.order_id = o.id
		 LEFT JOIN shop.addresses a ON a.id = o.address_id
		 LEFT JOIN shop.users u ON u.id = o.user_id
		 WHERE o.order_uid = $1
		 ORDER BY o.created_at DESC, i.id`,
		orderUID)
	if err != nil {
		return nil, storageErr("reload updated order", err)
	}
	return scanLines(rows, true, true)
}

func scanLines(rows pgx.Rows, withAddress, withCustomer bool) ([]domain.OrderLine, error) {
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var (
			ln     domain.OrderLine
			status string
			addrID *uuid.UUID
			addr   domain.Address
			custID *uuid.UUID
			cust   domain.Customer
		)

		dest := []any{
			&ln.OrderID, &ln.UserID, &ln.AddressID, &ln.PaymentID, &status, &ln.CreatedAt,
			&ln.ProductID, &ln.ProductDetails.Name, &ln.ProductDetails.Image,
			&ln.Quantity, &ln.Price, &ln.SubTotal, &ln.Total,
		}
		if withAddress {
			dest = append(dest, &addrID, &addr.AddressLine, &addr.City, &addr.State,
				&addr.Country, &addr.Pincode, &addr.Mobile)
		}
		if withCustomer {
			dest = append(dest, &custID, &cust.Name, &cust.Email, &cust.Mobile)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, storageErr("scan order line", err)
		}

		ln.PaymentStatus = domain.PaymentStatus(status)
		if addrID != nil {
			addr.ID = *addrID
			ln.Address = &addr
		}
		if custID != nil {
			cust.ID = *custID
			ln.Customer = &cust
		}
		out = append(out, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate order lines", err)
	}
	return out, nil
}
