package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
	"github.com/nearkart/nearkart-server/internal/logger"
	"github.com/nearkart/nearkart-server/internal/payment"
	"github.com/nearkart/nearkart-server/internal/repository"
)

// Events is the outbound order event stream. Publish failures are logged and
// never fail the request.
type Events interface {
	Publish(ctx context.Context, e domain.OrderEvent) error
}

// PaymentProvider creates provider-side orders for the hosted checkout.
type PaymentProvider interface {
	CreateOrder(amountMinor int64, receipt string, notes map[string]interface{}) (payment.ProviderOrder, error)
	KeyID() string
}

type OrdersService struct {
	orders   repository.OrderRepo
	carts    repository.CartRepo
	catalog  repository.Catalog
	cache    repository.SummaryCache
	verifier *payment.Verifier
	provider PaymentProvider
	events   Events
}

func NewOrdersService(
	orders repository.OrderRepo,
	carts repository.CartRepo,
	catalog repository.Catalog,
	cache repository.SummaryCache,
	verifier *payment.Verifier,
	provider PaymentProvider,
	events Events,
) *OrdersService {
	return &OrdersService{
		orders:   orders,
		carts:    carts,
		catalog:  catalog,
		cache:    cache,
		verifier: verifier,
		provider: provider,
		events:   events,
	}
}

// CheckoutInput is one submitted checkout: the cart snapshot plus the
// order-level fields. OrderUID is client-generated for cash on delivery and
// ignored for the online-payment flows.
type CheckoutInput struct {
	OrderUID  string
	AddressID uuid.UUID
	Items     []domain.CartItem
	SubTotal  float64
	Total     float64
}

// PlacedOrder is the outcome of either checkout flow. Replay marks a request
// that matched an already-persisted order; Lines are then the stored records.
type PlacedOrder struct {
	Lines  []domain.OrderLine
	Replay bool
}

// CheckoutSession is what the storefront needs to open the payment widget.
type CheckoutSession struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyPaymentInput carries the provider's confirmation of a completed
// hosted-checkout flow.
type VerifyPaymentInput struct {
	ProviderOrderID string
	PaymentID       string
	Signature       string
	AddressID       uuid.UUID
	Items           []domain.CartItem
}

// PlaceCashOnDelivery persists one line per cart entry under the
// client-supplied identifier. A resubmission of an identifier the owner has
// already checked out with is answered with the stored records and
// Replay=true; nothing is written twice.
func (s *OrdersService) PlaceCashOnDelivery(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*PlacedOrder, error) {
	if strings.TrimSpace(in.OrderUID) == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrInvalidRequest)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidRequest)
	}

	existing, err := s.orders.FindByOrderUID(ctx, userID, in.OrderUID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Info("duplicate order submission, returning stored order",
			"user_id", userID, "order_uid", in.OrderUID)
		s.clearCart(ctx, userID)
		return &PlacedOrder{Lines: existing, Replay: true}, nil
	}

	chk, err := s.buildCheckout(ctx, userID, in.OrderUID, in.AddressID, in.Items, "", "", domain.StatusCashOnDelivery)
	if err != nil {
		return nil, err
	}

	if err := s.orders.InsertCheckout(ctx, chk); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			// Lost a race against a concurrent submission with the same
			// identifier; the winner's records are the answer.
			lines, qerr := s.orders.FindByOrderUID(ctx, userID, in.OrderUID)
			if qerr != nil {
				return nil, qerr
			}
			s.clearCart(ctx, userID)
			return &PlacedOrder{Lines: lines, Replay: true}, nil
		}
		logger.Error("order insert failed",
			"user_id", userID, "order_uid", in.OrderUID, "err", err)
		return nil, err
	}

	s.clearCart(ctx, userID)
	s.publish(ctx, domain.OrderEvent{
		Type:     domain.EventOrderPlaced,
		OrderUID: chk.OrderUID,
		UserID:   userID,
		Status:   chk.Status,
		Total:    checkoutTotal(chk),
		At:       chk.CreatedAt,
	})
	return &PlacedOrder{Lines: chk.OrderLines()}, nil
}

// Checkout registers the pending payment with the provider and returns the
// widget parameters. Nothing is persisted locally until the signed
// confirmation arrives.
func (s *OrdersService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*CheckoutSession, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidRequest)
	}
	if in.Total <= 0 {
		return nil, fmt.Errorf("%w: totalAmt must be positive", domain.ErrInvalidRequest)
	}

	notes := map[string]interface{}{
		"userId":    userID.String(),
		"addressId": in.AddressID.String(),
	}
	po, err := s.provider.CreateOrder(
		int64(math.Round(in.Total*100)),
		"rcpt-"+uuid.NewString(),
		notes,
	)
	if err != nil {
		return nil, err
	}

	return &CheckoutSession{
		OrderID:  po.ID,
		Amount:   po.Amount,
		Currency: po.Currency,
		KeyID:    s.provider.KeyID(),
	}, nil
}

// ConfirmPayment verifies the provider signature, then materializes the order
// under a server-generated identifier. De-duplication is keyed on the
// provider order id, so a retried confirmation returns the stored records
// instead of creating a second order.
func (s *OrdersService) ConfirmPayment(ctx context.Context, userID uuid.UUID, in VerifyPaymentInput) (*PlacedOrder, error) {
	if in.ProviderOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, fmt.Errorf("%w: orderId, paymentId and signature are required", domain.ErrInvalidRequest)
	}

	if !s.verifier.Verify(in.ProviderOrderID, in.PaymentID, in.Signature) {
		logger.Warn("payment signature mismatch",
			"user_id", userID, "provider_order_id", in.ProviderOrderID, "payment_id", in.PaymentID)
		return nil, domain.ErrPaymentVerificationFailed
	}

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidRequest)
	}

	existing, err := s.orders.FindByProviderOrderID(ctx, userID, in.ProviderOrderID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Info("payment confirmation replay, returning stored order",
			"user_id", userID, "provider_order_id", in.ProviderOrderID)
		s.clearCart(ctx, userID)
		return &PlacedOrder{Lines: existing, Replay: true}, nil
	}

	orderUID := "ORD-" + uuid.NewString()
	chk, err := s.buildCheckout(ctx, userID, orderUID, in.AddressID, in.Items,
		in.PaymentID, in.ProviderOrderID, domain.StatusPaid)
	if err != nil {
		return nil, err
	}

	if err := s.orders.InsertCheckout(ctx, chk); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			lines, qerr := s.orders.FindByProviderOrderID(ctx, userID, in.ProviderOrderID)
			if qerr != nil {
				return nil, qerr
			}
			s.clearCart(ctx, userID)
			return &PlacedOrder{Lines: lines, Replay: true}, nil
		}
		// The provider believes payment succeeded but no order exists;
		// log loudly enough for manual reconciliation.
		logger.Error("order insert failed after verified payment",
			"user_id", userID, "provider_order_id", in.ProviderOrderID,
			"payment_id", in.PaymentID, "err", err)
		return nil, err
	}

	s.clearCart(ctx, userID)
	s.publish(ctx, domain.OrderEvent{
		Type:     domain.EventOrderPlaced,
		OrderUID: chk.OrderUID,
		UserID:   userID,
		Status:   chk.Status,
		Total:    checkoutTotal(chk),
		At:       chk.CreatedAt,
	})
	return &PlacedOrder{Lines: chk.OrderLines()}, nil
}

func (s *OrdersService) ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderLine, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrdersService) ListAllOrders(ctx context.Context) ([]domain.OrderLine, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus moves every line of the order to the new status. The
// enumeration is the only gate: any status may follow any other.
func (s *OrdersService) UpdateStatus(ctx context.Context, orderUID, newStatus string) ([]domain.OrderLine, error) {
	if strings.TrimSpace(orderUID) == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrInvalidRequest)
	}
	status := domain.PaymentStatus(newStatus)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, newStatus)
	}

	lines, err := s.orders.UpdateStatus(ctx, orderUID, status)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderUID)
	}

	s.publish(ctx, domain.OrderEvent{
		Type:     domain.EventStatusChanged,
		OrderUID: orderUID,
		Status:   status,
		At:       time.Now().UTC(),
	})
	return lines, nil
}

// buildCheckout validates every cart entry and assembles the checkout.
// Product name/image come from the catalog when the product is known there;
// the client-submitted snapshot is only a fallback.
func (s *OrdersService) buildCheckout(
	ctx context.Context,
	userID uuid.UUID,
	orderUID string,
	addressID uuid.UUID,
	items []domain.CartItem,
	paymentID, providerOrderID string,
	status domain.PaymentStatus,
) (*domain.Checkout, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, fmt.Errorf("%w: cart entry without productId", domain.ErrInvalidRequest)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", domain.ErrInvalidRequest, it.ProductID)
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		// Snapshot enrichment is best-effort; the submitted details stand in.
		logger.Warn("catalog lookup failed, using submitted product details", "err", err)
		products = nil
	}

	chk := &domain.Checkout{
		OrderUID:        orderUID,
		UserID:          userID,
		AddressID:       addressID,
		PaymentID:       paymentID,
		ProviderOrderID: providerOrderID,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}
	for _, it := range items {
		price := it.Price
		if price == 0 && it.Total != 0 {
			price = it.Total / float64(it.Quantity)
		}

		details := it.ProductDetails
		if p, ok := products[it.ProductID]; ok {
			details = domain.ProductDetails{Name: p.Name, Image: p.Image}
			if price == 0 {
				price = p.Price
			}
		}

		total := it.Total
		if total == 0 {
			total = price * float64(it.Quantity)
		}

		chk.Lines = append(chk.Lines, domain.CheckoutLine{
			ProductID: it.ProductID,
			Details:   details,
			Quantity:  it.Quantity,
			Price:     price,
			SubTotal:  price * float64(it.Quantity),
			Total:     total,
		})
	}
	return chk, nil
}

// clearCart empties the owner's cart and drops the cached summary. The order
// is already durable at this point, so failures are logged and swallowed.
func (s *OrdersService) clearCart(ctx context.Context, userID uuid.UUID) {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		logger.Warn("cart clear failed", "user_id", userID, "err", err)
	}
	if s.cache != nil {
		if err := s.cache.Reset(ctx, userID); err != nil {
			logger.Warn("cart summary reset failed", "user_id", userID, "err", err)
		}
	}
}

func (s *OrdersService) publish(ctx context.Context, e domain.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logger.Warn("event publish failed", "type", e.Type, "order_uid", e.OrderUID, "err", err)
	}
}

func checkoutTotal(c *domain.Checkout) float64 {
	var total float64
	for _, ln := range c.Lines {
		total += ln.Total
	}
	return total
}
