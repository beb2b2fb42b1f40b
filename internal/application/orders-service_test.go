package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
	"github.com/nearkart/nearkart-server/internal/payment"
	"github.com/nearkart/nearkart-server/internal/repository"
)

const testSecret = "s3cr3t"

func setup(t *testing.T) (*repository.MemoryStore, *OrdersService) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewOrdersService(store, store, store, store, payment.NewVerifier(testSecret), nil, nil)
	return store, svc
}

func codInput(orderUID string, n int) CheckoutInput {
	in := CheckoutInput{
		OrderUID:  orderUID,
		AddressID: uuid.New(),
	}
	for i := 0; i < n; i++ {
		in.Items = append(in.Items, domain.CartItem{
			ProductID:      fmt.Sprintf("prod-%d", i+1),
			ProductDetails: domain.ProductDetails{Name: fmt.Sprintf("Product %d", i+1)},
			Quantity:       2,
			Total:          100,
		})
	}
	return in
}

func seedCart(t *testing.T, store *repository.MemoryStore, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	err := store.UpsertCartItem(ctx, userID, domain.CartItem{ProductID: "prod-1", Quantity: 2, Price: 50})
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func TestPlaceCashOnDelivery(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	userID := uuid.New()
	seedCart(t, store, userID)

	placed, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 2))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if placed.Replay {
		t.Fatalf("fresh order must not be marked as replay")
	}
	if len(placed.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(placed.Lines))
	}
	for _, ln := range placed.Lines {
		if ln.OrderID != "ORD-1" {
			t.Fatalf("line carries wrong orderId: %s", ln.OrderID)
		}
		if ln.PaymentStatus != domain.StatusCashOnDelivery {
			t.Fatalf("expected CASH_ON_DELIVERY, got %s", ln.PaymentStatus)
		}
		if ln.PaymentID != "" {
			t.Fatalf("cash on delivery must have empty paymentId")
		}
		// derived unit price: 100 total / 2 qty
		if ln.Price != 50 {
			t.Fatalf("expected derived unit price 50, got %v", ln.Price)
		}
		if ln.SubTotal != 100 {
			t.Fatalf("expected subtotal 100, got %v", ln.SubTotal)
		}
	}

	// cart cleared
	items, err := store.ListCart(ctx, userID)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("cart not cleared, %d items left", len(items))
	}
}

func TestPlaceCashOnDelivery_TwoOrders(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	userID := uuid.New()
	seedCart(t, store, userID)

	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 2)); err != nil {
		t.Fatalf("place ORD-1: %v", err)
	}
	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-2", 2)); err != nil {
		t.Fatalf("place ORD-2: %v", err)
	}

	all, err := svc.ListOrders(ctx, userID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 lines total, got %d", len(all))
	}
	counts := map[string]int{}
	for _, ln := range all {
		counts[ln.OrderID]++
	}
	if counts["ORD-1"] != 2 || counts["ORD-2"] != 2 {
		t.Fatalf("expected 2 lines each, got %v", counts)
	}

	items, _ := store.ListCart(ctx, userID)
	if len(items) != 0 {
		t.Fatalf("cart not empty after both orders")
	}
}

func TestPlaceCashOnDelivery_Replay(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	userID := uuid.New()
	in := codInput("ORD-1", 2)

	first, err := svc.PlaceCashOnDelivery(ctx, userID, in)
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}

	second, err := svc.PlaceCashOnDelivery(ctx, userID, in)
	if err != nil {
		t.Fatalf("replay submission: %v", err)
	}
	if !second.Replay {
		t.Fatalf("second submission must be marked as replay")
	}
	if len(second.Lines) != len(first.Lines) {
		t.Fatalf("replay returned %d lines, want %d", len(second.Lines), len(first.Lines))
	}

	all, _ := svc.ListOrders(ctx, userID)
	if len(all) != 2 {
		t.Fatalf("replay created records: %d lines for ORD-1, want 2", len(all))
	}
}

func TestPlaceCashOnDelivery_SameIdentifierDifferentOwners(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	u1, u2 := uuid.New(), uuid.New()

	if _, err := svc.PlaceCashOnDelivery(ctx, u1, codInput("ORD-1", 1)); err != nil {
		t.Fatalf("owner 1: %v", err)
	}
	placed, err := svc.PlaceCashOnDelivery(ctx, u2, codInput("ORD-1", 1))
	if err != nil {
		t.Fatalf("owner 2 reusing identifier: %v", err)
	}
	if placed.Replay {
		t.Fatalf("identifier reuse across owners must not be a replay")
	}
}

func TestPlaceCashOnDelivery_Validation(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	userID := uuid.New()

	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("", 1)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("missing orderId: want ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 0)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("empty cart: want ErrInvalidRequest, got %v", err)
	}

	in := codInput("ORD-1", 1)
	in.Items[0].Quantity = 0
	if _, err := svc.PlaceCashOnDelivery(ctx, userID, in); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("zero quantity: want ErrInvalidRequest, got %v", err)
	}

	in = codInput("ORD-1", 1)
	in.Items[0].ProductID = ""
	if _, err := svc.PlaceCashOnDelivery(ctx, userID, in); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("missing productId: want ErrInvalidRequest, got %v", err)
	}
}

// racingOrders simulates two concurrent submissions: the pre-check sees
// nothing, but by insert time a twin request has already landed.
type racingOrders struct {
	*repository.MemoryStore
	raced bool
}

func (r *racingOrders) InsertCheckout(ctx context.Context, c *domain.Checkout) error {
	if !r.raced {
		r.raced = true
		if err := r.MemoryStore.InsertCheckout(ctx, c); err != nil {
			return err
		}
		return repository.ErrOrderAlreadyExists
	}
	return r.MemoryStore.InsertCheckout(ctx, c)
}

func TestPlaceCashOnDelivery_InsertRaceFallsBackToReplay(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	racing := &racingOrders{MemoryStore: store}
	svc := NewOrdersService(racing, store, store, store, payment.NewVerifier(testSecret), nil, nil)
	userID := uuid.New()

	placed, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 2))
	if err != nil {
		t.Fatalf("race must resolve to replay, got error: %v", err)
	}
	if !placed.Replay {
		t.Fatalf("race must be reported as replay")
	}
	if len(placed.Lines) != 2 {
		t.Fatalf("expected the winner's 2 lines, got %d", len(placed.Lines))
	}
}

// failingOrders rejects inserts without writing anything, standing in for a
// storage fault mid-batch: the transaction leaves no partial order behind.
type failingOrders struct {
	*repository.MemoryStore
}

func (f *failingOrders) InsertCheckout(ctx context.Context, c *domain.Checkout) error {
	return fmt.Errorf("insert order: %w: connection reset", domain.ErrStorageUnavailable)
}

func TestPlaceCashOnDelivery_InsertFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewOrdersService(&failingOrders{MemoryStore: store}, store, store, store, payment.NewVerifier(testSecret), nil, nil)
	userID := uuid.New()

	_, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 3))
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}

	lines, _ := store.FindByOrderUID(ctx, userID, "ORD-1")
	if len(lines) != 0 {
		t.Fatalf("partial order left behind: %d lines", len(lines))
	}
}

func TestPlaceCashOnDelivery_CatalogSnapshot(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	userID := uuid.New()

	store.SeedProduct(domain.Product{
		ID:    "prod-1",
		Name:  "Organic Milk 1L",
		Image: []string{"https://img.example/milk.jpg"},
		Price: 60,
	})

	in := codInput("ORD-1", 1)
	in.Items[0].ProductDetails = domain.ProductDetails{Name: "tampered name"}
	in.Items[0].Total = 0

	placed, err := svc.PlaceCashOnDelivery(ctx, userID, in)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	ln := placed.Lines[0]
	if ln.ProductDetails.Name != "Organic Milk 1L" {
		t.Fatalf("snapshot must come from the catalog, got %q", ln.ProductDetails.Name)
	}
	if ln.Price != 60 {
		t.Fatalf("price must fall back to the catalog, got %v", ln.Price)
	}
}

func verifyInput(v *payment.Verifier, providerOrderID, paymentID string, n int) VerifyPaymentInput {
	in := VerifyPaymentInput{
		ProviderOrderID: providerOrderID,
		PaymentID:       paymentID,
		Signature:       v.Signature(providerOrderID, paymentID),
		AddressID:       uuid.New(),
	}
	for i := 0; i < n; i++ {
		in.Items = append(in.Items, domain.CartItem{
			ProductID: fmt.Sprintf("prod-%d", i+1),
			Quantity:  1,
			Price:     120,
		})
	}
	return in
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	userID := uuid.New()
	seedCart(t, store, userID)
	v := payment.NewVerifier(testSecret)

	placed, err := svc.ConfirmPayment(ctx, userID, verifyInput(v, "order_abc", "pay_xyz", 2))
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if placed.Replay {
		t.Fatalf("fresh confirmation must not be a replay")
	}
	if len(placed.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(placed.Lines))
	}
	for _, ln := range placed.Lines {
		if ln.PaymentStatus != domain.StatusPaid {
			t.Fatalf("expected PAID, got %s", ln.PaymentStatus)
		}
		if ln.PaymentID != "pay_xyz" {
			t.Fatalf("payment reference not recorded: %q", ln.PaymentID)
		}
		if ln.OrderID == "" {
			t.Fatalf("server must generate an order identifier")
		}
	}

	items, _ := store.ListCart(ctx, userID)
	if len(items) != 0 {
		t.Fatalf("cart not cleared after payment")
	}
}

func TestConfirmPayment_BadSignature(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	userID := uuid.New()
	seedCart(t, store, userID)
	v := payment.NewVerifier(testSecret)

	in := verifyInput(v, "order_abc", "pay_xyz", 1)
	in.Signature = "deadbeef"

	_, err := svc.ConfirmPayment(ctx, userID, in)
	if !errors.Is(err, domain.ErrPaymentVerificationFailed) {
		t.Fatalf("want ErrPaymentVerificationFailed, got %v", err)
	}

	// nothing persisted, cart untouched
	all, _ := svc.ListOrders(ctx, userID)
	if len(all) != 0 {
		t.Fatalf("rejected confirmation created %d lines", len(all))
	}
	items, _ := store.ListCart(ctx, userID)
	if len(items) != 1 {
		t.Fatalf("rejected confirmation touched the cart")
	}
}

func TestConfirmPayment_ReplayOnProviderOrderID(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	userID := uuid.New()
	v := payment.NewVerifier(testSecret)
	in := verifyInput(v, "order_abc", "pay_xyz", 2)

	first, err := svc.ConfirmPayment(ctx, userID, in)
	if err != nil {
		t.Fatalf("first confirmation: %v", err)
	}
	second, err := svc.ConfirmPayment(ctx, userID, in)
	if err != nil {
		t.Fatalf("retried confirmation: %v", err)
	}
	if !second.Replay {
		t.Fatalf("retried confirmation must be a replay")
	}
	if second.Lines[0].OrderID != first.Lines[0].OrderID {
		t.Fatalf("replay returned a different order: %s vs %s",
			second.Lines[0].OrderID, first.Lines[0].OrderID)
	}

	all, _ := svc.ListOrders(ctx, userID)
	if len(all) != 2 {
		t.Fatalf("retry duplicated the order: %d lines", len(all))
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	userID := uuid.New()

	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 2)); err != nil {
		t.Fatalf("place order: %v", err)
	}

	lines, err := svc.UpdateStatus(ctx, "ORD-1", "DELIVERED")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected both lines updated, got %d", len(lines))
	}
	for _, ln := range lines {
		if ln.PaymentStatus != domain.StatusDelivered {
			t.Fatalf("line not updated: %s", ln.PaymentStatus)
		}
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	userID := uuid.New()

	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 1)); err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, "ORD-1", "SHIPPED"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("unknown status: want ErrInvalidRequest, got %v", err)
	}

	// records unchanged
	all, _ := svc.ListOrders(ctx, userID)
	for _, ln := range all {
		if ln.PaymentStatus != domain.StatusCashOnDelivery {
			t.Fatalf("rejected transition changed a record to %s", ln.PaymentStatus)
		}
	}
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	if _, err := svc.UpdateStatus(ctx, "ORD-missing", "PAID"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order: want ErrNotFound, got %v", err)
	}
}

type fakeProvider struct {
	lastAmount int64
}

func (f *fakeProvider) CreateOrder(amountMinor int64, receipt string, notes map[string]interface{}) (payment.ProviderOrder, error) {
	f.lastAmount = amountMinor
	return payment.ProviderOrder{ID: "order_fake", Amount: amountMinor, Currency: "INR"}, nil
}

func (f *fakeProvider) KeyID() string { return "rzp_test_key" }

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	provider := &fakeProvider{}
	svc := NewOrdersService(store, store, store, store, payment.NewVerifier(testSecret), provider, nil)
	userID := uuid.New()

	in := codInput("", 1)
	in.Total = 249.50
	session, err := svc.Checkout(ctx, userID, in)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if session.OrderID != "order_fake" || session.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if provider.lastAmount != 24950 {
		t.Fatalf("amount must be converted to minor units, got %d", provider.lastAmount)
	}

	in.Items = nil
	if _, err := svc.Checkout(ctx, userID, in); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("empty cart checkout: want ErrInvalidRequest, got %v", err)
	}
}

// recordingEvents captures published order events.
type recordingEvents struct {
	events []domain.OrderEvent
}

func (r *recordingEvents) Publish(ctx context.Context, e domain.OrderEvent) error {
	r.events = append(r.events, e)
	return nil
}

func TestEventsPublished(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rec := &recordingEvents{}
	svc := NewOrdersService(store, store, store, store, payment.NewVerifier(testSecret), nil, rec)
	userID := uuid.New()

	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 1)); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "ORD-1", "PAID"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	if rec.events[0].Type != domain.EventOrderPlaced || rec.events[1].Type != domain.EventStatusChanged {
		t.Fatalf("unexpected event types: %s, %s", rec.events[0].Type, rec.events[1].Type)
	}

	// a replayed submission publishes nothing new
	if _, err := svc.PlaceCashOnDelivery(ctx, userID, codInput("ORD-1", 1)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("replay must not publish an event")
	}
}
