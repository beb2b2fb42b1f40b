package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
)

// MemoryStore is an in-memory implementation of OrderRepo, CartRepo, Catalog
// and SummaryCache. It backs the service and handler tests and local runs
// without Postgres/Redis.
type MemoryStore struct {
	mu        sync.Mutex
	checkouts []domain.Checkout
	carts     map[uuid.UUID][]domain.CartItem
	summaries map[uuid.UUID]domain.CartSummary
	products  map[string]domain.Product
	addresses map[uuid.UUID]domain.Address
	users     map[uuid.UUID]domain.Customer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:     make(map[uuid.UUID][]domain.CartItem),
		summaries: make(map[uuid.UUID]domain.CartSummary),
		products:  make(map[string]domain.Product),
		addresses: make(map[uuid.UUID]domain.Address),
		users:     make(map[uuid.UUID]domain.Customer),
	}
}

func (m *MemoryStore) SeedProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MemoryStore) SeedAddress(a domain.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[a.ID] = a
}

func (m *MemoryStore) SeedUser(u domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) InsertCheckout(ctx context.Context, c *domain.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.checkouts {
		if existing.UserID == c.UserID && existing.OrderUID == c.OrderUID {
			return ErrOrderAlreadyExists
		}
		if c.ProviderOrderID != "" && existing.ProviderOrderID == c.ProviderOrderID {
			return ErrOrderAlreadyExists
		}
	}
	m.checkouts = append(m.checkouts, *c)
	return nil
}

func (m *MemoryStore) FindByOrderUID(ctx context.Context, userID uuid.UUID, orderUID string) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.checkouts {
		c := &m.checkouts[i]
		if c.UserID == userID && c.OrderUID == orderUID {
			return c.OrderLines(), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindByProviderOrderID(ctx context.Context, userID uuid.UUID, providerOrderID string) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if providerOrderID == "" {
		return nil, nil
	}
	for i := range m.checkouts {
		c := &m.checkouts[i]
		if c.UserID == userID && c.ProviderOrderID == providerOrderID {
			return c.OrderLines(), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.OrderLine
	for _, c := range m.sortedCheckouts() {
		if c.UserID != userID {
			continue
		}
		out = append(out, m.expand(c, false)...)
	}
	return out, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.OrderLine
	for _, c := range m.sortedCheckouts() {
		out = append(out, m.expand(c, true)...)
	}
	return out, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, orderUID string, status domain.PaymentStatus) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.OrderLine
	for i := range m.checkouts {
		if m.checkouts[i].OrderUID == orderUID {
			m.checkouts[i].Status = status
			out = append(out, m.expand(m.checkouts[i], true)...)
		}
	}
	return out, nil
}

// sortedCheckouts returns a copy ordered newest first; callers hold the lock.
func (m *MemoryStore) sortedCheckouts() []domain.Checkout {
	out := make([]domain.Checkout, len(m.checkouts))
	copy(out, m.checkouts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) expand(c domain.Checkout, withCustomer bool) []domain.OrderLine {
	lines := c.OrderLines()
	for i := range lines {
		if a, ok := m.addresses[c.AddressID]; ok {
			addr := a
			lines[i].Address = &addr
		}
		if withCustomer {
			if u, ok := m.users[c.UserID]; ok {
				cust := u
				lines[i].Customer = &cust
			}
		}
	}
	return lines
}

func (m *MemoryStore) ListCart(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.carts[userID]
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *MemoryStore) UpsertCartItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.carts[userID]
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			items[i].Price = item.Price
			items[i].Total = float64(items[i].Quantity) * items[i].Price
			return nil
		}
	}
	item.Total = float64(item.Quantity) * item.Price
	m.carts[userID] = append(items, item)
	return nil
}

func (m *MemoryStore) ClearCart(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *MemoryStore) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *MemoryStore) GetSummary(ctx context.Context, userID uuid.UUID) (domain.CartSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[userID]
	return s, ok, nil
}

func (m *MemoryStore) SetSummary(ctx context.Context, userID uuid.UUID, s domain.CartSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[userID] = s
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, userID)
	return nil
}
