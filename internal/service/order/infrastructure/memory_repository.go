package infrastructure

import (
	"context"
	"sort"
	"sync"

	"orderhub/internal/service/order/domain"
)

// MemoryOrderRepository 是进程内的订单仓储，未配置 MySQL 时使用。
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[int64]*domain.Order)}
}

func (m *MemoryOrderRepository) Save(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		m.nextID++
		order.ID = m.nextID
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MemoryOrderRepository) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryOrderRepository) FindAll(_ context.Context) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryOrderRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// MemoryItemRepository 是进程内的商品行仓储。
type MemoryItemRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*domain.Item
}

func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{items: make(map[int64]*domain.Item)}
}

func (m *MemoryItemRepository) Save(_ context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		m.nextID++
		item.ID = m.nextID
	}
	c := cloneItem(*item)
	m.items[item.ID] = &c
	return nil
}

func (m *MemoryItemRepository) FindByID(_ context.Context, id int64) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	c := cloneItem(*it)
	return &c, nil
}

func (m *MemoryItemRepository) FindAll(_ context.Context) ([]*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Item, 0, len(m.items))
	for _, it := range m.items {
		c := cloneItem(*it)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryItemRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.Item, len(o.Items))
	for i, it := range o.Items {
		c.Items[i] = cloneItem(it)
	}
	return &c
}

func cloneItem(it domain.Item) domain.Item {
	if it.InventoryID != nil {
		id := *it.InventoryID
		it.InventoryID = &id
	}
	return it
}
