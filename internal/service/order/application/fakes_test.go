package application

import (
	"context"
	"sync"

	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/infrastructure"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func qty(n int) *int { return &n }

func rec(id, productID int64, available int) domain.InventoryRecord {
	return domain.InventoryRecord{ID: id, ProductID: productID, VendorInventory: qty(available)}
}

func unknownRec(id, productID int64) domain.InventoryRecord {
	return domain.InventoryRecord{ID: id, ProductID: productID}
}

// fakeInventory 按插入顺序保存库存记录，模拟库存服务。
type fakeInventory struct {
	mu      sync.Mutex
	records []domain.InventoryRecord
	updates []int64
	nextID  int64

	getErr    error
	listErr   error
	updateErr error
}

func newFakeInventory(records ...domain.InventoryRecord) *fakeInventory {
	f := &fakeInventory{nextID: 1000}
	for _, r := range records {
		f.records = append(f.records, copyRecord(r))
	}
	return f
}

func copyRecord(r domain.InventoryRecord) domain.InventoryRecord {
	if r.VendorInventory != nil {
		r.VendorInventory = qty(*r.VendorInventory)
	}
	return r
}

func (f *fakeInventory) GetInventory(_ context.Context, id int64) (*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.records {
		if r.ID == id {
			c := copyRecord(r)
			return &c, nil
		}
	}
	return nil, domain.ErrInventoryNotFound
}

func (f *fakeInventory) ListInventoryByProduct(_ context.Context, productID int64) ([]domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.InventoryRecord
	for _, r := range f.records {
		if r.ProductID == productID {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func (f *fakeInventory) UpdateInventory(_ context.Context, record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i, r := range f.records {
		if r.ID == record.ID {
			f.records[i] = copyRecord(*record)
			f.updates = append(f.updates, record.ID)
			c := copyRecord(*record)
			return &c, nil
		}
	}
	return nil, domain.ErrInventoryNotFound
}

func (f *fakeInventory) CreateInventory(_ context.Context, record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := copyRecord(*record)
	f.nextID++
	c.ID = f.nextID
	f.records = append(f.records, c)
	out := copyRecord(c)
	return &out, nil
}

func (f *fakeInventory) DeleteInventory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrInventoryNotFound
}

// available 返回记录当前可用量，未知时返回 -1。
func (f *fakeInventory) available(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			if r.VendorInventory == nil {
				return -1
			}
			return *r.VendorInventory
		}
	}
	return -1
}

type fakeCatalog struct {
	products map[int64]*domain.Product
	err      error
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*domain.Product)}
	for i := range products {
		p := products[i]
		c.products[p.ID] = &p
	}
	return c
}

func product(id int64, price string, availability int) domain.Product {
	return domain.Product{ID: id, Price: decimal.RequireFromString(price), Availability: availability}
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	cp := *p
	c.products[p.ID] = &cp
	return p, nil
}

type fakeCustomers map[int64]bool

func (f fakeCustomers) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	if !f[id] {
		return nil, domain.ErrCustomerNotFound
	}
	return &domain.Customer{ID: id}, nil
}

type fakePublisher struct {
	events []domain.OrderEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e domain.OrderEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type fakeIdempotency map[string]int64

func (f fakeIdempotency) Lookup(_ context.Context, key string) (int64, bool, error) {
	id, ok := f[key]
	return id, ok, nil
}

func (f fakeIdempotency) Remember(_ context.Context, key string, orderID int64) error {
	f[key] = orderID
	return nil
}

type fixture struct {
	inventory *fakeInventory
	catalog   *fakeCatalog
	items     *infrastructure.MemoryItemRepository
	orders    *infrastructure.MemoryOrderRepository
	publisher *fakePublisher
	idem      fakeIdempotency

	stock    *StockReconciler
	itemSvc  *ItemService
	orderSvc *OrderService
}

func newFixture(inv *fakeInventory, catalog *fakeCatalog) *fixture {
	f := &fixture{
		inventory: inv,
		catalog:   catalog,
		items:     infrastructure.NewMemoryItemRepository(),
		orders:    infrastructure.NewMemoryOrderRepository(),
		publisher: &fakePublisher{},
		idem:      fakeIdempotency{},
	}
	f.stock = NewStockReconciler(inv, f.items, testTracer)
	f.itemSvc = NewItemService(f.items, f.stock, testTracer)
	f.orderSvc = NewOrderService(f.orders, f.itemSvc, catalog, fakeCustomers{1: true}, testTracer,
		WithEventPublisher(f.publisher),
		WithIdempotencyStore(f.idem),
	)
	return f
}
