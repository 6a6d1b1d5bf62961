// internal/service/order/domain/order.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item 是订单中的一行商品。
// ID 为 0 表示尚未持久化；InventoryID 为 nil 表示还没有在任何库存记录上预占过。
type Item struct {
	ID          int64
	Quantity    int
	SubTotal    decimal.Decimal
	ProductID   int64
	InventoryID *int64
}

// Validate 校验数量与商品 ID。
func (i *Item) Validate() error {
	if i.ProductID <= 0 {
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero, got %d", ErrInvalidItem, i.Quantity)
	}
	return nil
}

// BindInventory 把商品行绑定到一条库存记录。
func (i *Item) BindInventory(inventoryID int64) {
	id := inventoryID
	i.InventoryID = &id
}

// IsBound 判断是否已绑定库存记录。
func (i *Item) IsBound() bool {
	return i.InventoryID != nil
}

// UpdateWith 用 in 的数量、小计和商品覆盖当前商品行，ID 与库存绑定保持不变。
// 绑定只由库存预占和释放维护，in.InventoryID 被忽略。
func (i *Item) UpdateWith(in *Item) {
	i.Quantity = in.Quantity
	i.SubTotal = in.SubTotal
	i.ProductID = in.ProductID
}

// Order 是订单聚合的根实体
type Order struct {
	ID         int64
	CustomerID int64
	Items      []Item
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOrder 创建一个新订单，状态为空时默认为 CREATED。
func NewOrder(customerID int64, status OrderStatus, items []Item, now time.Time) *Order {
	if status == "" {
		status = StatusCreated
	}
	return &Order{
		CustomerID: customerID,
		Items:      items,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// EnsureDeletable 在订单处于履约中状态时返回 ErrOrderStatusActive。
func (o *Order) EnsureDeletable() error {
	if o.Status.IsActive() {
		return fmt.Errorf("%w: current status of the order with id=%d is %s, hence it cannot be deleted",
			ErrOrderStatusActive, o.ID, o.Status)
	}
	return nil
}

// FindItem 按 ID 查找订单中的商品行。
func (o *Order) FindItem(id int64) (*Item, bool) {
	if id == 0 {
		return nil, false
	}
	for idx := range o.Items {
		if o.Items[idx].ID == id {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

// UpdateWith 把新的客户、状态和商品行合并到当前订单，ID 与创建时间保持不变。
func (o *Order) UpdateWith(customerID int64, status OrderStatus, items []Item, now time.Time) {
	o.CustomerID = customerID
	if status != "" {
		o.Status = status
	}
	o.Items = items
	o.UpdatedAt = now
}

// Total 返回所有商品行小计之和。
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.SubTotal)
	}
	return total
}
