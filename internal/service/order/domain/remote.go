package domain

import "github.com/shopspring/decimal"

// InventoryRecord 是库存服务中的一条库存记录。
// VendorInventory 为 nil 表示可用量未知，这样的记录不参与预占。
type InventoryRecord struct {
	ID              int64 `json:"id,omitempty"`
	ProductID       int64 `json:"productId"`
	VendorInventory *int  `json:"vendorInventory"`
}

// Available 返回可用量以及它是否已知。
func (r *InventoryRecord) Available() (int, bool) {
	if r.VendorInventory == nil {
		return 0, false
	}
	return *r.VendorInventory, true
}

// CanSatisfy 判断记录能否满足 quantity 的预占。
func (r *InventoryRecord) CanSatisfy(quantity int) bool {
	n, ok := r.Available()
	return ok && n >= quantity
}

// Adjust 按 delta 修改可用量，调用前需确认可用量已知。
func (r *InventoryRecord) Adjust(delta int) {
	n := *r.VendorInventory + delta
	r.VendorInventory = &n
}

// Product 是商品服务返回的商品信息。
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Availability int             `json:"availability"`
}

// Customer 是客户服务返回的客户信息。
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}
