// internal/service/order/application/dto.go
package application

import (
	"time"

	"orderhub/internal/service/order/domain"

	"github.com/shopspring/decimal"
)

// ItemRequest 是创建或更新商品行的输入数据
type ItemRequest struct {
	ID          *int64 `json:"id,omitempty"`
	ProductID   int64  `json:"productId"`
	Quantity    int    `json:"quantity"`
	InventoryID *int64 `json:"inventoryId,omitempty"`
}

// OrderRequest 是创建或更新订单的输入数据
type OrderRequest struct {
	CustomerID int64         `json:"customerId"`
	Status     string        `json:"status,omitempty"`
	Items      []ItemRequest `json:"items"`
}

// ItemResponse 是商品行的输出数据
type ItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	Quantity    int             `json:"quantity"`
	SubTotal    decimal.Decimal `json:"subTotal"`
	InventoryID *int64          `json:"inventoryId,omitempty"`
}

// OrderResponse 是订单的输出数据
type OrderResponse struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customerId"`
	Status     string          `json:"status"`
	Items      []ItemResponse  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ToDomain 把请求转换为领域商品行，ID 为空时保持 0。
func (r ItemRequest) ToDomain() domain.Item {
	it := domain.Item{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
	}
	if r.ID != nil {
		it.ID = *r.ID
	}
	if r.InventoryID != nil {
		it.BindInventory(*r.InventoryID)
	}
	return it
}

// ToItemResponse 把领域商品行转换为输出数据
func ToItemResponse(it *domain.Item) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		ProductID:   it.ProductID,
		Quantity:    it.Quantity,
		SubTotal:    it.SubTotal,
		InventoryID: it.InventoryID,
	}
}

// ToOrderResponse 把订单聚合转换为输出数据
func ToOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, ToItemResponse(&o.Items[i]))
	}
	return &OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
		Items:      items,
		Total:      o.Total(),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
