package infrastructure

import "orderhub/internal/service/order/domain"

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	items := make([]domain.Item, 0, len(model.Items))
	for i := range model.Items {
		items = append(items, *ToDomainItem(&model.Items[i]))
	}
	return &domain.Order{
		ID:         model.ID,
		CustomerID: model.CustomerID,
		Items:      items,
		Status:     domain.OrderStatus(model.Status),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// ToDomainItem 将数据库模型转换为领域模型
func ToDomainItem(model *ItemModel) *domain.Item {
	if model == nil {
		return nil
	}
	it := &domain.Item{
		ID:        model.ID,
		Quantity:  model.Quantity,
		SubTotal:  model.SubTotal,
		ProductID: model.ProductID,
	}
	if model.InventoryID != nil {
		it.BindInventory(*model.InventoryID)
	}
	return it
}

// FromDomainOrder 将领域模型转换为数据库模型，商品行只带 ID 用于维护关联表
func FromDomainOrder(dmn *domain.Order) *OrderModel {
	if dmn == nil {
		return nil
	}
	items := make([]ItemModel, 0, len(dmn.Items))
	for i := range dmn.Items {
		items = append(items, *FromDomainItem(&dmn.Items[i]))
	}
	return &OrderModel{
		ID:         dmn.ID,
		CustomerID: dmn.CustomerID,
		Status:     string(dmn.Status),
		Items:      items,
		CreatedAt:  dmn.CreatedAt,
		UpdatedAt:  dmn.UpdatedAt,
	}
}

// FromDomainItem 将领域模型转换为数据库模型
func FromDomainItem(dmn *domain.Item) *ItemModel {
	if dmn == nil {
		return nil
	}
	m := &ItemModel{
		ID:        dmn.ID,
		Quantity:  dmn.Quantity,
		SubTotal:  dmn.SubTotal,
		ProductID: dmn.ProductID,
	}
	if dmn.InventoryID != nil {
		id := *dmn.InventoryID
		m.InventoryID = &id
	}
	return m
}
