package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	CustomerID int64       `gorm:"index;not null"`
	Status     string      `gorm:"type:varchar(32);not null"`
	Items      []ItemModel `gorm:"many2many:order_items;joinForeignKey:OrderID;joinReferences:ItemID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// ItemModel 对应数据库中的 items 表
type ItemModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Quantity    int             `gorm:"not null"`
	SubTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ProductID   int64           `gorm:"index;not null"`
	InventoryID *int64
}

// TableName 指定 GORM 应该使用的表名
func (ItemModel) TableName() string {
	return "items"
}
