package infrastructure

import (
	"context"
	"time"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/domain"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewMySQL 打开 MySQL 连接并配置连接池。
func NewMySQL(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, errors.Wrap(err, "ping mysql")
	}
	logger.Ctx(ctx).Info().Msg("✅ Connected to MySQL")
	return db, nil
}

// AutoMigrate 创建或更新订单相关的表结构。
func AutoMigrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(&ItemModel{}, &OrderModel{}), "auto migrate order tables")
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("items.id")
}

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 保存订单本身，并用订单当前的商品行替换关联表中的记录
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	items := model.Items
	model.Items = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return errors.Wrapf(err, "save order %d", model.ID)
		}
		if err := tx.Model(model).Association("Items").Replace(items); err != nil {
			return errors.Wrapf(err, "replace items of order %d", model.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.ID = model.ID
	return nil
}

// FindByID 使用 GORM 从数据库中查找订单
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "find order %d", id)
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	if err := r.db.WithContext(ctx).Preload("Items", preloadItems).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, ToDomainOrder(&models[i]))
	}
	return out, nil
}

// Delete 删除订单及其关联表记录，商品行本身由 ItemRepository 删除
func (r *GormOrderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&OrderModel{ID: id}).Association("Items").Clear(); err != nil {
			return errors.Wrapf(err, "clear items of order %d", id)
		}
		res := tx.Delete(&OrderModel{}, id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete order %d", id)
		}
		if res.RowsAffected == 0 {
			return domain.ErrOrderNotFound
		}
		return nil
	})
}

// GormItemRepository 是 ItemRepository 的 GORM 实现
type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

func (r *GormItemRepository) Save(ctx context.Context, item *domain.Item) error {
	model := FromDomainItem(item)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return errors.Wrapf(err, "save item %d", model.ID)
	}
	item.ID = model.ID
	return nil
}

func (r *GormItemRepository) FindByID(ctx context.Context, id int64) (*domain.Item, error) {
	var model ItemModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, errors.Wrapf(err, "find item %d", id)
	}
	return ToDomainItem(&model), nil
}

func (r *GormItemRepository) FindAll(ctx context.Context) ([]*domain.Item, error) {
	var models []ItemModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	out := make([]*domain.Item, 0, len(models))
	for i := range models {
		out = append(out, ToDomainItem(&models[i]))
	}
	return out, nil
}

// Delete 删除商品行，同时移除它在 order_items 中的关联
func (r *GormItemRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM order_items WHERE item_id = ?", id).Error; err != nil {
			return errors.Wrapf(err, "detach item %d", id)
		}
		res := tx.Delete(&ItemModel{}, id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete item %d", id)
		}
		if res.RowsAffected == 0 {
			return domain.ErrItemNotFound
		}
		return nil
	})
}
