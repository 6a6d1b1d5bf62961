package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound 是所有"资源不存在"错误的根，调用方统一用 errors.Is(err, ErrNotFound) 判断。
var ErrNotFound = errors.New("not found")

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrCustomerNotFound  = fmt.Errorf("customer %w", ErrNotFound)
	ErrInventoryNotFound = fmt.Errorf("inventory record %w", ErrNotFound)
)

var (
	// ErrBadRequest 表示下游服务认为请求非法（404 以外的 4xx）。
	ErrBadRequest = errors.New("bad request received or the requested url is unreachable")

	// ErrRemoteService 表示下游服务返回了 5xx。
	ErrRemoteService = errors.New("remote service error")

	ErrStockUnavailable    = errors.New("insufficient stock across inventory records")
	ErrProductNotAvailable = errors.New("product not available")
	ErrOrderStatusActive   = errors.New("order status does not allow deletion")
	ErrInvalidQuantity     = errors.New("quantity must not be negative")
	ErrInvalidItem         = errors.New("invalid item")
	ErrInvalidOrder        = errors.New("invalid order")
)
