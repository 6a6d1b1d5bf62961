package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"orderhub/internal/pkg/mq"
	"orderhub/internal/service/order/domain"

	"github.com/segmentio/kafka-go"
)

// EventTypeHeader 标识消息中事件类型的消息头
const EventTypeHeader = "x-event-type"

// OrderEventKafkaPublisher 实现了 port.OrderEventPublisher 接口。
// 消息以订单 ID 为 key，保证同一订单的事件落在同一分区内有序。
type OrderEventKafkaPublisher struct {
	writer mq.MessageWriter
}

// NewOrderEventKafkaPublisher 创建一个新的订单事件生产者。
func NewOrderEventKafkaPublisher(writer mq.MessageWriter) *OrderEventKafkaPublisher {
	return &OrderEventKafkaPublisher{writer: writer}
}

// Publish 序列化事件并写入 Kafka
func (p *OrderEventKafkaPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	key := []byte(strconv.FormatInt(event.OrderID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, payload,
		kafka.Header{Key: EventTypeHeader, Value: []byte(event.Type)},
	)
}

// Close 关闭底层的 Kafka writer。
func (p *OrderEventKafkaPublisher) Close() error {
	if c, ok := p.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
