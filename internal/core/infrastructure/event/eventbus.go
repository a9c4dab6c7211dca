// 基于asaskevich/EventBus的事件总线实现

package event

import (
	"fmt"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
)

var _ event.EventBus = (*EventBus)(nil)

// EventBus 包装 asaskevich/EventBus
//
// 底层总线在 handler panic 时会中断发布者，这里在 Publish 处兜住并记录日志。
type EventBus struct {
	bus    evbus.Bus
	logger log.Logger

	published atomic.Uint64
	panics    atomic.Uint64
}

// New 创建事件总线
func New(logger log.Logger) *EventBus {
	return &EventBus{
		bus:    evbus.New(),
		logger: logger,
	}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// SubscribeOnce 实现一次性订阅
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	defer func() {
		if r := recover(); r != nil {
			eb.panics.Add(1)
			if eb.logger != nil {
				eb.logger.Errorf("事件处理器异常: topic=%s panic=%v", eventType, r)
			}
		}
	}()
	eb.published.Add(1)
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if err := eb.bus.Unsubscribe(string(eventType), handler); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", eventType, err)
	}
	return nil
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	return eb.bus.HasCallback(string(eventType))
}

// Stats 已发布事件数与处理器 panic 次数
func (eb *EventBus) Stats() (published, panics uint64) {
	return eb.published.Load(), eb.panics.Load()
}
