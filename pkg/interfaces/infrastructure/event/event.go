// Package event 定义进程内事件总线接口
package event

import "github.com/ztomic/v1/pkg/types"

// EventType 兼容别名
type EventType = types.EventType

// EventBus 进程内事件总线
//
// handler 为任意函数，参数与 Publish 的 args 一一对应。
type EventBus interface {
	// Subscribe 同步订阅，Publish 在发布者 goroutine 中调用 handler
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅；transactional 为真时同一 handler 串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// SubscribeOnce 一次性订阅
	SubscribeOnce(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool
}
