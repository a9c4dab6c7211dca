// 事件主题常量定义

package event

import "github.com/ztomic/v1/pkg/types"

const (
	// TopicSwapStateChanged 载荷 types.SwapStateChanged
	TopicSwapStateChanged types.EventType = "swap.state.changed"
	// TopicSwapProofFailed 载荷 types.SwapProofFailed
	TopicSwapProofFailed types.EventType = "swap.proof.failed"
	// TopicLedgerRootChanged 载荷 types.LedgerRootChanged
	TopicLedgerRootChanged types.EventType = "ledger.root.changed"
	// TopicOrderStatusChanged 载荷 types.OrderStatusChanged
	TopicOrderStatusChanged types.EventType = "registry.order.changed"
)
