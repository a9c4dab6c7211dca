package types

import "time"

// EventType 进程内事件主题
type EventType string

// SwapStateChanged 会话状态推进
type SwapStateChanged struct {
	SwapID    string    `json:"swapId"`
	Role      Role      `json:"role"`
	From      SwapState `json:"from"`
	To        SwapState `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// SwapProofFailed 证明生成失败，会话状态不变
type SwapProofFailed struct {
	SwapID    string    `json:"swapId"`
	Role      Role      `json:"role"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerRootChanged 账本插入新叶子后根变化
type LedgerRootChanged struct {
	Root      FieldElement `json:"root"`
	Leaves    uint64       `json:"leaves"`
	LeafIndex uint64       `json:"leafIndex"`
}

// OrderStatusChanged 注册中心同步到订单状态变化
type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
