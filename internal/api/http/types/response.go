// Package types 状态 API 的响应结构
package types

import "time"

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// TxSubmitResponse 合约调用提交响应
type TxSubmitResponse struct {
	SwapID string `json:"swapId"`
	TxHash string `json:"txHash"`
}

// TreeRootResponse 当前 Merkle 根
type TreeRootResponse struct {
	Root    string `json:"root"`
	Leaves  uint64 `json:"leaves"`
	Pending int    `json:"pending"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Leaves   uint64 `json:"leaves"`
}
