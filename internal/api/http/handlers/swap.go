package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/ztomic/v1/internal/api/http/types"
	"github.com/ztomic/v1/pkg/types"
)

// SwapHandlers 交换会话查询与动作
type SwapHandlers struct {
	swaps SwapService
}

// NewSwapHandlers 创建会话处理器
func NewSwapHandlers(swaps SwapService) *SwapHandlers {
	return &SwapHandlers{swaps: swaps}
}

// RegisterRoutes 注册 /swaps 路由
func (h *SwapHandlers) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/swaps")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/deposit", h.Deposit)
	g.POST("/:id/withdraw", h.Withdraw)
}

// List GET /swaps
func (h *SwapHandlers) List(c *gin.Context) {
	writeData(c, http.StatusOK, h.swaps.Sessions())
}

// Get GET /swaps/:id
func (h *SwapHandlers) Get(c *gin.Context) {
	st, err := h.swaps.Status(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, st)
}

// Deposit POST /swaps/:id/deposit
func (h *SwapHandlers) Deposit(c *gin.Context) {
	id := c.Param("id")
	tx, err := h.swaps.Deposit(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, apitypes.TxSubmitResponse{SwapID: id, TxHash: tx})
}

type withdrawRequest struct {
	Recipient string `json:"recipient" binding:"required"`
}

// Withdraw POST /swaps/:id/withdraw
//
// 证明生成可能耗时较长，请求一直阻塞到交易提交。
func (h *SwapHandlers) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.WrapInvalidWitnessInputError("recipient", err.Error()))
		return
	}
	id := c.Param("id")
	tx, err := h.swaps.Withdraw(c.Request.Context(), id, req.Recipient)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, apitypes.TxSubmitResponse{SwapID: id, TxHash: tx})
}
