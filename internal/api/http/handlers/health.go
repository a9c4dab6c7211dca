package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/ztomic/v1/internal/api/http/types"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// HealthHandler 存活检查
type HealthHandler struct {
	started time.Time
	swaps   SwapService
	ledger  swapintf.Ledger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(swaps SwapService, ledger swapintf.Ledger) *HealthHandler {
	return &HealthHandler{started: time.Now(), swaps: swaps, ledger: ledger}
}

// Health GET /healthz
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, apitypes.HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Sessions: len(h.swaps.Sessions()),
		Leaves:   h.ledger.Len(),
	})
}
