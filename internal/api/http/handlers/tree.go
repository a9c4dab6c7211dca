package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/ztomic/v1/internal/api/http/types"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// TreeHandlers 账本与 Merkle 树查询
type TreeHandlers struct {
	ledger swapintf.Ledger
}

// NewTreeHandlers 创建树查询处理器
func NewTreeHandlers(ledger swapintf.Ledger) *TreeHandlers {
	return &TreeHandlers{ledger: ledger}
}

// RegisterRoutes 注册 /tree 路由
func (h *TreeHandlers) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/tree")
	g.GET("/root", h.Root)
	g.GET("/proof/:commitment", h.Proof)
	g.GET("/deposits", h.Deposits)
}

// Root GET /tree/root
func (h *TreeHandlers) Root(c *gin.Context) {
	writeData(c, http.StatusOK, apitypes.TreeRootResponse{
		Root:    h.ledger.CurrentRoot().Hex(),
		Leaves:  h.ledger.Len(),
		Pending: h.ledger.Pending(),
	})
}

// Proof GET /tree/proof/:commitment，承诺接受 0x 十六进制
func (h *TreeHandlers) Proof(c *gin.Context) {
	fe, err := types.FieldElementFromHex(c.Param("commitment"))
	if err != nil {
		writeError(c, types.WrapInvalidWitnessInputError("commitment", err.Error()))
		return
	}
	idx, err := h.ledger.LeafIndexOf(types.Commitment{FieldElement: fe})
	if err != nil {
		writeError(c, err)
		return
	}
	proof, err := h.ledger.Proof(idx)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, proof)
}

// Deposits GET /tree/deposits
func (h *TreeHandlers) Deposits(c *gin.Context) {
	writeData(c, http.StatusOK, h.ledger.Deposits())
}
