// Package handlers 状态 API 的请求处理器
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ztomic/v1/internal/api/http/middleware"
	apitypes "github.com/ztomic/v1/internal/api/http/types"
	"github.com/ztomic/v1/internal/core/swap"
	"github.com/ztomic/v1/pkg/types"
)

// SwapService 编排器中 API 用到的部分
type SwapService interface {
	Sessions() []types.SwapStatus
	Status(id string) (types.SwapStatus, error)
	Deposit(ctx context.Context, id string) (string, error)
	Withdraw(ctx context.Context, id, recipient string) (string, error)
}

var _ SwapService = (*swap.Orchestrator)(nil)

func writeData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, apitypes.NewSuccessResponse(data).WithRequestID(middleware.GetRequestID(c)))
}

// writeError 按错误种类选择状态码
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, apitypes.ErrInternal
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrCommitmentNotFound):
		status, code = http.StatusNotFound, apitypes.ErrNotFound
	case errors.Is(err, types.ErrProofInFlight), errors.Is(err, swap.ErrDepositInFlight):
		status, code = http.StatusConflict, apitypes.ErrProofInFlight
	case errors.Is(err, types.ErrOrderCancelled):
		status, code = http.StatusConflict, apitypes.ErrOrderCancelled
	case errors.Is(err, types.ErrInvalidTransition):
		status, code = http.StatusConflict, apitypes.ErrConflict
	case errors.Is(err, types.ErrInvalidWitnessInput), errors.Is(err, types.ErrOutOfRange):
		status, code = http.StatusBadRequest, apitypes.ErrInvalidArgument
	case errors.Is(err, swap.ErrNoSubmitter):
		status, code = http.StatusServiceUnavailable, apitypes.ErrServiceUnavailable
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, apitypes.NewErrorResponse(code, err.Error()).WithRequestID(middleware.GetRequestID(c)))
}
