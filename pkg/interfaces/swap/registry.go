package swap

import (
	"context"

	"github.com/ztomic/v1/pkg/types"
)

// Registry 订单与身份注册中心（外部服务）
type Registry interface {
	// Order 按 id 查询订单
	Order(ctx context.Context, id string) (types.SwapOrder, error)

	// User 按用户名查询公钥记录
	User(ctx context.Context, userName string) (types.UserRecord, error)

	// UpdateOrderStatus 推进订单状态
	UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) error
}
