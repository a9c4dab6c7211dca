package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	eventbus "github.com/ztomic/v1/internal/core/infrastructure/event"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.Registry = (*Poller)(nil)

// PollerOptions 同步参数
type PollerOptions struct {
	Interval time.Duration
	// MinInterval 两次同步之间的最小间隔，期间的同步请求直接跳过
	MinInterval time.Duration
	// MaxRetries 缓存未命中时强制同步的次数，用尽后直接按 id 拉取
	MaxRetries int
}

// Poller 周期同步订单列表并缓存
//
// 同一时刻最多一个同步在进行，重入的同步请求被跳过。
type Poller struct {
	client *Client
	opts   PollerOptions
	bus    event.EventBus
	logger log.Logger

	syncing atomic.Bool

	mu       sync.RWMutex
	orders   map[string]types.SwapOrder
	lastSync time.Time

	now func() time.Time
}

// NewPoller 创建同步器，bus 可为空
func NewPoller(client *Client, opts PollerOptions, bus event.EventBus, logger log.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Poller{
		client: client,
		opts:   opts,
		bus:    bus,
		logger: logimpl.NewModuleLogger(logger, "registry"),
		orders: make(map[string]types.SwapOrder),
		now:    time.Now,
	}
}

// Run 按 Interval 周期同步，直到 ctx 取消
func (p *Poller) Run(ctx context.Context) {
	p.syncLogged(ctx, false)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncLogged(ctx, false)
		}
	}
}

func (p *Poller) syncLogged(ctx context.Context, force bool) {
	if _, err := p.sync(ctx, force); err != nil && ctx.Err() == nil {
		p.logger.Warnf("订单同步失败: %v", err)
	}
}

// Sync 拉取订单列表；正在同步或距上次成功同步不足 MinInterval 时跳过并返回 false
func (p *Poller) Sync(ctx context.Context) (bool, error) {
	return p.sync(ctx, false)
}

func (p *Poller) sync(ctx context.Context, force bool) (bool, error) {
	if !p.syncing.CompareAndSwap(false, true) {
		metrics.IncRegistryPoll("skipped")
		return false, nil
	}
	defer p.syncing.Store(false)

	now := p.now()
	if !force {
		p.mu.RLock()
		recent := !p.lastSync.IsZero() && now.Sub(p.lastSync) < p.opts.MinInterval
		p.mu.RUnlock()
		if recent {
			metrics.IncRegistryPoll("skipped")
			return false, nil
		}
	}

	orders, err := p.client.Orders(ctx)
	if err != nil {
		metrics.IncRegistryPoll("error")
		return false, err
	}
	metrics.IncRegistryPoll("ok")

	var changes []types.OrderStatusChanged
	p.mu.Lock()
	next := make(map[string]types.SwapOrder, len(orders))
	for _, o := range orders {
		if prev, ok := p.orders[o.ID]; ok && prev.Status != o.Status {
			changes = append(changes, types.OrderStatusChanged{OrderID: o.ID, From: prev.Status, To: o.Status})
		}
		next[o.ID] = o
	}
	p.orders = next
	p.lastSync = now
	p.mu.Unlock()

	for _, c := range changes {
		p.logger.Infof("订单状态变化: id=%s %s -> %s", c.OrderID, c.From, c.To)
		p.publish(c)
	}
	return true, nil
}

func (p *Poller) publish(c types.OrderStatusChanged) {
	if p.bus != nil {
		p.bus.Publish(eventbus.TopicOrderStatusChanged, c)
	}
}

func (p *Poller) cached(id string) (types.SwapOrder, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[id]
	return o, ok
}

func (p *Poller) store(o types.SwapOrder) (prev types.SwapOrder, existed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, existed = p.orders[o.ID]
	p.orders[o.ID] = o
	return prev, existed
}

// Orders 缓存中的订单快照
func (p *Poller) Orders() []types.SwapOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.SwapOrder, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	return out
}

// Order 实现 swapintf.Registry
//
// 先查缓存；未命中时强制同步至多 MaxRetries 次，仍未命中再按 id 直接拉取。
func (p *Poller) Order(ctx context.Context, id string) (types.SwapOrder, error) {
	if o, ok := p.cached(id); ok {
		return o, nil
	}
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.SwapOrder{}, err
		}
		p.logger.Debugf("缓存中没有订单 %s，重新同步 (第 %d 次)", id, attempt)
		if _, err := p.sync(ctx, true); err != nil {
			p.logger.Debugf("同步失败: %v", err)
		}
		if o, ok := p.cached(id); ok {
			return o, nil
		}
	}

	o, err := p.client.Order(ctx, id)
	if err != nil {
		return types.SwapOrder{}, err
	}
	p.store(o)
	return o, nil
}

// User 实现 swapintf.Registry
func (p *Poller) User(ctx context.Context, userName string) (types.UserRecord, error) {
	return p.client.User(ctx, userName)
}

// UpdateOrderStatus 实现 swapintf.Registry，成功后同步更新缓存
func (p *Poller) UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) error {
	updated, err := p.client.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return err
	}
	// 部分注册中心对 PUT 只返回空对象
	if updated.ID == "" {
		updated, _ = p.cached(id)
		updated.ID, updated.Status = id, status
	}
	if prev, existed := p.store(updated); existed && prev.Status != updated.Status {
		p.publish(types.OrderStatusChanged{OrderID: id, From: prev.Status, To: updated.Status})
	}
	return nil
}
