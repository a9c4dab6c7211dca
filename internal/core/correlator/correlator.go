// Package correlator 把链上日志关联到本地活跃的交换会话
//
// 关联规则：
//   - 发起方存款：orderIdHash 等于会话的 keccak256(orderID)，从中取出 hashlock；
//   - 响应方存款：orderIdHash 为空，按承诺匹配（响应方承诺需要先知道 hashlock）；
//   - 提款：按 nullifier 匹配，发起方提款也可按索引的 orderIdHash 匹配，从中取出 nonce。
//
// 同一日志（txHash:logIndex）只产生一次匹配。
package correlator

import (
	"fmt"
	"sync"

	"github.com/ztomic/v1/pkg/types"
)

// MatchKind 匹配到的事件种类
type MatchKind uint8

const (
	MatchInitiatorDeposit MatchKind = iota + 1
	MatchResponderDeposit
	MatchInitiatorWithdrawal
	MatchResponderWithdrawal
)

// String 实现 fmt.Stringer
func (k MatchKind) String() string {
	switch k {
	case MatchInitiatorDeposit:
		return "initiator_deposit"
	case MatchResponderDeposit:
		return "responder_deposit"
	case MatchInitiatorWithdrawal:
		return "initiator_withdrawal"
	case MatchResponderWithdrawal:
		return "responder_withdrawal"
	default:
		return fmt.Sprintf("match(%d)", uint8(k))
	}
}

// Watch 单个会话的关联条件
//
// 未知的字段保持零值，不参与匹配。
type Watch struct {
	SwapID      string
	OrderIDHash [32]byte

	InitiatorCommitment types.Commitment
	ResponderCommitment types.Commitment
	InitiatorNullifier  types.Nullifier
	ResponderNullifier  types.Nullifier
}

// Match 关联结果
type Match struct {
	SwapID string
	Kind   MatchKind
	Event  types.ChainEvent

	// Hashlock 发起方存款携带
	Hashlock types.Hashlock
	// Nonce 发起方提款公开
	Nonce types.HashlockNonce
}

// Correlator 会话关联器，并发安全
type Correlator struct {
	mu      sync.RWMutex
	watches map[string]*Watch
	seen    map[string]struct{}
}

// New 创建关联器
func New() *Correlator {
	return &Correlator{
		watches: make(map[string]*Watch),
		seen:    make(map[string]struct{}),
	}
}

// Watch 注册或替换会话的关联条件
func (c *Correlator) Watch(w Watch) error {
	if w.SwapID == "" {
		return fmt.Errorf("watch without swap id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := w
	c.watches[w.SwapID] = &cp
	return nil
}

// Update 修改已注册会话的关联条件，例如得知 hashlock 后补上响应方承诺
func (c *Correlator) Update(swapID string, fn func(w *Watch)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.watches[swapID]
	if !ok {
		return fmt.Errorf("%w: swap %s is not watched", types.ErrNotFound, swapID)
	}
	fn(w)
	return nil
}

// Unwatch 移除会话
func (c *Correlator) Unwatch(swapID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.watches, swapID)
}

// Correlate 返回与 ev 关联的全部匹配
//
// 已处理过的日志返回空。同一日志在多个会话中命中时各产生一条匹配。
func (c *Correlator) Correlate(ev types.ChainEvent) []Match {
	key := ev.Ref().Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[key]; ok {
		return nil
	}

	var out []Match
	for _, w := range c.watches {
		if m, ok := match(w, ev); ok {
			out = append(out, m)
		}
	}
	// 没有命中的日志不记入去重表，之后注册的会话仍可通过重放匹配到
	if len(out) > 0 {
		c.seen[key] = struct{}{}
	}
	return out
}

// MatchWatch 只对指定会话匹配，不读写去重表
//
// 新注册的会话用它回放账本中已有的历史。
func (c *Correlator) MatchWatch(swapID string, ev types.ChainEvent) (Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.watches[swapID]
	if !ok {
		return Match{}, false
	}
	return match(w, ev)
}

func match(w *Watch, ev types.ChainEvent) (Match, bool) {
	base := Match{SwapID: w.SwapID, Event: ev}
	switch {
	case ev.Deposit != nil:
		d := ev.Deposit
		if d.OrderIDHash != ([32]byte{}) {
			if d.OrderIDHash != w.OrderIDHash {
				return Match{}, false
			}
			base.Kind = MatchInitiatorDeposit
			base.Hashlock = d.Hashlock
			return base, true
		}
		switch {
		case w.ResponderCommitment.IsSet() && d.Commitment.Equal(w.ResponderCommitment.FieldElement):
			base.Kind = MatchResponderDeposit
			return base, true
		case w.InitiatorCommitment.IsSet() && d.Commitment.Equal(w.InitiatorCommitment.FieldElement):
			base.Kind = MatchInitiatorDeposit
			base.Hashlock = d.Hashlock
			return base, true
		}

	case ev.Withdrawal != nil:
		wd := ev.Withdrawal
		switch {
		case w.InitiatorNullifier.IsSet() && wd.Nullifier.Equal(w.InitiatorNullifier.FieldElement),
			wd.Role == types.RoleInitiator && wd.OrderIDHash != ([32]byte{}) && wd.OrderIDHash == w.OrderIDHash:
			base.Kind = MatchInitiatorWithdrawal
			base.Nonce = wd.Nonce
			return base, true
		case w.ResponderNullifier.IsSet() && wd.Nullifier.Equal(w.ResponderNullifier.FieldElement):
			base.Kind = MatchResponderWithdrawal
			return base, true
		}
	}
	return Match{}, false
}
