package swap

import "github.com/ztomic/v1/pkg/types"

// facts 会话已确认的事实，只增不减
//
// 状态由事实推导：重复送达同一事件只会重复设置同一事实，不会产生第二次迁移。
type facts struct {
	initiatorDeposited bool // 发起方存款已在链上
	responderDeposited bool // 响应方存款已在链上
	depositsConfirmed  bool // 双方承诺都已进入本地 Merkle 树
	nonceKnown         bool // 本方可以构造见证
	withdrawSubmitted  bool // 本方提款交易已提交
	withdrawObserved   bool // 本方提款日志已在链上
}

// nextState 在给定事实下的下一状态，没有可用迁移时返回 false
func nextState(state types.SwapState, f facts) (types.SwapState, bool) {
	switch state {
	case types.StateAwaitingDeposits:
		if f.initiatorDeposited {
			return types.StateInitiatorDeposited, true
		}
	case types.StateInitiatorDeposited:
		if f.responderDeposited {
			return types.StateResponderObserved, true
		}
	case types.StateResponderObserved:
		if f.depositsConfirmed {
			return types.StateBothDeposited, true
		}
	case types.StateBothDeposited:
		if f.nonceKnown {
			return types.StateWithdrawalReady, true
		}
	case types.StateWithdrawalReady:
		if f.withdrawSubmitted || f.withdrawObserved {
			return types.StateWithdrawn, true
		}
	case types.StateWithdrawn:
		if f.withdrawObserved {
			return types.StateCompleted, true
		}
	}
	return state, false
}

// settle 沿可用迁移推进到不动点，返回经过的迁移
func settle(state types.SwapState, f facts) []transition {
	var out []transition
	for {
		next, ok := nextState(state, f)
		if !ok {
			return out
		}
		out = append(out, transition{from: state, to: next})
		state = next
	}
}

type transition struct {
	from, to types.SwapState
}
