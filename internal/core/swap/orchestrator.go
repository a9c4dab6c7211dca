// Package swap 驱动单个进程内的交换会话
//
// 会话状态只由两类信号推进：本地动作（Deposit、Withdraw）与关联到会话的链上事件。
// 链上事件由单个消费者 goroutine（Run）依次处理；证明生成耗时较长，
// 在不持锁的情况下执行，并以 proving 标记保证同一会话至多一个证明在生成中。
package swap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ztomic/v1/internal/core/correlator"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	eventbus "github.com/ztomic/v1/internal/core/infrastructure/event"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// defaultRetryDelay 订阅断开后重新订阅前的等待
const defaultRetryDelay = 2 * time.Second

var (
	// ErrNoSubmitter 未配置合约调用
	ErrNoSubmitter = errors.New("no chain submitter configured")
	// ErrDepositInFlight 同一会话已有存款在提交中
	ErrDepositInFlight = errors.New("busy: deposit already in flight")
	// ErrNonceMismatch 给出的 nonce 与该订单已保存的不同
	ErrNonceMismatch = errors.New("nonce differs from the one saved for this order")
)

// Deps 编排器依赖，Submitter/Registry/Source/Bus/Nonces 可为空
type Deps struct {
	Logger    log.Logger
	Ledger    swapintf.Ledger
	Scheme    swapintf.CommitmentScheme
	Keys      cryptointf.KeyManager
	Codec     cryptointf.FieldCodec
	Prover    swapintf.ProofGenerator
	Submitter swapintf.Submitter
	Registry  swapintf.Registry
	Source    swapintf.EventSource
	Bus       event.EventBus
	// Nonces 为空时随机 nonce 只保存在内存中
	Nonces swapintf.NonceStore

	// ResyncFrom 全量重放的起始区块
	ResyncFrom uint64
	RetryDelay time.Duration
}

// checkpointer 账本可选能力：记录已处理的区块高度
type checkpointer interface {
	SetCheckpoint(ctx context.Context, block uint64) error
}

// Orchestrator 交换会话编排器
type Orchestrator struct {
	logger     log.Logger
	ledger     swapintf.Ledger
	scheme     swapintf.CommitmentScheme
	keys       cryptointf.KeyManager
	codec      cryptointf.FieldCodec
	prover     swapintf.ProofGenerator
	submitter  swapintf.Submitter
	registry   swapintf.Registry
	source     swapintf.EventSource
	bus        event.EventBus
	nonces     swapintf.NonceStore
	correlator *correlator.Correlator

	resyncFrom uint64
	retryDelay time.Duration

	mu        sync.RWMutex
	sessions  map[string]*session
	lastBlock uint64
}

// notice 解锁后发布的进程内事件
type notice struct {
	topic   types.EventType
	payload interface{}
}

// New 创建编排器
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Ledger == nil:
		return nil, fmt.Errorf("swap orchestrator: ledger is required")
	case deps.Scheme == nil:
		return nil, fmt.Errorf("swap orchestrator: commitment scheme is required")
	case deps.Keys == nil:
		return nil, fmt.Errorf("swap orchestrator: key manager is required")
	case deps.Codec == nil:
		return nil, fmt.Errorf("swap orchestrator: field codec is required")
	case deps.Prover == nil:
		return nil, fmt.Errorf("swap orchestrator: proof generator is required")
	}
	retry := deps.RetryDelay
	if retry <= 0 {
		retry = defaultRetryDelay
	}
	return &Orchestrator{
		logger:     logimpl.NewModuleLogger(deps.Logger, "swap"),
		ledger:     deps.Ledger,
		scheme:     deps.Scheme,
		keys:       deps.Keys,
		codec:      deps.Codec,
		prover:     deps.Prover,
		submitter:  deps.Submitter,
		registry:   deps.Registry,
		source:     deps.Source,
		bus:        deps.Bus,
		nonces:     deps.Nonces,
		correlator: correlator.New(),
		resyncFrom: deps.ResyncFrom,
		retryDelay: retry,
		sessions:   make(map[string]*session),
	}, nil
}

// ============================================================================
//                              会话
// ============================================================================

// Open 打开会话并回放账本中已有的相关事件，返回会话 id
func (o *Orchestrator) Open(ctx context.Context, p OpenParams) (string, error) {
	if p.Role != types.RoleInitiator && p.Role != types.RoleResponder {
		return "", types.WrapInvalidWitnessInputError("role", "must be initiator or responder")
	}
	if !p.Secret.IsSet() || p.Secret.IsZero() {
		return "", types.WrapInvalidWitnessInputError("secret", "empty")
	}
	if p.OrderID == "" {
		return "", types.WrapInvalidWitnessInputError("orderId", "empty")
	}
	oid, err := o.codec.ParseOrderID(p.OrderID)
	if err != nil {
		return "", err
	}
	if err := o.keys.ValidatePublicKey(p.CounterpartyPK); err != nil {
		return "", err
	}
	ownPK, err := o.keys.DerivePublicKey(p.Secret)
	if err != nil {
		return "", err
	}
	sx, err := o.scheme.SharedSecret(p.CounterpartyPK, p.Secret)
	if err != nil {
		return "", err
	}

	s := &session{
		id:             uuid.NewString(),
		role:           p.Role,
		orderID:        p.OrderID,
		orderIDHash:    o.codec.OrderIDHash(p.OrderID),
		secret:         p.Secret,
		ownPK:          ownPK,
		counterpartyPK: p.CounterpartyPK,
		sx:             sx,
		state:          types.StateAwaitingDeposits,
	}

	// 双方都能算出两个 nullifier：对端 x 坐标分别是 pkB.X 与 pkA.X
	if s.initiatorNullifier, err = o.scheme.Nullifier(sx, s.responderPK().X, oid); err != nil {
		return "", err
	}
	if s.responderNullifier, err = o.scheme.Nullifier(sx, s.initiatorPK().X, oid); err != nil {
		return "", err
	}

	if p.Role == types.RoleInitiator {
		nonce, err := o.initiatorNonce(ctx, p.OrderID, p.Nonce)
		if err != nil {
			return "", err
		}
		s.nonce = nonce
		if s.hashlock, s.initiatorCommitment, err = o.scheme.CommitAsInitiator(p.CounterpartyPK, p.Secret, nonce); err != nil {
			return "", err
		}
		if s.responderCommitment, err = o.scheme.MirrorResponder(p.CounterpartyPK, p.Secret, nonce); err != nil {
			return "", err
		}
		s.facts.nonceKnown = true
	}

	if err := o.correlator.Watch(s.watch()); err != nil {
		return "", err
	}

	o.mu.Lock()
	o.sessions[s.id] = s
	var notes []notice
	for _, d := range o.ledger.Deposits() {
		dep := d
		ev := types.ChainEvent{Kind: types.EventDeposit, Deposit: &dep}
		if m, ok := o.correlator.MatchWatch(s.id, ev); ok {
			o.applyMatchLocked(s, m)
		}
	}
	for _, w := range o.ledger.Withdrawals() {
		wd := w
		ev := types.ChainEvent{Kind: types.EventWithdrawal, Withdrawal: &wd}
		if m, ok := o.correlator.MatchWatch(s.id, ev); ok {
			o.applyMatchLocked(s, m)
		}
	}
	notes = o.settleLocked(s, notes)
	o.mu.Unlock()
	o.notify(notes)

	o.logger.Infof("交换会话已打开: id=%s role=%s order=%s", s.id, s.role, s.orderID)
	return s.id, nil
}

// initiatorNonce 确定发起方 nonce：调用方给出的优先，其次是已保存的，最后随机生成
//
// 新的 nonce 在返回前写入 NonceStore，保证重启后仍能算出同一哈希锁。
func (o *Orchestrator) initiatorNonce(ctx context.Context, orderID string, given types.HashlockNonce) (types.HashlockNonce, error) {
	var (
		stored types.HashlockNonce
		found  bool
	)
	if o.nonces != nil {
		var err error
		if stored, found, err = o.nonces.Nonce(ctx, orderID); err != nil {
			return types.HashlockNonce{}, fmt.Errorf("load nonce for order %s: %w", orderID, err)
		}
	}

	switch {
	case found && given.IsSet():
		if !given.Equal(stored.FieldElement) {
			return types.HashlockNonce{}, fmt.Errorf("order %s: %w", orderID, ErrNonceMismatch)
		}
		return stored, nil
	case found:
		o.logger.Infof("沿用已保存的 nonce: order=%s", orderID)
		return stored, nil
	}

	nonce := given
	if !nonce.IsSet() {
		fe, err := field.RandomElement()
		if err != nil {
			return types.HashlockNonce{}, err
		}
		nonce = types.HashlockNonce{FieldElement: fe}
	}
	if o.nonces == nil {
		if !given.IsSet() {
			o.logger.Warnf("未配置 nonce 存储，随机 nonce 重启后丢失: order=%s", orderID)
		}
		return nonce, nil
	}
	if err := o.nonces.PutNonce(ctx, orderID, nonce); err != nil {
		return types.HashlockNonce{}, fmt.Errorf("save nonce for order %s: %w", orderID, err)
	}
	return nonce, nil
}

// Close 停止跟踪会话
func (o *Orchestrator) Close(id string) {
	o.mu.Lock()
	delete(o.sessions, id)
	o.mu.Unlock()
	o.correlator.Unwatch(id)
}

// Status 会话状态快照
func (o *Orchestrator) Status(id string) (types.SwapStatus, error) {
	root := o.ledger.CurrentRoot()
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	if !ok {
		return types.SwapStatus{}, fmt.Errorf("%w: swap %s", types.ErrNotFound, id)
	}
	return s.status(root), nil
}

// Sessions 全部会话快照，按 id 排序
func (o *Orchestrator) Sessions() []types.SwapStatus {
	root := o.ledger.CurrentRoot()
	o.mu.RLock()
	out := make([]types.SwapStatus, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s.status(root))
	}
	o.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ============================================================================
//                              链上事件
// ============================================================================

// Handle 应用一个链上事件并推进相关会话
func (o *Orchestrator) Handle(ctx context.Context, ev types.ChainEvent) error {
	if _, err := o.ledger.Apply(ctx, ev); err != nil {
		return err
	}
	matches := o.correlator.Correlate(ev)

	o.mu.Lock()
	if b := ev.Ref().BlockNumber; b > o.lastBlock {
		o.lastBlock = b
	}
	for _, m := range matches {
		if s, ok := o.sessions[m.SwapID]; ok {
			o.applyMatchLocked(s, m)
		}
	}
	// 存款进入树可能让任意会话满足确认条件
	notes, completed := o.settleAllLocked()
	o.mu.Unlock()

	o.notify(notes)
	o.markCompleted(ctx, completed)
	return nil
}

// Run 单消费者循环，依次处理 events 直到通道关闭或 ctx 取消
//
// 叶子冲突与订阅错误会返回给调用方，由 Follow 全量重放后重新订阅。
func (o *Orchestrator) Run(ctx context.Context, events <-chan types.ChainEvent, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return err
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := o.Handle(ctx, ev); err != nil {
				if errors.Is(err, types.ErrLeafConflict) {
					return err
				}
				o.logger.Warnf("忽略无法应用的链上事件: ref=%s err=%v", ev.Ref().Key(), err)
				continue
			}
			o.saveCheckpoint(ctx)
		}
	}
}

// Follow 持续订阅链上事件，断开或冲突时从头重放后继续
func (o *Orchestrator) Follow(ctx context.Context, fromBlock uint64) error {
	if o.source == nil {
		return fmt.Errorf("swap orchestrator: no event source configured")
	}
	from := fromBlock
	for {
		events, errs := o.source.Subscribe(ctx, from)
		err := o.Run(ctx, events, errs)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		o.logger.Warnf("链上事件流中断，准备全量重放: %v", err)
		if rerr := o.Resync(ctx); rerr != nil {
			o.logger.Errorf("全量重放失败: %v", rerr)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.retryDelay):
		}

		o.mu.RLock()
		if o.lastBlock > from {
			from = o.lastBlock
		}
		o.mu.RUnlock()
	}
}

// Resync 从链上拉取完整存款历史并重建账本
func (o *Orchestrator) Resync(ctx context.Context) error {
	if o.source == nil {
		return fmt.Errorf("swap orchestrator: no event source configured")
	}
	deposits, err := o.source.FetchDeposits(ctx, o.resyncFrom)
	if err != nil {
		return err
	}
	if err := o.ledger.Rebuild(ctx, deposits); err != nil {
		return err
	}
	o.logger.Infof("账本已按链上历史重建: deposits=%d root=%s", len(deposits), o.ledger.CurrentRoot())

	o.mu.Lock()
	notes, completed := o.settleAllLocked()
	o.mu.Unlock()
	o.notify(notes)
	o.markCompleted(ctx, completed)
	return nil
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context) {
	cp, ok := o.ledger.(checkpointer)
	if !ok {
		return
	}
	o.mu.RLock()
	block := o.lastBlock
	o.mu.RUnlock()
	if err := cp.SetCheckpoint(ctx, block); err != nil {
		o.logger.Warnf("保存同步进度失败: block=%d err=%v", block, err)
	}
}

// applyMatchLocked 把一条匹配记录为会话事实
func (o *Orchestrator) applyMatchLocked(s *session, m correlator.Match) {
	switch m.Kind {
	case correlator.MatchInitiatorDeposit:
		o.onInitiatorDepositLocked(s, m)
	case correlator.MatchResponderDeposit:
		s.facts.responderDeposited = true
	case correlator.MatchInitiatorWithdrawal:
		if s.role == types.RoleResponder && !s.facts.nonceKnown {
			o.onNonceLocked(s, m.Nonce)
		}
		if s.role == types.RoleInitiator {
			s.facts.withdrawObserved = true
		}
	case correlator.MatchResponderWithdrawal:
		if s.role == types.RoleResponder {
			s.facts.withdrawObserved = true
		}
	}
}

func (o *Orchestrator) onInitiatorDepositLocked(s *session, m correlator.Match) {
	dep := m.Event.Deposit
	if s.role == types.RoleInitiator {
		if !dep.Commitment.Equal(s.initiatorCommitment.FieldElement) {
			s.lastError = fmt.Sprintf("deposit %s for this order carries an unexpected commitment", dep.Key())
			return
		}
		s.facts.initiatorDeposited = true
		return
	}

	if s.hashlock.IsSet() {
		// 已知 hashlock 时只接受同一笔存款的重放
		if dep.Commitment.Equal(s.initiatorCommitment.FieldElement) {
			s.facts.initiatorDeposited = true
		}
		return
	}

	// 响应方从发起方存款中得知 hashlock，核对存款承诺确实是 H(hashlock, sx)
	expected, err := o.scheme.InitiatorCommitment(m.Hashlock, s.sx)
	if err != nil {
		s.lastError = err.Error()
		return
	}
	if !expected.Equal(dep.Commitment.FieldElement) {
		s.lastError = fmt.Sprintf("initiator deposit %s does not commit to our shared secret", dep.Key())
		return
	}
	cb, err := o.scheme.CommitAsResponder(s.counterpartyPK, s.secret, m.Hashlock)
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.hashlock = m.Hashlock
	s.initiatorCommitment = expected
	s.responderCommitment = cb
	s.facts.initiatorDeposited = true
	s.lastError = ""

	if err := o.correlator.Update(s.id, func(w *correlator.Watch) {
		w.InitiatorCommitment = expected
		w.ResponderCommitment = cb
	}); err != nil {
		o.logger.Warnf("更新会话关联条件失败: id=%s err=%v", s.id, err)
	}
	// 响应方存款可能早于本地得知 hashlock 就已入账
	if _, err := o.ledger.LeafIndexOf(cb); err == nil {
		s.facts.responderDeposited = true
	}
}

// onNonceLocked 响应方从发起方提款中得知 nonce，核对 H(pkB.X, nonce) 等于 hashlock
func (o *Orchestrator) onNonceLocked(s *session, nonce types.HashlockNonce) {
	if !nonce.IsSet() {
		return
	}
	if s.hashlock.IsSet() {
		h, err := o.scheme.Hashlock(s.ownPK.X, nonce)
		if err != nil {
			s.lastError = err.Error()
			return
		}
		if !h.Equal(s.hashlock.FieldElement) {
			s.lastError = "published nonce does not open the hashlock"
			return
		}
	}
	s.nonce = nonce
	s.facts.nonceKnown = true
}

// refreshLocked 用账本确认双方承诺是否都已入树
func (o *Orchestrator) refreshLocked(s *session) {
	if !s.initiatorCommitment.IsSet() || !s.responderCommitment.IsSet() {
		return
	}
	_, errA := o.ledger.LeafIndexOf(s.initiatorCommitment)
	_, errB := o.ledger.LeafIndexOf(s.responderCommitment)
	if errA == nil && errB == nil {
		s.facts.initiatorDeposited = true
		s.facts.responderDeposited = true
		s.facts.depositsConfirmed = true
	}
}

func (o *Orchestrator) settleLocked(s *session, notes []notice) []notice {
	o.refreshLocked(s)
	for _, tr := range settle(s.state, s.facts) {
		s.state = tr.to
		s.transitions++
		metrics.IncTransition(s.role.String(), tr.from.String(), tr.to.String())
		o.logger.Infof("交换状态推进: id=%s role=%s %s -> %s", s.id, s.role, tr.from, tr.to)
		notes = append(notes, notice{
			topic: eventbus.TopicSwapStateChanged,
			payload: types.SwapStateChanged{
				SwapID:    s.id,
				Role:      s.role,
				From:      tr.from,
				To:        tr.to,
				Timestamp: time.Now(),
			},
		})
	}
	return notes
}

// settleAllLocked 推进全部会话，返回新进入 Completed 的会话订单号
func (o *Orchestrator) settleAllLocked() ([]notice, []string) {
	var (
		notes     []notice
		completed []string
	)
	for _, s := range o.sessions {
		before := s.state
		notes = o.settleLocked(s, notes)
		if !before.Terminal() && s.state.Terminal() {
			completed = append(completed, s.orderID)
		}
	}
	return notes, completed
}

func (o *Orchestrator) notify(notes []notice) {
	if o.bus == nil {
		return
	}
	for _, n := range notes {
		o.bus.Publish(n.topic, n.payload)
	}
}

// markCompleted 尽力把订单标记为完成，失败只记录日志
func (o *Orchestrator) markCompleted(ctx context.Context, orderIDs []string) {
	if o.registry == nil {
		return
	}
	for _, id := range orderIDs {
		if err := o.registry.UpdateOrderStatus(ctx, id, types.OrderCompleted); err != nil {
			o.logger.Warnf("更新订单状态失败: order=%s err=%v", id, err)
		}
	}
}

// ============================================================================
//                              本地动作
// ============================================================================

// Deposit 提交本方存款，已提交时直接返回之前的交易
func (o *Orchestrator) Deposit(ctx context.Context, id string) (string, error) {
	if o.submitter == nil {
		return "", ErrNoSubmitter
	}

	o.mu.Lock()
	s, ok := o.sessions[id]
	if !ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: swap %s", types.ErrNotFound, id)
	}
	if s.depositTx != "" {
		tx := s.depositTx
		o.mu.Unlock()
		return tx, nil
	}
	if s.depositing {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: swap %s", ErrDepositInFlight, id)
	}
	call := swapintf.DepositCall{Role: s.role}
	switch s.role {
	case types.RoleInitiator:
		if s.state != types.StateAwaitingDeposits {
			o.mu.Unlock()
			return "", types.WrapInvalidTransitionError(id, s.state, "deposit")
		}
		call.Commitment = s.initiatorCommitment
		call.OrderIDHash = s.orderIDHash
		call.Hashlock = s.hashlock
	case types.RoleResponder:
		// 响应方只有在发起方存款公开 hashlock 之后才能存款
		if !s.facts.initiatorDeposited || !s.responderCommitment.IsSet() {
			o.mu.Unlock()
			return "", types.WrapInvalidTransitionError(id, s.state, "deposit")
		}
		call.Commitment = s.responderCommitment
	}
	orderID := s.orderID
	s.depositing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		s.depositing = false
		o.mu.Unlock()
	}()

	fail := func(err error) (string, error) {
		o.mu.Lock()
		s.lastError = err.Error()
		o.mu.Unlock()
		return "", err
	}
	if err := o.checkOrder(ctx, orderID); err != nil {
		return fail(err)
	}

	tx, err := o.submitter.Deposit(ctx, call)
	if err != nil {
		return fail(err)
	}

	o.mu.Lock()
	s.depositTx = tx
	s.lastError = ""
	o.mu.Unlock()
	o.logger.Infof("存款已提交: id=%s role=%s tx=%s", id, call.Role, tx)

	if call.Role == types.RoleInitiator && o.registry != nil {
		if err := o.registry.UpdateOrderStatus(ctx, orderID, types.OrderActive); err != nil {
			o.logger.Warnf("更新订单状态失败: order=%s err=%v", orderID, err)
		}
	}
	return tx, nil
}

// checkOrder 注册中心可用时拒绝已取消的订单，查询失败不阻塞存款
func (o *Orchestrator) checkOrder(ctx context.Context, orderID string) error {
	if o.registry == nil {
		return nil
	}
	order, err := o.registry.Order(ctx, orderID)
	if err != nil {
		o.logger.Warnf("查询订单失败，继续存款: order=%s err=%v", orderID, err)
		return nil
	}
	if order.Status == types.OrderCancelled {
		return fmt.Errorf("%w: order %s", types.ErrOrderCancelled, orderID)
	}
	return nil
}

// Withdraw 生成提款证明并提交
//
// 同一会话同时只允许一个证明在生成中，第二个请求返回 ErrProofInFlight。
// 失败时记录 LastError 并发布 swap.proof.failed，状态保持不变，由调用方重试。
func (o *Orchestrator) Withdraw(ctx context.Context, id, recipient string) (string, error) {
	if o.submitter == nil {
		return "", ErrNoSubmitter
	}

	o.mu.Lock()
	s, ok := o.sessions[id]
	if !ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: swap %s", types.ErrNotFound, id)
	}
	if s.withdrawTx != "" {
		tx := s.withdrawTx
		o.mu.Unlock()
		return tx, nil
	}
	if s.state != types.StateWithdrawalReady {
		o.mu.Unlock()
		return "", types.WrapInvalidTransitionError(id, s.state, "withdraw")
	}
	if s.proving {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: swap=%s role=%s", types.ErrProofInFlight, id, s.role)
	}
	s.proving = true
	role, secret, pk, nonce, orderID, orderIDHash := s.role, s.secret, s.counterpartyPK, s.nonce, s.orderID, s.orderIDHash
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		s.proving = false
		o.mu.Unlock()
	}()

	proof, err := o.prove(ctx, role, secret, pk, nonce, orderID)
	if err != nil && errors.Is(err, types.ErrCommitmentNotFound) && o.source != nil {
		o.logger.Warnf("对方承诺不在本地树中，重放链上历史后重试: id=%s", id)
		if rerr := o.Resync(ctx); rerr == nil {
			proof, err = o.prove(ctx, role, secret, pk, nonce, orderID)
		}
	}
	if err != nil {
		o.fail(s, err)
		return "", err
	}

	call := swapintf.WithdrawCall{Role: role, Proof: proof, Recipient: recipient}
	if role == types.RoleInitiator {
		call.OrderIDHash = orderIDHash
	}
	tx, err := o.submitter.Withdraw(ctx, call)
	if err != nil {
		o.fail(s, err)
		return "", err
	}

	o.mu.Lock()
	s.withdrawTx = tx
	s.lastError = ""
	s.facts.withdrawSubmitted = true
	before := s.state
	notes := o.settleLocked(s, nil)
	completed := !before.Terminal() && s.state.Terminal()
	o.mu.Unlock()

	o.notify(notes)
	if completed {
		o.markCompleted(ctx, []string{orderID})
	}
	o.logger.Infof("提款已提交: id=%s role=%s tx=%s", id, role, tx)
	return tx, nil
}

func (o *Orchestrator) prove(ctx context.Context, role types.Role, secret types.FieldElement, pk types.PublicKey, nonce types.HashlockNonce, orderID string) (types.Proof, error) {
	var (
		proof types.Proof
		err   error
	)
	if role == types.RoleInitiator {
		proof, _, err = o.prover.ProveAsInitiator(ctx, o.ledger, swapintf.InitiatorRequest{
			Secret: secret, CounterpartyPK: pk, Nonce: nonce, OrderID: orderID,
		})
	} else {
		proof, _, err = o.prover.ProveAsResponder(ctx, o.ledger, swapintf.ResponderRequest{
			Secret: secret, CounterpartyPK: pk, Nonce: nonce, OrderID: orderID,
		})
	}
	return proof, err
}

func (o *Orchestrator) fail(s *session, err error) {
	o.mu.Lock()
	s.lastError = err.Error()
	id, role := s.id, s.role
	o.mu.Unlock()

	o.logger.Errorf("提款失败: id=%s role=%s err=%v", id, role, err)
	o.notify([]notice{{
		topic: eventbus.TopicSwapProofFailed,
		payload: types.SwapProofFailed{
			SwapID:    id,
			Role:      role,
			Error:     err.Error(),
			Timestamp: time.Now(),
		},
	}})
}
