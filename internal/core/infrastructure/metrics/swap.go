// Package metrics 提供交换核心的 Prometheus 指标
//
// 指标注册到默认 Registry，由 API 模块的 /metrics 统一抓取。
// 更新函数在热路径上只做常数级操作。
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ztomic"

var (
	registerOnce sync.Once

	proofDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "zkproof",
			Name:      "duration_seconds",
			Help:      "Withdrawal proof generation time by role, backend and result.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"role", "backend", "result"},
	)

	treeLeavesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tree_leaves",
		Help:      "Number of commitments inserted into the local Merkle tree.",
	})

	pendingDepositsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "pending_deposits",
		Help:      "Deposits received out of order and parked until the leaf index gap is filled.",
	})

	eventsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_total",
			Help:      "Chain events seen by the ledger, by kind and outcome (applied, duplicate, buffered, conflict).",
		},
		[]string{"kind", "outcome"},
	)

	rebuildCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "rebuilds_total",
		Help:      "Number of full tree rebuilds from the deposit history.",
	})

	transitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "transitions_total",
			Help:      "Swap state machine transitions.",
		},
		[]string{"role", "from", "to"},
	)

	registryPollCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "polls_total",
			Help:      "Order registry synchronisation attempts by result.",
		},
		[]string{"result"},
	)
)

// Register 注册全部指标，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			proofDuration,
			treeLeavesGauge,
			pendingDepositsGauge,
			eventsCounter,
			rebuildCounter,
			transitionCounter,
			registryPollCounter,
		)
	})
}

// ObserveProof 记录一次证明生成
func ObserveProof(role, backend string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	proofDuration.WithLabelValues(role, backend, result).Observe(elapsed.Seconds())
}

// SetTreeLeaves 更新叶子数
func SetTreeLeaves(n uint64) {
	treeLeavesGauge.Set(float64(n))
}

// SetPendingDeposits 更新缓冲中的乱序存款数
func SetPendingDeposits(n int) {
	pendingDepositsGauge.Set(float64(n))
}

// IncEvent 记录事件处理结果
func IncEvent(kind, outcome string) {
	eventsCounter.WithLabelValues(kind, outcome).Inc()
}

// IncRebuild 记录一次重建
func IncRebuild() {
	rebuildCounter.Inc()
}

// IncTransition 记录状态迁移
func IncTransition(role, from, to string) {
	transitionCounter.WithLabelValues(role, from, to).Inc()
}

// IncRegistryPoll 记录注册中心同步结果
func IncRegistryPoll(result string) {
	registryPollCounter.WithLabelValues(result).Inc()
}
