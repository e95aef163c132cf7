package node

import (
	"github.com/prometheus/client_golang/prometheus"

	"meshledger/blockchain/store"
)

const metricsNamespace = "meshledger"

// Metrics are registered on a per-node registry so several nodes can share a process
type Metrics struct {
	registry *prometheus.Registry

	blocksMined      prometheus.Counter
	miningDuration   prometheus.Histogram
	blocksReceived   *prometheus.CounterVec
	txReceived       *prometheus.CounterVec
	peerCallFailures *prometheus.CounterVec
	consensusRuns    *prometheus.CounterVec
}

func NewMetrics(chainStore store.ChainStore) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_mined_total",
			Help:      "Blocks sealed by this node.",
		}),
		miningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "mining_duration_seconds",
			Help:      "Wall time of proof-of-work searches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		blocksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_received_total",
			Help:      "Peer blocks received, by outcome.",
		}, []string{"result"}),
		txReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_received_total",
			Help:      "Transactions added to the pending pool, by origin.",
		}, []string{"origin"}),
		peerCallFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "peer_call_failures_total",
			Help:      "Failed peer calls, by operation.",
		}, []string{"op"}),
		consensusRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "consensus_runs_total",
			Help:      "Consensus rounds, by outcome.",
		}, []string{"outcome"}),
	}

	chainHeight := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "chain_height",
		Help:      "Number of blocks in the local chain.",
	}, func() float64 { return float64(chainStore.GetChainHeight()) })

	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "pending_transactions",
		Help:      "Transactions waiting for the next block.",
	}, func() float64 { return float64(len(chainStore.GetPendingTransactions())) })

	m.registry.MustRegister(
		m.blocksMined,
		m.miningDuration,
		m.blocksReceived,
		m.txReceived,
		m.peerCallFailures,
		m.consensusRuns,
		chainHeight,
		pending,
	)
	return m
}

// Registry exposes the node's metrics for an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) peerCallFailed(op, _ string, _ error) {
	m.peerCallFailures.WithLabelValues(op).Inc()
}
