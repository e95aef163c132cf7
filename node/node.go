package node

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"meshledger/blockchain"
	"meshledger/blockchain/processing"
	"meshledger/blockchain/store"
	"meshledger/p2p"
)

const (
	DefaultPeerTimeout    = 5 * time.Second
	DefaultMaxConcurrency = 16
)

// Config holds all configuration for a full node
type Config struct {
	// CurrentServer is the URL peers reach this node at. It is also the
	// node's identity in the registry.
	CurrentServer string

	// NodeAddress receives mining rewards. Generated when empty.
	NodeAddress string

	Difficulty     int
	PeerTimeout    time.Duration
	MaxConcurrency int

	Logger *slog.Logger
}

// FullNode owns one ledger, its peer set and the coordinator driving them
type FullNode struct {
	config Config

	// Core blockchain storage
	store store.ChainStore

	// Mining, block intake and chain replacement
	blockProcessor *processing.BlockProcessor

	peers       *p2p.PeerManager
	coordinator *Coordinator
	metrics     *Metrics
	logger      *slog.Logger
}

// NewFullNode creates a node seeded with the genesis block
func NewFullNode(config Config) (*FullNode, error) {
	config.CurrentServer = p2p.NormalizePeerURL(config.CurrentServer)
	if config.CurrentServer == "" {
		return nil, errors.New("current server url is required")
	}
	if config.Difficulty <= 0 {
		config.Difficulty = blockchain.Difficulty
	}
	if config.PeerTimeout <= 0 {
		config.PeerTimeout = DefaultPeerTimeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.NodeAddress == "" {
		config.NodeAddress = blockchain.NewID()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := config.Logger.With("node", config.CurrentServer)

	chainStore := store.NewMemoryChainStore()
	blockProcessor := processing.NewBlockProcessor(chainStore, config.Difficulty, logger)
	peers := p2p.NewPeerManager(config.CurrentServer)
	metrics := NewMetrics(chainStore)

	coordinator := NewCoordinator(CoordinatorConfig{
		Processor:      blockProcessor,
		Peers:          peers,
		Client:         p2p.NewClient(config.PeerTimeout),
		NodeAddress:    config.NodeAddress,
		MaxConcurrency: config.MaxConcurrency,
		Metrics:        metrics,
		Logger:         logger,
	})

	logger.Info("Blockchain initialized with genesis block",
		"nodeAddress", config.NodeAddress, "difficulty", config.Difficulty)

	return &FullNode{
		config:         config,
		store:          chainStore,
		blockProcessor: blockProcessor,
		peers:          peers,
		coordinator:    coordinator,
		metrics:        metrics,
		logger:         logger,
	}, nil
}

// Stop shuts down the mining worker. The node must not be used afterwards.
func (n *FullNode) Stop() {
	n.blockProcessor.Stop()
	n.logger.Info("FullNode stopped")
}

func (n *FullNode) Config() Config {
	return n.config
}

func (n *FullNode) Coordinator() *Coordinator {
	return n.coordinator
}

func (n *FullNode) Store() store.ChainStore {
	return n.store
}

func (n *FullNode) Peers() *p2p.PeerManager {
	return n.peers
}

func (n *FullNode) Metrics() *Metrics {
	return n.metrics
}

func (n *FullNode) Logger() *slog.Logger {
	return n.logger
}
