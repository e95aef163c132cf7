package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"meshledger/blockchain"
	"meshledger/blockchain/processing"
	"meshledger/blockchain/store"
	"meshledger/p2p"
)

// Fan-out operation names, used for logs and the peer failure metric
const (
	opTransaction  = "transaction"
	opBlock        = "block"
	opRegister     = "register"
	opRegisterBulk = "register-bulk"
	opFetchChain   = "fetch-chain"
)

// maxMineAttempts bounds how often a mine request restarts after a peer block
// moved the tip mid-search
const maxMineAttempts = 3

var ErrBlockNotAccepted = errors.New("peer did not accept block")

// Coordinator drives the network-facing operations of one node. It holds no
// state of its own between calls; the ledger and peer set are owned by the
// store and the peer manager.
type Coordinator struct {
	store       store.ChainStore
	processor   *processing.BlockProcessor
	peers       *p2p.PeerManager
	client      p2p.PeerClient
	broadcaster *p2p.Broadcaster
	nodeAddress string
	metrics     *Metrics
	logger      *slog.Logger
}

type CoordinatorConfig struct {
	Processor      *processing.BlockProcessor
	Peers          *p2p.PeerManager
	Client         p2p.PeerClient
	NodeAddress    string
	MaxConcurrency int
	Metrics        *Metrics
	Logger         *slog.Logger
}

func NewCoordinator(config CoordinatorConfig) *Coordinator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewMetrics(config.Processor.GetStore())
	}

	return &Coordinator{
		store:     config.Processor.GetStore(),
		processor: config.Processor,
		peers:     config.Peers,
		client:    config.Client,
		broadcaster: p2p.NewBroadcaster(p2p.BroadcasterConfig{
			MaxConcurrency: config.MaxConcurrency,
			Logger:         logger,
			OnFailure:      metrics.peerCallFailed,
		}),
		nodeAddress: config.NodeAddress,
		metrics:     metrics,
		logger:      logger,
	}
}

// ReceiveTransaction adds a peer's transaction to the pending pool and returns
// the index of the block it is expected to land in
func (c *Coordinator) ReceiveTransaction(tx blockchain.Transaction) int {
	index := c.store.AddPendingTransaction(tx)
	c.metrics.txReceived.WithLabelValues("peer").Inc()
	c.logger.Debug("Transaction received", "id", tx.ID, "blockIndex", index)
	return index
}

// BroadcastTransaction creates a transaction, adds it locally, then sends it to
// every peer. The local add is never undone when peers fail.
func (c *Coordinator) BroadcastTransaction(ctx context.Context, amount float64, sender, recipient string) (blockchain.Transaction, p2p.BroadcastReport) {
	tx := blockchain.NewTransaction(amount, sender, recipient)
	return tx, c.broadcastTransaction(ctx, tx)
}

func (c *Coordinator) broadcastTransaction(ctx context.Context, tx blockchain.Transaction) p2p.BroadcastReport {
	c.store.AddPendingTransaction(tx)
	c.metrics.txReceived.WithLabelValues("local").Inc()

	return c.broadcaster.Each(ctx, opTransaction, c.peers.GetPeers(), func(ctx context.Context, peer string) error {
		return c.client.SendTransaction(ctx, peer, tx)
	})
}

// MineResult is the outcome of one mine request
type MineResult struct {
	Block  blockchain.Block
	Blocks p2p.BroadcastReport
	Reward blockchain.Transaction
	Paid   p2p.BroadcastReport
}

// Mine seals the pending pool, sends the block to every peer and, once all of
// them answered, broadcasts the mining reward to the node address
func (c *Coordinator) Mine(ctx context.Context) (MineResult, error) {
	block, err := c.mineBlock(ctx)
	if err != nil {
		return MineResult{}, err
	}

	res := MineResult{Block: block}
	res.Blocks = c.broadcaster.Each(ctx, opBlock, c.peers.GetPeers(), func(ctx context.Context, peer string) error {
		accepted, err := c.client.SendBlock(ctx, peer, block)
		if err != nil {
			return err
		}
		if !accepted {
			return errors.Wrapf(ErrBlockNotAccepted, "index %d", block.Index)
		}
		return nil
	})

	res.Reward = blockchain.NewRewardTransaction(c.nodeAddress)
	res.Paid = c.broadcastTransaction(ctx, res.Reward)
	return res, nil
}

func (c *Coordinator) mineBlock(ctx context.Context) (blockchain.Block, error) {
	var lastErr error
	for attempt := 1; attempt <= maxMineAttempts; attempt++ {
		start := time.Now()
		block, err := c.processor.MineBlock(ctx)
		c.metrics.miningDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			c.metrics.blocksMined.Inc()
			return block, nil
		}
		if !errors.Is(err, store.ErrStaleTemplate) {
			return blockchain.Block{}, err
		}
		lastErr = err
		c.logger.Info("Tip moved while mining, starting over", "attempt", attempt)
	}
	return blockchain.Block{}, lastErr
}

// ReceiveBlock appends a peer block if it extends the local tip
func (c *Coordinator) ReceiveBlock(block blockchain.Block) error {
	if err := c.processor.ProcessBlock(block); err != nil {
		c.metrics.blocksReceived.WithLabelValues("rejected").Inc()
		return err
	}
	c.metrics.blocksReceived.WithLabelValues("accepted").Inc()
	return nil
}

func (c *Coordinator) RegisterServer(url string) error {
	if err := c.peers.AddPeer(url); err != nil {
		return err
	}
	c.logger.Info("Registered peer", "peer", p2p.NormalizePeerURL(url))
	return nil
}

func (c *Coordinator) RegisterServersBulk(urls []string) p2p.BulkResult {
	res := c.peers.AddPeers(urls)
	if len(res.Added) > 0 {
		c.logger.Info("Registered peers", "added", res.Added, "skipped", len(res.Skipped))
	}
	return res
}

// RegistrationResult reports how far a new peer was propagated
type RegistrationResult struct {
	Peer        string
	Propagation p2p.BroadcastReport
	Synced      bool // the new peer received the full peer list
	Rejoined    bool
}

// RegisterAndBroadcast adds a new peer, announces it to every peer known
// before it, then hands it the whole network so it can register everyone.
// Re-registering a known peer propagates again.
func (c *Coordinator) RegisterAndBroadcast(ctx context.Context, url string) (RegistrationResult, error) {
	url = p2p.NormalizePeerURL(url)
	rejoin := c.peers.HasPeer(url)
	if err := c.peers.AddPeer(url); err != nil && !errors.Is(err, p2p.ErrDuplicatePeer) {
		return RegistrationResult{}, err
	}

	others := make([]string, 0, c.peers.Count())
	for _, peer := range c.peers.GetPeers() {
		if peer != url {
			others = append(others, peer)
		}
	}

	res := RegistrationResult{Peer: url, Rejoined: rejoin}
	res.Propagation = c.broadcaster.Each(ctx, opRegister, others, func(ctx context.Context, peer string) error {
		return c.client.RegisterServer(ctx, peer, url)
	})

	network := append(others, c.peers.Self())
	if err := c.client.RegisterServersBulk(ctx, url, network); err != nil {
		c.logger.Warn("Peer call failed", "op", opRegisterBulk, "peer", url, "error", err)
		c.metrics.peerCallFailed(opRegisterBulk, url, err)
		return res, nil
	}
	res.Synced = true
	c.logger.Info("Peer joined network", "peer", url, "announced", len(res.Propagation.Sent), "rejoined", rejoin)
	return res, nil
}

// ConsensusResult is the outcome of one reconciliation round
type ConsensusResult struct {
	processing.Resolution
	Chain       blockchain.Chain
	Unreachable []string
}

// Consensus pulls every peer's ledger and adopts the longest valid chain if it
// is strictly longer than the local one. Unreachable peers are skipped.
func (c *Coordinator) Consensus(ctx context.Context) ConsensusResult {
	peers := c.peers.GetPeers()
	position := make(map[string]int, len(peers))
	for i, peer := range peers {
		position[peer] = i
	}

	fetched := make([]*store.Snapshot, len(peers))
	report := c.broadcaster.Each(ctx, opFetchChain, peers, func(ctx context.Context, peer string) error {
		payload, err := c.client.FetchBlockchain(ctx, peer)
		if err != nil {
			return err
		}
		fetched[position[peer]] = &store.Snapshot{
			Chain:               payload.Chain,
			PendingTransactions: payload.PendingTransactions,
		}
		return nil
	})

	candidates := make([]store.Snapshot, 0, len(peers))
	for _, snap := range fetched {
		if snap != nil {
			candidates = append(candidates, *snap)
		}
	}

	resolution := c.processor.ResolveLongestChain(candidates)
	outcome := "kept"
	if resolution.Replaced {
		outcome = "replaced"
	}
	c.metrics.consensusRuns.WithLabelValues(outcome).Inc()

	return ConsensusResult{
		Resolution:  resolution,
		Chain:       c.store.GetChain(),
		Unreachable: report.Failed,
	}
}

// Blockchain returns the full ledger snapshot together with the peer set
func (c *Coordinator) Blockchain() p2p.BlockchainPayload {
	snap := c.store.GetSnapshot()
	return p2p.BlockchainPayload{
		Chain:               snap.Chain,
		PendingTransactions: snap.PendingTransactions,
		CurrentServer:       c.peers.Self(),
		NetworkServers:      c.peers.GetPeers(),
	}
}

func (c *Coordinator) Block(hash string) *blockchain.Block {
	return c.store.GetBlockByHash(hash)
}

func (c *Coordinator) Transaction(id string) (*blockchain.Transaction, *blockchain.Block) {
	return c.store.GetTransactionByID(id)
}

func (c *Coordinator) AddressActivity(address string) blockchain.AddressActivity {
	return c.store.GetAddressActivity(address)
}

func (c *Coordinator) NodeAddress() string {
	return c.nodeAddress
}

func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

func (c *Coordinator) Logger() *slog.Logger {
	return c.logger
}
