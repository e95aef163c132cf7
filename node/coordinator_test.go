package node

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshledger/blockchain"
	"meshledger/blockchain/processing"
	"meshledger/blockchain/store"
	"meshledger/p2p"
)

const testDifficulty = 2

var errUnreachable = errors.New("connection refused")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePeers stands in for the network. Peers listed in down fail every call.
type fakePeers struct {
	mu       sync.Mutex
	down     map[string]bool
	reject   map[string]bool
	chains   map[string]p2p.BlockchainPayload
	calls    []string
	txs      map[string][]blockchain.Transaction
	blocks   map[string][]blockchain.Block
	register map[string][]string
	bulk     map[string][]string
}

func newFakePeers() *fakePeers {
	return &fakePeers{
		down:     make(map[string]bool),
		reject:   make(map[string]bool),
		chains:   make(map[string]p2p.BlockchainPayload),
		txs:      make(map[string][]blockchain.Transaction),
		blocks:   make(map[string][]blockchain.Block),
		register: make(map[string][]string),
		bulk:     make(map[string][]string),
	}
}

func (f *fakePeers) record(op, peer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+peer)
	if f.down[peer] {
		return errUnreachable
	}
	return nil
}

func (f *fakePeers) SendTransaction(ctx context.Context, peer string, tx blockchain.Transaction) error {
	if err := f.record("tx", peer); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[peer] = append(f.txs[peer], tx)
	return nil
}

func (f *fakePeers) SendBlock(ctx context.Context, peer string, block blockchain.Block) (bool, error) {
	if err := f.record("block", peer); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[peer] = append(f.blocks[peer], block)
	return !f.reject[peer], nil
}

func (f *fakePeers) RegisterServer(ctx context.Context, peer string, newServerURL string) error {
	if err := f.record("register", peer); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.register[peer] = append(f.register[peer], newServerURL)
	return nil
}

func (f *fakePeers) RegisterServersBulk(ctx context.Context, peer string, servers []string) error {
	if err := f.record("bulk", peer); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk[peer] = append([]string(nil), servers...)
	return nil
}

func (f *fakePeers) FetchBlockchain(ctx context.Context, peer string) (p2p.BlockchainPayload, error) {
	if err := f.record("fetch", peer); err != nil {
		return p2p.BlockchainPayload{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chains[peer], nil
}

func newTestCoordinator(t *testing.T, client p2p.PeerClient, peers ...string) *Coordinator {
	t.Helper()

	bp := processing.NewBlockProcessor(store.NewMemoryChainStore(), testDifficulty, quietLogger())
	t.Cleanup(bp.Stop)

	pm := p2p.NewPeerManager("http://self:3000")
	pm.AddPeers(peers)

	return NewCoordinator(CoordinatorConfig{
		Processor:   bp,
		Peers:       pm,
		Client:      client,
		NodeAddress: "miner-address",
		Logger:      quietLogger(),
	})
}

// mineChain builds a valid chain of the given length on its own store
func mineChain(t *testing.T, length int) p2p.BlockchainPayload {
	t.Helper()

	s := store.NewMemoryChainStore()
	bp := processing.NewBlockProcessor(s, testDifficulty, quietLogger())
	defer bp.Stop()

	for s.GetChainHeight() < length {
		s.AddPendingTransaction(blockchain.NewTransaction(1, "alice", "bob"))
		_, err := bp.MineBlock(context.Background())
		require.NoError(t, err)
	}
	snap := s.GetSnapshot()
	return p2p.BlockchainPayload{Chain: snap.Chain, PendingTransactions: snap.PendingTransactions}
}

func TestBroadcastTransaction(t *testing.T) {
	fake := newFakePeers()
	fake.down["http://b:3000"] = true
	c := newTestCoordinator(t, fake, "http://a:3000", "http://b:3000", "http://c:3000")

	tx, report := c.BroadcastTransaction(context.Background(), 10, "alice", "bob")

	assert.Len(t, tx.ID, 32)
	assert.Equal(t, []string{"http://a:3000", "http://c:3000"}, report.Sent)
	assert.Equal(t, []string{"http://b:3000"}, report.Failed)

	// The local add stays even though a peer failed
	assert.Equal(t, []blockchain.Transaction{tx}, c.store.GetPendingTransactions())
	assert.Equal(t, []blockchain.Transaction{tx}, fake.txs["http://a:3000"])
	assert.Equal(t, []blockchain.Transaction{tx}, fake.txs["http://c:3000"])
}

func TestReceiveTransaction(t *testing.T) {
	c := newTestCoordinator(t, newFakePeers())

	index := c.ReceiveTransaction(blockchain.NewTransaction(1, "a", "b"))
	assert.Equal(t, 2, index)
	assert.Len(t, c.store.GetPendingTransactions(), 1)
}

func TestMine(t *testing.T) {
	fake := newFakePeers()
	fake.reject["http://b:3000"] = true
	c := newTestCoordinator(t, fake, "http://a:3000", "http://b:3000")

	_, _ = c.BroadcastTransaction(context.Background(), 5, "alice", "bob")
	res, err := c.Mine(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Block.Index)
	assert.Len(t, res.Block.Transactions, 1)
	assert.Equal(t, []string{"http://a:3000"}, res.Blocks.Sent)
	assert.Equal(t, []string{"http://b:3000"}, res.Blocks.Failed)

	// Reward is pending locally and was sent to every peer
	assert.True(t, res.Reward.IsReward())
	assert.Equal(t, blockchain.MiningReward, res.Reward.Amount)
	assert.Equal(t, "miner-address", res.Reward.Recipient)
	assert.Equal(t, []blockchain.Transaction{res.Reward}, c.store.GetPendingTransactions())
	assert.ElementsMatch(t, []string{"http://a:3000", "http://b:3000"}, res.Paid.Sent)

	// Two transaction calls, then both block calls, then the reward calls
	require.Len(t, fake.calls, 6)
	for _, call := range fake.calls[2:4] {
		assert.Contains(t, call, "block ")
	}
	for _, call := range fake.calls[4:] {
		assert.Contains(t, call, "tx ")
	}
}

func TestReceiveBlock(t *testing.T) {
	c := newTestCoordinator(t, newFakePeers())
	c.ReceiveTransaction(blockchain.NewTransaction(1, "a", "b"))

	remote := mineChain(t, 2)
	next := remote.Chain[1]

	t.Run("wrong index", func(t *testing.T) {
		bad := next
		bad.Index = 3
		err := c.ReceiveBlock(bad)
		assert.ErrorIs(t, err, blockchain.ErrBlockRejected)
		assert.Equal(t, 1, c.store.GetChainHeight())
	})

	t.Run("wrong prev hash", func(t *testing.T) {
		bad := next
		bad.PrevBlockHash = "abc"
		assert.ErrorIs(t, c.ReceiveBlock(bad), blockchain.ErrBlockRejected)
		assert.Len(t, c.store.GetPendingTransactions(), 1)
	})

	t.Run("extends tip", func(t *testing.T) {
		require.NoError(t, c.ReceiveBlock(next))
		assert.Equal(t, 2, c.store.GetChainHeight())
		assert.Empty(t, c.store.GetPendingTransactions())
	})
}

func TestRegisterServer(t *testing.T) {
	c := newTestCoordinator(t, newFakePeers())

	require.NoError(t, c.RegisterServer("http://a:3000"))
	assert.ErrorIs(t, c.RegisterServer("http://a:3000/"), p2p.ErrDuplicatePeer)
	assert.ErrorIs(t, c.RegisterServer("http://self:3000"), p2p.ErrSelfPeer)

	res := c.RegisterServersBulk([]string{"http://a:3000", "http://b:3000", "http://self:3000"})
	assert.Equal(t, []string{"http://b:3000"}, res.Added)
	assert.Len(t, res.Skipped, 2)
}

func TestRegisterAndBroadcast(t *testing.T) {
	fake := newFakePeers()
	fake.down["http://b:3000"] = true
	c := newTestCoordinator(t, fake, "http://a:3000", "http://b:3000")

	res, err := c.RegisterAndBroadcast(context.Background(), "http://new:3000/")
	require.NoError(t, err)

	assert.Equal(t, "http://new:3000", res.Peer)
	assert.True(t, c.peers.HasPeer("http://new:3000"))
	assert.Equal(t, []string{"http://a:3000"}, res.Propagation.Sent)
	assert.Equal(t, []string{"http://b:3000"}, res.Propagation.Failed)
	assert.Equal(t, []string{"http://new:3000"}, fake.register["http://a:3000"])
	assert.NotContains(t, fake.register, "http://new:3000")

	assert.True(t, res.Synced)
	assert.False(t, res.Rejoined)
	assert.Equal(t, []string{"http://a:3000", "http://b:3000", "http://self:3000"}, fake.bulk["http://new:3000"])

	again, err := c.RegisterAndBroadcast(context.Background(), "http://new:3000")
	require.NoError(t, err)
	assert.True(t, again.Rejoined)
	assert.Equal(t, []string{"http://a:3000"}, again.Propagation.Sent)

	_, err = c.RegisterAndBroadcast(context.Background(), "http://self:3000")
	assert.ErrorIs(t, err, p2p.ErrSelfPeer)
}

func TestRegisterAndBroadcastNewPeerDown(t *testing.T) {
	fake := newFakePeers()
	fake.down["http://new:3000"] = true
	c := newTestCoordinator(t, fake, "http://a:3000")

	res, err := c.RegisterAndBroadcast(context.Background(), "http://new:3000")
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.Equal(t, []string{"http://a:3000"}, res.Propagation.Sent)
}

func TestConsensus(t *testing.T) {
	local := mineChain(t, 3)
	longest := mineChain(t, 5)

	setup := func(t *testing.T, fake *fakePeers) *Coordinator {
		c := newTestCoordinator(t, fake, "http://a:3000", "http://b:3000", "http://c:3000", "http://d:3000")
		require.NoError(t, c.store.ReplaceChain(local.Chain, nil))
		return c
	}

	t.Run("adopts longest valid chain", func(t *testing.T) {
		fake := newFakePeers()
		fake.chains["http://a:3000"] = mineChain(t, 2)
		fake.chains["http://b:3000"] = longest
		fake.chains["http://c:3000"] = mineChain(t, 4)
		fake.down["http://d:3000"] = true
		c := setup(t, fake)

		res := c.Consensus(context.Background())
		assert.True(t, res.Replaced)
		assert.Equal(t, 5, res.CandidateLength)
		assert.Equal(t, longest.Chain, res.Chain)
		assert.Equal(t, []string{"http://d:3000"}, res.Unreachable)
	})

	t.Run("invalid longest keeps local", func(t *testing.T) {
		tampered := blockchain.CloneChain(longest.Chain)
		tampered[3].Transactions[0].Amount = 1000

		fake := newFakePeers()
		fake.chains["http://a:3000"] = mineChain(t, 2)
		fake.chains["http://b:3000"] = p2p.BlockchainPayload{Chain: tampered}
		fake.chains["http://c:3000"] = mineChain(t, 4)
		c := setup(t, fake)

		res := c.Consensus(context.Background())
		assert.False(t, res.Replaced)
		assert.Equal(t, local.Chain, res.Chain)
	})

	t.Run("no peers", func(t *testing.T) {
		c := newTestCoordinator(t, newFakePeers())
		res := c.Consensus(context.Background())
		assert.False(t, res.Replaced)
		assert.Len(t, res.Chain, 1)
	})
}

func TestLookups(t *testing.T) {
	c := newTestCoordinator(t, newFakePeers(), "http://a:3000")
	tx, _ := c.BroadcastTransaction(context.Background(), 7, "alice", "bob")
	res, err := c.Mine(context.Background())
	require.NoError(t, err)

	block := c.Block(res.Block.Hash)
	require.NotNil(t, block)
	assert.Equal(t, 2, block.Index)
	assert.Nil(t, c.Block("missing"))

	found, owner := c.Transaction(tx.ID)
	require.NotNil(t, found)
	assert.Equal(t, res.Block.Hash, owner.Hash)

	missing, owner := c.Transaction("missing")
	assert.Nil(t, missing)
	assert.Nil(t, owner)

	assert.Equal(t, -7.0, c.AddressActivity("alice").Balance)

	payload := c.Blockchain()
	assert.Equal(t, "http://self:3000", payload.CurrentServer)
	assert.Equal(t, []string{"http://a:3000"}, payload.NetworkServers)
	assert.Len(t, payload.Chain, 2)
	assert.Len(t, payload.PendingTransactions, 1)
}
