package store

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"meshledger/blockchain"
)

var (
	ErrStaleTemplate = errors.New("chain tip changed while mining")
	ErrNotLonger     = errors.New("candidate chain is not longer than local chain")
)

// MemoryChainStore holds one node's chain and pending pool. All mutations take
// the write lock, so sealing, intake and replacement never interleave.
type MemoryChainStore struct {
	mu      sync.RWMutex
	chain   blockchain.Chain
	pending []blockchain.Transaction

	// bumped on every chain mutation, used to detect stale mining templates
	epoch uint64
}

// NewMemoryChainStore creates a ledger holding only the genesis block
func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{
		chain:   blockchain.Chain{blockchain.NewGenesisBlock(time.Now().UnixMilli())},
		pending: make([]blockchain.Transaction, 0),
	}
}

// AddPendingTransaction queues a transaction and returns the index of the
// block it is expected to land in
func (m *MemoryChainStore) AddPendingTransaction(tx blockchain.Transaction) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = append(m.pending, tx)
	return len(m.chain) + 1
}

func (m *MemoryChainStore) GetPendingTransactions() []blockchain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return blockchain.CloneTransactions(m.pending)
}

// CreateBlock seals the whole pending pool into the next block and clears the pool.
// Nodes mine through GetMiningTemplate and SealBlock instead, which also detect a
// tip that moved during the search.
func (m *MemoryChainStore) CreateBlock(nonce blockchain.NonceType, prevHash, hash string) blockchain.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	block := blockchain.NewBlock(blockchain.BlockCreationParams{
		Index:        len(m.chain) + 1,
		Nonce:        nonce,
		PrevHash:     prevHash,
		Hash:         hash,
		Transactions: m.pending,
	})
	m.appendUnsafe(block, nil)
	return block
}

// GetMiningTemplate snapshots the tip and pending pool for a proof-of-work search
func (m *MemoryChainStore) GetMiningTemplate() MiningTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	last := m.chain.LastBlock()
	return MiningTemplate{
		PrevHash:     last.Hash,
		Index:        last.Index + 1,
		Transactions: blockchain.CloneTransactions(m.pending),
		epoch:        m.epoch,
	}
}

// SealBlock appends the block found for tmpl. It fails with ErrStaleTemplate if
// the chain changed since the template was taken. Transactions queued during the
// search stay pending.
func (m *MemoryChainStore) SealBlock(tmpl MiningTemplate, nonce blockchain.NonceType, hash string) (blockchain.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tmpl.epoch != m.epoch || m.chain.LastBlock().Hash != tmpl.PrevHash || len(m.pending) < len(tmpl.Transactions) {
		return blockchain.Block{}, errors.Wrapf(ErrStaleTemplate, "template for block %d", tmpl.Index)
	}

	block := blockchain.NewBlock(blockchain.BlockCreationParams{
		Index:        tmpl.Index,
		Nonce:        nonce,
		PrevHash:     tmpl.PrevHash,
		Hash:         hash,
		Transactions: tmpl.Transactions,
	})

	// The pool only grows between epochs, so the template is a prefix of it
	remaining := blockchain.CloneTransactions(m.pending[len(tmpl.Transactions):])
	m.appendUnsafe(block, remaining)
	return block, nil
}

// AppendBlock accepts a peer block iff it extends the current tip. The pending
// pool is cleared on acceptance.
func (m *MemoryChainStore) AppendBlock(block blockchain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := blockchain.ValidateNextBlock(&block, m.chain.LastBlock()); err != nil {
		return err
	}

	block.Transactions = blockchain.CloneTransactions(block.Transactions)
	m.appendUnsafe(block, nil)
	return nil
}

// appendUnsafe must be called with the write lock held
func (m *MemoryChainStore) appendUnsafe(block blockchain.Block, pending []blockchain.Transaction) {
	if pending == nil {
		pending = make([]blockchain.Transaction, 0)
	}
	m.chain = append(m.chain, block)
	m.pending = pending
	m.epoch++
}

// ReplaceChain atomically swaps in a validated chain and its pending pool. The
// candidate must still be strictly longer than the local chain.
func (m *MemoryChainStore) ReplaceChain(chain blockchain.Chain, pending []blockchain.Transaction) error {
	if len(chain) == 0 {
		return errors.New("cannot replace with empty chain")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(chain) <= len(m.chain) {
		return errors.Wrapf(ErrNotLonger, "candidate %d, local %d", len(chain), len(m.chain))
	}

	m.chain = blockchain.CloneChain(chain)
	m.pending = blockchain.CloneTransactions(pending)
	m.epoch++
	return nil
}

func (m *MemoryChainStore) GetHeadBlock() blockchain.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()

	head := *m.chain.LastBlock()
	head.Transactions = blockchain.CloneTransactions(head.Transactions)
	return head
}

func (m *MemoryChainStore) GetChain() blockchain.Chain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return blockchain.CloneChain(m.chain)
}

func (m *MemoryChainStore) GetChainHeight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chain)
}

func (m *MemoryChainStore) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Chain:               blockchain.CloneChain(m.chain),
		PendingTransactions: blockchain.CloneTransactions(m.pending),
	}
}

// Lookups below scan the whole chain; no index is kept. If several entries
// match, the one closest to the tip wins.

// GetBlockByHash returns nil if no block has the hash
func (m *MemoryChainStore) GetBlockByHash(hash string) *blockchain.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.chain) - 1; i >= 0; i-- {
		if m.chain[i].Hash == hash {
			block := m.chain[i]
			block.Transactions = blockchain.CloneTransactions(block.Transactions)
			return &block
		}
	}
	return nil
}

// GetTransactionByID returns the transaction and its block, or nil, nil
func (m *MemoryChainStore) GetTransactionByID(id string) (*blockchain.Transaction, *blockchain.Block) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.chain) - 1; i >= 0; i-- {
		txs := m.chain[i].Transactions
		for j := len(txs) - 1; j >= 0; j-- {
			if txs[j].ID == id {
				tx := txs[j]
				block := m.chain[i]
				block.Transactions = blockchain.CloneTransactions(block.Transactions)
				return &tx, &block
			}
		}
	}
	return nil, nil
}

// GetAddressActivity collects every transaction touching address. The balance is
// received minus sent, so a self-transfer nets to zero.
func (m *MemoryChainStore) GetAddressActivity(address string) blockchain.AddressActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activity := blockchain.AddressActivity{
		Transactions: make([]blockchain.Transaction, 0),
	}

	for _, block := range m.chain {
		for _, tx := range block.Transactions {
			if tx.Sender != address && tx.Recipient != address {
				continue
			}
			activity.Transactions = append(activity.Transactions, tx)
			if tx.Recipient == address {
				activity.Balance += tx.Amount
			}
			if tx.Sender == address {
				activity.Balance -= tx.Amount
			}
		}
	}

	return activity
}
