package store

import (
	"meshledger/blockchain"
)

// Snapshot is a consistent copy of the ledger state
type Snapshot struct {
	Chain               blockchain.Chain         `json:"chain"`
	PendingTransactions []blockchain.Transaction `json:"pendingTransactions"`
}

// MiningTemplate captures the tip and pending pool a proof-of-work search runs against
type MiningTemplate struct {
	PrevHash     string
	Index        int
	Transactions []blockchain.Transaction
	epoch        uint64
}

// Data returns the hashed block data for this template
func (t MiningTemplate) Data() blockchain.BlockData {
	return blockchain.BlockData{
		Transactions: t.Transactions,
		Index:        t.Index,
	}
}

type ChainStore interface {

	// Pending pool
	AddPendingTransaction(tx blockchain.Transaction) int
	GetPendingTransactions() []blockchain.Transaction

	// Sealing and chain updates
	CreateBlock(nonce blockchain.NonceType, prevHash, hash string) blockchain.Block
	GetMiningTemplate() MiningTemplate
	SealBlock(tmpl MiningTemplate, nonce blockchain.NonceType, hash string) (blockchain.Block, error)
	AppendBlock(block blockchain.Block) error
	ReplaceChain(chain blockchain.Chain, pending []blockchain.Transaction) error

	// Getters
	GetHeadBlock() blockchain.Block
	GetChain() blockchain.Chain
	GetChainHeight() int
	GetSnapshot() Snapshot
	GetBlockByHash(hash string) *blockchain.Block
	GetTransactionByID(id string) (*blockchain.Transaction, *blockchain.Block)
	GetAddressActivity(address string) blockchain.AddressActivity
}
