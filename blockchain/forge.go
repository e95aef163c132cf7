package blockchain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random 32 character hex identifier
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTransaction creates a transaction with a fresh id.
// Amounts and addresses are accepted as given.
func NewTransaction(amount float64, sender, recipient string) Transaction {
	return Transaction{
		Amount:    amount,
		Sender:    sender,
		Recipient: recipient,
		ID:        NewID(),
	}
}

// NewRewardTransaction mints the mining reward for a node address
func NewRewardTransaction(nodeAddress string) Transaction {
	return NewTransaction(MiningReward, SystemSender, nodeAddress)
}

type BlockCreationParams struct {
	Index        int
	Nonce        NonceType
	PrevHash     string
	Hash         string
	Transactions []Transaction
	Timestamp    int64
}

// NewBlock assembles a sealed block. A zero timestamp means now.
func NewBlock(params BlockCreationParams) Block {
	ts := params.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return Block{
		Index:         params.Index,
		Transactions:  CloneTransactions(params.Transactions),
		Nonce:         params.Nonce,
		Hash:          params.Hash,
		PrevBlockHash: params.PrevHash,
		Timestamp:     ts,
	}
}
