package blockchain

const (
	// Difficulty is the number of leading '0' hex characters a block hash needs.
	// Every node of one network must use the same value.
	Difficulty = 4

	// MiningReward is paid by the system account to the node that sealed a block
	MiningReward = 3.125

	// SystemSender marks system-minted transactions (mining rewards)
	SystemSender = "00"
)

type Transaction struct {
	Amount    float64 `json:"amount"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	ID        string  `json:"id"`
}

// IsReward reports whether the transaction was minted by the system account
func (tx Transaction) IsReward() bool {
	return tx.Sender == SystemSender
}

type Block struct {
	Index         int           `json:"index"`
	Transactions  []Transaction `json:"transactions"`
	Nonce         uint64        `json:"nonce"`
	Hash          string        `json:"hash"`
	PrevBlockHash string        `json:"prevBlockHash"`
	Timestamp     int64         `json:"timestamp"` // unix millis
}

// BlockData is the part of a block covered by the proof-of-work hash.
// Field order is part of the hash preimage, do not reorder.
type BlockData struct {
	Transactions []Transaction `json:"transactions"`
	Index        int           `json:"index"`
}

// Data returns the hashed portion of the block
func (b *Block) Data() BlockData {
	return BlockData{
		Transactions: b.Transactions,
		Index:        b.Index,
	}
}

// Chain is an ordered list of blocks starting at genesis (index 1)
type Chain []Block

// LastBlock returns the tip of the chain, or nil for an empty chain
func (c Chain) LastBlock() *Block {
	if len(c) == 0 {
		return nil
	}
	return &c[len(c)-1]
}

// AddressActivity is the result of an account lookup across the whole chain
type AddressActivity struct {
	Transactions []Transaction `json:"addressTransactions"`
	Balance      float64       `json:"addressBalance"`
}

// CloneTransactions copies a transaction slice, never returning nil
func CloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

// CloneChain deep-copies a chain so callers can't alias ledger state
func CloneChain(chain Chain) Chain {
	out := make(Chain, len(chain))
	for i, block := range chain {
		block.Transactions = CloneTransactions(block.Transactions)
		out[i] = block
	}
	return out
}
