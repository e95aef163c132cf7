package blockchain

const (
	GenesisNonce = 100
	GenesisHash  = "0"
)

// NewGenesisBlock returns the fixed, unmined first block of every chain
func NewGenesisBlock(timestamp int64) Block {
	return Block{
		Index:         1,
		Transactions:  []Transaction{},
		Nonce:         GenesisNonce,
		Hash:          GenesisHash,
		PrevBlockHash: GenesisHash,
		Timestamp:     timestamp,
	}
}

// IsGenesisBlock checks structural equality with the genesis constant.
// The timestamp is local to each node and is not compared.
func IsGenesisBlock(block *Block) bool {
	if block == nil {
		return false
	}
	return block.Index == 1 &&
		block.Nonce == GenesisNonce &&
		block.Hash == GenesisHash &&
		block.PrevBlockHash == GenesisHash &&
		len(block.Transactions) == 0
}
