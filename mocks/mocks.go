package mocks

import (
	"fmt"
	"math/rand"

	"meshledger/blockchain"
)

// GenerateAccounts returns count distinct account addresses
func GenerateAccounts(count int) []string {
	accounts := make([]string, count)
	for i := range accounts {
		accounts[i] = blockchain.NewID()
	}
	return accounts
}

// GenerateRandomTransactions creates transfers between random distinct
// accounts with amounts between 1 and 100
func GenerateRandomTransactions(r *rand.Rand, accounts []string, count int) []blockchain.Transaction {
	if len(accounts) < 2 {
		panic("need at least 2 accounts to generate transactions")
	}

	transactions := make([]blockchain.Transaction, 0, count)
	for i := 0; i < count; i++ {
		from := r.Intn(len(accounts))
		to := r.Intn(len(accounts))
		for to == from {
			to = r.Intn(len(accounts))
		}
		amount := float64(r.Intn(100) + 1)
		transactions = append(transactions, blockchain.NewTransaction(amount, accounts[from], accounts[to]))
	}
	return transactions
}

// GenerateMinedBlock seals transactions on top of prev with a real proof of work
func GenerateMinedBlock(prev *blockchain.Block, transactions []blockchain.Transaction, difficulty int) blockchain.Block {
	data := blockchain.BlockData{
		Transactions: blockchain.CloneTransactions(transactions),
		Index:        prev.Index + 1,
	}
	nonce := blockchain.ProofOfWork(prev.Hash, data, difficulty)

	return blockchain.NewBlock(blockchain.BlockCreationParams{
		Index:        data.Index,
		Nonce:        nonce,
		PrevHash:     prev.Hash,
		Hash:         blockchain.HashBlock(prev.Hash, data, nonce),
		Transactions: data.Transactions,
	})
}

// GeneratePrebuiltChain builds a valid chain of blockCount mined blocks after
// genesis. Every block pays a reward to a random account first.
func GeneratePrebuiltChain(seed int64, blockCount, accountCount, transactionsPerBlock, difficulty int) blockchain.Chain {
	r := rand.New(rand.NewSource(seed))
	accounts := GenerateAccounts(accountCount)

	chain := blockchain.Chain{blockchain.NewGenesisBlock(0)}
	for i := 0; i < blockCount; i++ {
		miner := accounts[r.Intn(len(accounts))]
		txs := append(
			[]blockchain.Transaction{blockchain.NewRewardTransaction(miner)},
			GenerateRandomTransactions(r, accounts, transactionsPerBlock)...,
		)
		chain = append(chain, GenerateMinedBlock(chain.LastBlock(), txs, difficulty))
	}
	return chain
}

// InvalidChainKind names one way GenerateInvalidChain breaks a chain
type InvalidChainKind string

const (
	TamperedAmount InvalidChainKind = "tampered-amount"
	TamperedNonce  InvalidChainKind = "tampered-nonce"
	TamperedHash   InvalidChainKind = "tampered-hash"
	BrokenLink     InvalidChainKind = "broken-link"
	WrongGenesis   InvalidChainKind = "wrong-genesis"
)

// GenerateInvalidChain returns a copy of chain broken at the given block
func GenerateInvalidChain(chain blockchain.Chain, kind InvalidChainKind, at int) blockchain.Chain {
	out := blockchain.CloneChain(chain)
	block := &out[at]

	switch kind {
	case TamperedAmount:
		if len(block.Transactions) == 0 {
			block.Transactions = append(block.Transactions, blockchain.NewTransaction(1, "a", "b"))
		} else {
			block.Transactions[0].Amount += 1000
		}
	case TamperedNonce:
		block.Nonce++
	case TamperedHash:
		last := block.Hash[len(block.Hash)-1]
		flipped := byte('0')
		if last == '0' {
			flipped = '1'
		}
		block.Hash = block.Hash[:len(block.Hash)-1] + string(flipped)
	case BrokenLink:
		block.PrevBlockHash = "abc"
	case WrongGenesis:
		out[0].Nonce = blockchain.GenesisNonce + 1
	default:
		panic(fmt.Sprintf("unknown invalid chain kind %q", kind))
	}
	return out
}
