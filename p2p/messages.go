package p2p

import (
	"meshledger/blockchain"
)

// Endpoints every node serves
const (
	PathBlockchain           = "/blockchain"
	PathTransaction          = "/transaction"
	PathTransactionBroadcast = "/transaction/broadcast"
	PathMine                 = "/mine"
	PathReceiveNewBlock      = "/receive-new-block"
	PathRegisterServer       = "/register-server"
	PathRegisterServersBulk  = "/register-servers-bulk"
	PathRegisterAndBroadcast = "/register-and-broadcast-server"
	PathConsensus            = "/consensus"
	PathBlock                = "/block/"
	PathTransactionByID      = "/transaction/"
	PathAddress              = "/address/"
)

// BlockchainPayload is the full ledger snapshot served at /blockchain
type BlockchainPayload struct {
	Chain               blockchain.Chain         `json:"chain"`
	PendingTransactions []blockchain.Transaction `json:"pendingTransactions"`
	CurrentServer       string                   `json:"currentServer"`
	NetworkServers      []string                 `json:"networkServers"`
}

// NewTxPayload asks a node to create and broadcast a transaction
type NewTxPayload struct {
	Amount    float64 `json:"amount"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
}

// NewBlockPayload carries a sealed block to a peer
type NewBlockPayload struct {
	NewBlock *blockchain.Block `json:"newBlock"`
}

type RegisterServerPayload struct {
	NewServerURL string `json:"newServerUrl"`
}

type RegisterBulkPayload struct {
	AllNetworkServers []string `json:"allNetworkServers"`
}

// MessageResponse is the minimal reply every endpoint carries
type MessageResponse struct {
	Msg string `json:"msg"`
}

type TransactionResponse struct {
	Msg        string `json:"msg"`
	BlockIndex int    `json:"blockIndex"`
}

type BroadcastResponse struct {
	Msg         string                  `json:"msg"`
	Transaction *blockchain.Transaction `json:"transaction,omitempty"`
	Sent        []string                `json:"sent"`
	Failed      []string                `json:"failed"`
}

type BlockIntakeResponse struct {
	Msg      string            `json:"msg"`
	Accepted bool              `json:"accepted"`
	NewBlock *blockchain.Block `json:"newBlock"`
}

type MineResponse struct {
	Msg   string            `json:"msg"`
	Block *blockchain.Block `json:"block"`
}

type ConsensusResponse struct {
	Msg      string           `json:"msg"`
	Replaced bool             `json:"replaced"`
	Chain    blockchain.Chain `json:"chain"`
}

type BlockResponse struct {
	Block *blockchain.Block `json:"block"`
}

type TransactionLookupResponse struct {
	Transaction *blockchain.Transaction `json:"transaction"`
	Block       *blockchain.Block       `json:"block"`
}

type AddressResponse struct {
	AddressData blockchain.AddressActivity `json:"addressData"`
}
