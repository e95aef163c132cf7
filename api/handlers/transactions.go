package handlers

import (
	"fmt"
	"net/http"

	"meshledger/blockchain"
	"meshledger/node"
	"meshledger/p2p"
)

// HandleTransaction accepts a transaction broadcast by a peer
func HandleTransaction(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var tx blockchain.Transaction
	if !decodeJSON(w, r, c.Logger(), &tx) {
		return
	}

	index := c.ReceiveTransaction(tx)
	writeJSON(w, http.StatusOK, p2p.TransactionResponse{
		Msg:        fmt.Sprintf("Transaction will be added in block %d.", index),
		BlockIndex: index,
	})
}

// HandleTransactionBroadcast creates a transaction and sends it to the network
func HandleTransactionBroadcast(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var payload p2p.NewTxPayload
	if !decodeJSON(w, r, c.Logger(), &payload) {
		return
	}

	tx, report := c.BroadcastTransaction(r.Context(), payload.Amount, payload.Sender, payload.Recipient)
	writeJSON(w, http.StatusOK, p2p.BroadcastResponse{
		Msg:         "Transaction created and broadcast successfully.",
		Transaction: &tx,
		Sent:        report.Sent,
		Failed:      report.Failed,
	})
}

// HandleTransactionLookup finds a transaction and the block holding it
func HandleTransactionLookup(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	tx, block := c.Transaction(r.PathValue("id"))
	writeJSON(w, http.StatusOK, p2p.TransactionLookupResponse{
		Transaction: tx,
		Block:       block,
	})
}

// HandleAddress reports every transaction of an address and its balance
func HandleAddress(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	writeJSON(w, http.StatusOK, p2p.AddressResponse{
		AddressData: c.AddressActivity(r.PathValue("address")),
	})
}
