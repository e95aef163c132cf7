package handlers

import (
	"net/http"

	"meshledger/blockchain"
	"meshledger/node"
	"meshledger/p2p"
)

// HandleMine mines a block, announces it and broadcasts the reward
func HandleMine(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	res, err := c.Mine(r.Context())
	if err != nil {
		c.Logger().Warn("Mining failed", "error", err)
		writeMessage(w, http.StatusConflict, "Mining failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p2p.MineResponse{
		Msg:   "New block mined and broadcast successfully.",
		Block: &res.Block,
	})
}

// HandleReceiveNewBlock is the peer block intake. A rejected block is a normal
// negative answer, not an error status.
func HandleReceiveNewBlock(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var payload p2p.NewBlockPayload
	if !decodeJSON(w, r, c.Logger(), &payload) {
		return
	}
	if payload.NewBlock == nil {
		writeMessage(w, http.StatusBadRequest, "newBlock is required")
		return
	}

	block := *payload.NewBlock
	if block.Transactions == nil {
		block.Transactions = make([]blockchain.Transaction, 0)
	}

	if err := c.ReceiveBlock(block); err != nil {
		writeJSON(w, http.StatusOK, p2p.BlockIntakeResponse{
			Msg:      "New block rejected.",
			Accepted: false,
			NewBlock: &block,
		})
		return
	}

	writeJSON(w, http.StatusOK, p2p.BlockIntakeResponse{
		Msg:      "New block received and accepted.",
		Accepted: true,
		NewBlock: &block,
	})
}

// HandleBlockLookup finds a block by hash; unknown hashes answer null
func HandleBlockLookup(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	writeJSON(w, http.StatusOK, p2p.BlockResponse{
		Block: c.Block(r.PathValue("hash")),
	})
}
