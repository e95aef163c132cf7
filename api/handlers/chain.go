package handlers

import (
	"net/http"

	"meshledger/node"
	"meshledger/p2p"
)

func HandleBlockchain(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	writeJSON(w, http.StatusOK, c.Blockchain())
}

// HandleConsensus reconciles with every peer and returns the resulting chain
func HandleConsensus(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	res := c.Consensus(r.Context())

	msg := "Current chain has not been replaced."
	if res.Replaced {
		msg = "This chain has been replaced."
	}
	writeJSON(w, http.StatusOK, p2p.ConsensusResponse{
		Msg:      msg,
		Replaced: res.Replaced,
		Chain:    res.Chain,
	})
}
