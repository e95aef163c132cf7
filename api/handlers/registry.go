package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	"meshledger/node"
	"meshledger/p2p"
)

// HandleRegisterServer adds one peer. Duplicates and this node's own url are
// ignored, as the registry rules require.
func HandleRegisterServer(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var payload p2p.RegisterServerPayload
	if !decodeJSON(w, r, c.Logger(), &payload) {
		return
	}

	if err := c.RegisterServer(payload.NewServerURL); err != nil {
		writeMessage(w, http.StatusOK, "Server not registered: "+errors.Cause(err).Error())
		return
	}
	writeMessage(w, http.StatusOK, "New server registered successfully.")
}

func HandleRegisterServersBulk(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var payload p2p.RegisterBulkPayload
	if !decodeJSON(w, r, c.Logger(), &payload) {
		return
	}

	c.RegisterServersBulk(payload.AllNetworkServers)
	writeMessage(w, http.StatusOK, "Bulk registration successful.")
}

// HandleRegisterAndBroadcast joins a new peer to the whole network
func HandleRegisterAndBroadcast(w http.ResponseWriter, r *http.Request, c *node.Coordinator) {
	var payload p2p.RegisterServerPayload
	if !decodeJSON(w, r, c.Logger(), &payload) {
		return
	}

	res, err := c.RegisterAndBroadcast(r.Context(), payload.NewServerURL)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Server not registered: "+errors.Cause(err).Error())
		return
	}

	msg := "New server registered with network successfully."
	if !res.Synced {
		msg = "New server registered, but it could not be sent the network."
	}
	writeJSON(w, http.StatusOK, p2p.BroadcastResponse{
		Msg:    msg,
		Sent:   res.Propagation.Sent,
		Failed: res.Propagation.Failed,
	})
}
