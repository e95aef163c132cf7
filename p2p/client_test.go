package p2p

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshledger/blockchain"
)

// recordingPeer answers the peer endpoints and remembers what it received
type recordingPeer struct {
	tx       blockchain.Transaction
	block    blockchain.Block
	register RegisterServerPayload
	bulk     RegisterBulkPayload
}

func newRecordingPeer(t *testing.T) (*recordingPeer, *httptest.Server) {
	rec := &recordingPeer{}
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("POST "+PathTransaction, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.tx))
		writeJSON(w, TransactionResponse{Msg: "ok", BlockIndex: 2})
	})
	mux.HandleFunc("POST "+PathReceiveNewBlock, func(w http.ResponseWriter, r *http.Request) {
		var payload NewBlockPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		rec.block = *payload.NewBlock
		writeJSON(w, BlockIntakeResponse{Msg: "accepted", Accepted: payload.NewBlock.Index == 2, NewBlock: payload.NewBlock})
	})
	mux.HandleFunc("POST "+PathRegisterServer, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.register))
		writeJSON(w, MessageResponse{Msg: "ok"})
	})
	mux.HandleFunc("POST "+PathRegisterServersBulk, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.bulk))
		writeJSON(w, MessageResponse{Msg: "ok"})
	})
	mux.HandleFunc("GET "+PathBlockchain, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, BlockchainPayload{
			Chain:               blockchain.Chain{blockchain.NewGenesisBlock(1)},
			PendingTransactions: []blockchain.Transaction{},
			CurrentServer:       "http://peer",
			NetworkServers:      []string{"http://other"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return rec, server
}

func TestClientPeerCalls(t *testing.T) {
	rec, server := newRecordingPeer(t)
	client := NewClient(2 * time.Second)
	ctx := context.Background()

	t.Run("send transaction", func(t *testing.T) {
		tx := blockchain.NewTransaction(4.5, "alice", "bob")
		require.NoError(t, client.SendTransaction(ctx, server.URL, tx))
		assert.Equal(t, tx, rec.tx)
	})

	t.Run("send block", func(t *testing.T) {
		accepted, err := client.SendBlock(ctx, server.URL+"/", blockchain.Block{Index: 2, PrevBlockHash: "0", Hash: "h"})
		require.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, "h", rec.block.Hash)

		accepted, err = client.SendBlock(ctx, server.URL, blockchain.Block{Index: 5})
		require.NoError(t, err)
		assert.False(t, accepted)
	})

	t.Run("register", func(t *testing.T) {
		require.NoError(t, client.RegisterServer(ctx, server.URL, "http://new"))
		assert.Equal(t, "http://new", rec.register.NewServerURL)

		require.NoError(t, client.RegisterServersBulk(ctx, server.URL, []string{"http://a", "http://b"}))
		assert.Equal(t, []string{"http://a", "http://b"}, rec.bulk.AllNetworkServers)
	})

	t.Run("fetch blockchain", func(t *testing.T) {
		payload, err := client.FetchBlockchain(ctx, server.URL)
		require.NoError(t, err)
		assert.Len(t, payload.Chain, 1)
		assert.Equal(t, "http://peer", payload.CurrentServer)
	})
}

func TestClientErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()

	client := NewClient(time.Second)

	err := client.SendTransaction(context.Background(), failing.URL, blockchain.NewTransaction(1, "a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	// Closed server: connection refused
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = client.FetchBlockchain(context.Background(), closed.URL)
	assert.Error(t, err)
}
