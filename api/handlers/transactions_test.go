package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshledger/blockchain"
	"meshledger/node"
	"meshledger/p2p"
)

const testDifficulty = 2

func newTestNode(t *testing.T) *node.FullNode {
	t.Helper()
	n, err := node.NewFullNode(node.Config{
		CurrentServer: "http://localhost:3001",
		NodeAddress:   "miner",
		Difficulty:    testDifficulty,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(n.Stop)
	return n
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	return httptest.NewRequest(method, target, reader)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandleTransaction(t *testing.T) {
	n := newTestNode(t)
	c := n.Coordinator()

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "valid transaction",
			body:           blockchain.NewTransaction(12.5, "alice", "bob"),
			expectedStatus: http.StatusOK,
			expectedInBody: `"blockIndex":2`,
		},
		{
			name:           "invalid JSON",
			body:           "{invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleTransaction(rec, newRequest(t, http.MethodPost, p2p.PathTransaction, tt.body), c)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedInBody)
		})
	}

	assert.Len(t, n.Store().GetPendingTransactions(), 1)
}

func TestHandleTransactionBroadcast(t *testing.T) {
	n := newTestNode(t)

	rec := httptest.NewRecorder()
	body := p2p.NewTxPayload{Amount: 3, Sender: "alice", Recipient: "bob"}
	HandleTransactionBroadcast(rec, newRequest(t, http.MethodPost, p2p.PathTransactionBroadcast, body), n.Coordinator())

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[p2p.BroadcastResponse](t, rec)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, 3.0, resp.Transaction.Amount)
	assert.Len(t, resp.Transaction.ID, 32)
	assert.Empty(t, resp.Failed)

	assert.Equal(t, []blockchain.Transaction{*resp.Transaction}, n.Store().GetPendingTransactions())
}

func TestHandleLookups(t *testing.T) {
	n := newTestNode(t)
	c := n.Coordinator()

	tx := blockchain.NewTransaction(4, "alice", "bob")
	c.ReceiveTransaction(tx)
	mined, err := c.Mine(t.Context())
	require.NoError(t, err)

	t.Run("transaction found", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, p2p.PathTransactionByID+tx.ID, nil)
		req.SetPathValue("id", tx.ID)
		rec := httptest.NewRecorder()
		HandleTransactionLookup(rec, req, c)

		resp := decodeBody[p2p.TransactionLookupResponse](t, rec)
		require.NotNil(t, resp.Transaction)
		assert.Equal(t, tx, *resp.Transaction)
		assert.Equal(t, mined.Block.Hash, resp.Block.Hash)
	})

	t.Run("transaction missing answers null", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, p2p.PathTransactionByID+"nope", nil)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()
		HandleTransactionLookup(rec, req, c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"transaction":null,"block":null}`, rec.Body.String())
	})

	t.Run("address", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, p2p.PathAddress+"bob", nil)
		req.SetPathValue("address", "bob")
		rec := httptest.NewRecorder()
		HandleAddress(rec, req, c)

		resp := decodeBody[p2p.AddressResponse](t, rec)
		assert.Equal(t, 4.0, resp.AddressData.Balance)
		assert.Equal(t, []blockchain.Transaction{tx}, resp.AddressData.Transactions)
	})

	t.Run("block", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, p2p.PathBlock+mined.Block.Hash, nil)
		req.SetPathValue("hash", mined.Block.Hash)
		rec := httptest.NewRecorder()
		HandleBlockLookup(rec, req, c)

		resp := decodeBody[p2p.BlockResponse](t, rec)
		require.NotNil(t, resp.Block)
		assert.Equal(t, mined.Block, *resp.Block)
	})
}
