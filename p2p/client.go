package p2p

import (
	"context"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"meshledger/blockchain"
)

// PeerClient is what a node needs from its peers
type PeerClient interface {
	SendTransaction(ctx context.Context, peer string, tx blockchain.Transaction) error
	SendBlock(ctx context.Context, peer string, block blockchain.Block) (bool, error)
	RegisterServer(ctx context.Context, peer string, newServerURL string) error
	RegisterServersBulk(ctx context.Context, peer string, servers []string) error
	FetchBlockchain(ctx context.Context, peer string) (BlockchainPayload, error)
}

// Client speaks the node HTTP protocol. One client serves every peer; the peer
// URL is passed per call. Calls are never retried.
type Client struct {
	rest *resty.Client
}

func NewClient(timeout time.Duration) *Client {
	rest := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{rest: rest}
}

func endpoint(peer, path string) string {
	return NormalizePeerURL(peer) + path
}

func (c *Client) do(ctx context.Context, method, target string, body, result any) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, target)
	}
	if resp.IsError() {
		return errors.Errorf("%s %s: status %d", method, target, resp.StatusCode())
	}
	return nil
}

func (c *Client) SendTransaction(ctx context.Context, peer string, tx blockchain.Transaction) error {
	return c.do(ctx, resty.MethodPost, endpoint(peer, PathTransaction), tx, &TransactionResponse{})
}

// SendBlock delivers a block and reports whether the peer accepted it
func (c *Client) SendBlock(ctx context.Context, peer string, block blockchain.Block) (bool, error) {
	var out BlockIntakeResponse
	if err := c.do(ctx, resty.MethodPost, endpoint(peer, PathReceiveNewBlock), NewBlockPayload{NewBlock: &block}, &out); err != nil {
		return false, err
	}
	return out.Accepted, nil
}

func (c *Client) RegisterServer(ctx context.Context, peer string, newServerURL string) error {
	return c.do(ctx, resty.MethodPost, endpoint(peer, PathRegisterServer), RegisterServerPayload{NewServerURL: newServerURL}, &MessageResponse{})
}

func (c *Client) RegisterServersBulk(ctx context.Context, peer string, servers []string) error {
	return c.do(ctx, resty.MethodPost, endpoint(peer, PathRegisterServersBulk), RegisterBulkPayload{AllNetworkServers: servers}, &MessageResponse{})
}

func (c *Client) FetchBlockchain(ctx context.Context, peer string) (BlockchainPayload, error) {
	var out BlockchainPayload
	if err := c.do(ctx, resty.MethodGet, endpoint(peer, PathBlockchain), nil, &out); err != nil {
		return BlockchainPayload{}, err
	}
	return out, nil
}

// Operator calls, used by meshctl

func (c *Client) BroadcastTransaction(ctx context.Context, node string, payload NewTxPayload) (BroadcastResponse, error) {
	var out BroadcastResponse
	err := c.do(ctx, resty.MethodPost, endpoint(node, PathTransactionBroadcast), payload, &out)
	return out, err
}

func (c *Client) Mine(ctx context.Context, node string) (MineResponse, error) {
	var out MineResponse
	err := c.do(ctx, resty.MethodGet, endpoint(node, PathMine), nil, &out)
	return out, err
}

func (c *Client) RegisterAndBroadcast(ctx context.Context, node string, newServerURL string) (BroadcastResponse, error) {
	var out BroadcastResponse
	err := c.do(ctx, resty.MethodPost, endpoint(node, PathRegisterAndBroadcast), RegisterServerPayload{NewServerURL: newServerURL}, &out)
	return out, err
}

func (c *Client) Consensus(ctx context.Context, node string) (ConsensusResponse, error) {
	var out ConsensusResponse
	err := c.do(ctx, resty.MethodGet, endpoint(node, PathConsensus), nil, &out)
	return out, err
}

func (c *Client) GetBlock(ctx context.Context, node string, hash string) (BlockResponse, error) {
	var out BlockResponse
	err := c.do(ctx, resty.MethodGet, endpoint(node, PathBlock+url.PathEscape(hash)), nil, &out)
	return out, err
}

func (c *Client) GetTransaction(ctx context.Context, node string, id string) (TransactionLookupResponse, error) {
	var out TransactionLookupResponse
	err := c.do(ctx, resty.MethodGet, endpoint(node, PathTransactionByID+url.PathEscape(id)), nil, &out)
	return out, err
}

func (c *Client) GetAddress(ctx context.Context, node string, address string) (AddressResponse, error) {
	var out AddressResponse
	err := c.do(ctx, resty.MethodGet, endpoint(node, PathAddress+url.PathEscape(address)), nil, &out)
	return out, err
}
