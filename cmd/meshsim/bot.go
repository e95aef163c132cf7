package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/pterm/pterm"

	"meshledger/api"
	"meshledger/mocks"
	"meshledger/node"
	"meshledger/p2p"
)

// Bot is an in-process node that trades with the other bots and mines now and then
type Bot struct {
	Name string
	URL  string

	addr   string
	node   *node.FullNode
	client *p2p.Client
	logger *slog.Logger
}

func NewBot(name, addr string, difficulty int, client *p2p.Client, logger *slog.Logger) (*Bot, error) {
	url := "http://" + addr
	n, err := node.NewFullNode(node.Config{
		CurrentServer: url,
		Difficulty:    difficulty,
		Logger:        logger.With("bot", name),
	})
	if err != nil {
		return nil, err
	}

	return &Bot{
		Name:   name,
		URL:    url,
		addr:   addr,
		node:   n,
		client: client,
		logger: logger,
	}, nil
}

// Address is the account the bot's mining rewards are paid to
func (b *Bot) Address() string {
	return b.node.Coordinator().NodeAddress()
}

// Serve runs the bot's HTTP API until ctx is cancelled
func (b *Bot) Serve(ctx context.Context) error {
	defer b.node.Stop()
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", b.addr)
	if err != nil {
		return err
	}
	return api.NewServer(b.node, api.ServerConfig{MetricsEnabled: true}).Serve(ctx, listener)
}

// Behave alternates between paying another bot, mining and reconciling,
// waiting a random interval between actions
func (b *Bot) Behave(ctx context.Context, r *rand.Rand, accounts []string, minWait, maxWait time.Duration) {
	for {
		wait := minWait
		if span := maxWait - minWait; span > 0 {
			wait += time.Duration(r.Int63n(int64(span)))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		switch roll := r.Intn(10); {
		case roll < 5:
			b.trade(ctx, r, accounts)
		case roll < 9:
			b.mine(ctx)
		default:
			b.reconcile(ctx)
		}
	}
}

func (b *Bot) trade(ctx context.Context, r *rand.Rand, accounts []string) {
	// Nobody to pay
	if len(accounts) < 2 {
		return
	}
	for _, tx := range mocks.GenerateRandomTransactions(r, accounts, 1+r.Intn(3)) {
		payload := p2p.NewTxPayload{Amount: tx.Amount, Sender: b.Address(), Recipient: tx.Recipient}
		if payload.Recipient == payload.Sender {
			payload.Recipient = tx.Sender
		}
		if _, err := b.client.BroadcastTransaction(ctx, b.URL, payload); err != nil {
			b.logger.Warn("Bot transaction failed", "bot", b.Name, "error", err)
			return
		}
	}
}

func (b *Bot) mine(ctx context.Context) {
	resp, err := b.client.Mine(ctx, b.URL)
	if err != nil {
		b.logger.Warn("Bot mining failed", "bot", b.Name, "error", err)
		return
	}
	pterm.Info.Printfln("%s mined block %d with %d transactions", b.Name, resp.Block.Index, len(resp.Block.Transactions))
}

func (b *Bot) reconcile(ctx context.Context) {
	resp, err := b.client.Consensus(ctx, b.URL)
	if err != nil {
		b.logger.Warn("Bot consensus failed", "bot", b.Name, "error", err)
		return
	}
	if resp.Replaced {
		pterm.Info.Printfln("%s adopted a longer chain of %d blocks", b.Name, len(resp.Chain))
	}
}
