package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshledger/logging"
	"meshledger/p2p"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	logger := logging.New(logging.Config{Level: "error", Format: "text"})
	bot, err := NewBot("solo", "127.0.0.1:0", 2, p2p.NewClient(time.Second), logger)
	require.NoError(t, err)
	t.Cleanup(bot.node.Stop)
	return bot
}

func TestTradeWithoutCounterparty(t *testing.T) {
	bot := newTestBot(t)

	assert.NotPanics(t, func() {
		bot.trade(context.Background(), rand.New(rand.NewSource(1)), []string{bot.Address()})
	})
	assert.Empty(t, bot.node.Store().GetPendingTransactions())
}

func TestRunRequiresTwoBots(t *testing.T) {
	err := run(context.Background(), simConfig{bots: 1, basePort: 19900, difficulty: 2, logLevel: "error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two bots")
}
