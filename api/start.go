package api

import (
	"context"

	"meshledger/node"
)

// RunNode creates a full node and serves its API until ctx is cancelled
func RunNode(ctx context.Context, config node.Config, server ServerConfig) error {
	n, err := node.NewFullNode(config)
	if err != nil {
		return err
	}
	defer n.Stop()

	n.Logger().Info("Starting blockchain node", "port", server.Port, "metrics", server.MetricsEnabled)
	return NewServer(n, server).Start(ctx)
}
