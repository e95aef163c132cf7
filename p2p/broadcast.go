package p2p

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// BroadcastReport lists which peers a fan-out reached, in peer order
type BroadcastReport struct {
	Sent   []string `json:"sent"`
	Failed []string `json:"failed"`
}

// Broadcaster runs one call per peer concurrently and waits for all of them.
// A failing peer is logged and skipped; it never cancels its siblings.
type Broadcaster struct {
	maxConcurrency int
	logger         *slog.Logger
	onFailure      func(op, peer string, err error)
}

type BroadcasterConfig struct {
	MaxConcurrency int // <= 0 means unlimited
	Logger         *slog.Logger
	OnFailure      func(op, peer string, err error)
}

func NewBroadcaster(config BroadcasterConfig) *Broadcaster {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		maxConcurrency: config.MaxConcurrency,
		logger:         logger,
		onFailure:      config.OnFailure,
	}
}

// Each calls fn for every peer and returns once every call has finished
func (b *Broadcaster) Each(ctx context.Context, op string, peers []string, fn func(ctx context.Context, peer string) error) BroadcastReport {
	results := make([]error, len(peers))

	// Plain group, not WithContext: one failure must not cancel the others
	var g errgroup.Group
	if b.maxConcurrency > 0 {
		g.SetLimit(b.maxConcurrency)
	}

	for i, peer := range peers {
		g.Go(func() error {
			if err := fn(ctx, peer); err != nil {
				results[i] = err
				b.logger.Warn("Peer call failed", "op", op, "peer", peer, "error", err)
				if b.onFailure != nil {
					b.onFailure(op, peer, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report := BroadcastReport{
		Sent:   make([]string, 0, len(peers)),
		Failed: make([]string, 0),
	}
	for i, peer := range peers {
		if results[i] != nil {
			report.Failed = append(report.Failed, peer)
		} else {
			report.Sent = append(report.Sent, peer)
		}
	}

	b.logger.Debug("Fan-out finished", "op", op, "sent", len(report.Sent), "failed", len(report.Failed))
	return report
}
