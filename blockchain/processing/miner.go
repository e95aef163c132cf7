package processing

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"meshledger/blockchain"
	"meshledger/blockchain/store"
)

var ErrMinerStopped = errors.New("miner stopped")

type miningJob struct {
	template store.MiningTemplate
	result   chan blockchain.NonceType
}

// Miner runs proof-of-work searches on a dedicated goroutine, one at a time,
// so the search never holds the ledger lock or blocks request handlers.
type Miner struct {
	difficulty int
	jobs       chan miningJob
	done       chan struct{}
	stopOnce   sync.Once
}

// NewMiner starts the worker goroutine
func NewMiner(difficulty int) *Miner {
	m := &Miner{
		difficulty: difficulty,
		jobs:       make(chan miningJob),
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Miner) run() {
	for {
		select {
		case <-m.done:
			return
		case job := <-m.jobs:
			// The search itself is not interruptible
			job.result <- blockchain.ProofOfWork(job.template.PrevHash, job.template.Data(), m.difficulty)
		}
	}
}

// Solve finds the nonce for a template. Cancelling ctx stops the wait, not the
// search already in progress; its result is dropped.
func (m *Miner) Solve(ctx context.Context, tmpl store.MiningTemplate) (blockchain.NonceType, error) {
	job := miningJob{
		template: tmpl,
		result:   make(chan blockchain.NonceType, 1),
	}

	select {
	case m.jobs <- job:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-m.done:
		return 0, ErrMinerStopped
	}

	select {
	case nonce := <-job.result:
		return nonce, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-m.done:
		return 0, ErrMinerStopped
	}
}

// Stop shuts the worker down once the current search, if any, finishes
func (m *Miner) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
